package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// Submitter sends a signed transaction to the network. network.Network
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error)
}

// SignAndSubmitAll signs and submits every built entry in insertion order,
// which puts parents ahead of the children they spawned. The first failure
// marks that entry as failed and stops; later entries stay built.
func (b *Batch) SignAndSubmitAll(ctx context.Context, sub Submitter) error {
	if sub == nil {
		return fmt.Errorf("%w: submitter", ErrNilParam)
	}
	for _, t := range b.Trackers() {
		if t.State() != Built {
			continue
		}
		if err := b.signAndSubmit(ctx, t, sub); err != nil {
			_ = t.fail(err)
			return err
		}
	}
	return nil
}

func (b *Batch) signAndSubmit(ctx context.Context, t *Tracker, sub Submitter) error {
	built := t.Built()
	if built == nil {
		return fmt.Errorf("%w: %s", ErrNotBuilt, t.ID())
	}
	tx := built.Tx

	if built.WalletMustSign && built.Wallet != nil {
		if err := t.Transition(Signing); err != nil {
			return err
		}
		sigs, err := built.Wallet.Sign(ctx, tx)
		if err != nil {
			return fmt.Errorf("batch: sign %s: %w", t.Entry().Name, err)
		}
		tx.AddSignatures(sigs...)
	}
	if missing := tx.MissingSignatures(); len(missing) > 0 {
		return fmt.Errorf("%w: %s needs %d more (first %s)", ErrMissingSignatures,
			t.Entry().Name, len(missing), missing[0].Hex())
	}

	id, err := sub.Submit(ctx, tx)
	if err != nil {
		return fmt.Errorf("batch: submit %s: %w", t.Entry().Name, err)
	}
	t.mu.Lock()
	t.txID = id
	t.mu.Unlock()
	if err := t.Transition(Submitted); err != nil {
		return err
	}
	b.log.Info("tx submitted", zap.String("name", t.Entry().Name), zap.String("txid", id.Hex()))

	if built.OnSubmitted != nil {
		built.OnSubmitted(ctx, t)
	}
	return nil
}

// Confirm marks a submitted entry as confirmed. The txn package calls it
// for simulated networks; against a live network the caller confirms.
func (b *Batch) Confirm(id string) error {
	t, err := b.mustGet(id)
	if err != nil {
		return err
	}
	return t.Transition(Confirmed)
}
