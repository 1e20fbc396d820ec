package utxo

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

// FindOptions scopes a search. Address searches go through the Helper's
// network; otherwise Wallet is searched across all its used addresses.
type FindOptions struct {
	Address  *ledger.Address
	Wallet   wallet.Wallet
	Reserved Reserver // utxos it reports are skipped
	Hint     string   // appended to not-found errors
}

// Mode selects how many matches a search returns.
type Mode uint8

const (
	Single Mode = iota
	Multiple
)

// FindUtxo returns the first match or nil.
func (h *Helper) FindUtxo(ctx context.Context, name string, pred Predicate, opts FindOptions) (*ledger.TxInput, error) {
	found, _, _, err := h.search(ctx, name, pred, opts, Single)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// FindUtxos returns every match, or nil when there are none.
func (h *Helper) FindUtxos(ctx context.Context, name string, pred Predicate, opts FindOptions) ([]*ledger.TxInput, error) {
	found, _, _, err := h.search(ctx, name, pred, opts, Multiple)
	return found, err
}

// MustFindUtxo is FindUtxo returning a *NotFoundError on no match.
func (h *Helper) MustFindUtxo(ctx context.Context, name string, pred Predicate, opts FindOptions) (*ledger.TxInput, error) {
	found, scope, examined, err := h.search(ctx, name, pred, opts, Single)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &NotFoundError{Name: name, Scope: scope, Hint: opts.Hint, Count: examined}
	}
	return found[0], nil
}

// FindActorUtxo searches w's utxos, skipping its collateral.
func (h *Helper) FindActorUtxo(ctx context.Context, name string, w wallet.Wallet, pred Predicate, opts FindOptions) (*ledger.TxInput, error) {
	opts.Wallet, opts.Address = w, nil
	return h.FindUtxo(ctx, name, pred, opts)
}

// FindActorUtxos returns all of w's matching utxos, or nil.
func (h *Helper) FindActorUtxos(ctx context.Context, name string, w wallet.Wallet, pred Predicate, opts FindOptions) ([]*ledger.TxInput, error) {
	opts.Wallet, opts.Address = w, nil
	return h.FindUtxos(ctx, name, pred, opts)
}

// MustFindActorUtxo is FindActorUtxo returning a *NotFoundError on no match.
func (h *Helper) MustFindActorUtxo(ctx context.Context, name string, w wallet.Wallet, pred Predicate, opts FindOptions) (*ledger.TxInput, error) {
	opts.Wallet, opts.Address = w, nil
	return h.MustFindUtxo(ctx, name, pred, opts)
}

// search returns the matches, a description of the scope searched and
// the number of candidates examined.
func (h *Helper) search(ctx context.Context, name string, pred Predicate, opts FindOptions, mode Mode) ([]*ledger.TxInput, string, int, error) {
	var (
		candidates []*ledger.TxInput
		scope      string
		skip       = reservedSet(opts.Reserved)
	)

	switch {
	case opts.Address != nil:
		if h.network == nil {
			return nil, "", 0, fmt.Errorf("%w: address search without a network", ErrNoSearchScope)
		}
		scope = "address " + opts.Address.String()
		utxos, err := h.network.GetUtxos(ctx, *opts.Address)
		if err != nil {
			return nil, scope, 0, fmt.Errorf("utxo: searching %s for %q: %w", scope, name, err)
		}
		candidates = utxos

	case opts.Wallet != nil:
		addrs, err := opts.Wallet.UsedAddresses(ctx)
		if err != nil {
			return nil, "", 0, fmt.Errorf("utxo: wallet addresses: %w", err)
		}
		scope = "wallet " + describeAddrs(addrs)
		utxos, err := opts.Wallet.Utxos(ctx)
		if err != nil {
			return nil, scope, 0, fmt.Errorf("utxo: searching %s for %q: %w", scope, name, err)
		}
		collateral, err := opts.Wallet.Collateral(ctx)
		if err != nil {
			return nil, scope, 0, fmt.Errorf("utxo: wallet collateral: %w", err)
		}
		for _, c := range collateral {
			skip[c.ID] = true
		}
		candidates = utxos

	default:
		return nil, "", 0, ErrNoSearchScope
	}

	var found []*ledger.TxInput
	for _, u := range candidates {
		if skip[u.ID] || !pred(u) {
			continue
		}
		found = append(found, u)
		if mode == Single {
			break
		}
	}
	h.log.Debug("utxo search",
		zap.String("name", name),
		zap.String("scope", scope),
		zap.Int("candidates", len(candidates)),
		zap.Int("found", len(found)))
	return found, scope, len(candidates), nil
}

func describeAddrs(addrs []ledger.Address) string {
	switch len(addrs) {
	case 0:
		return "(no addresses)"
	case 1:
		return addrs[0].String()
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
