package network

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// Emulator is an in-memory ledger. Submitted transactions wait in a mempool
// until Tick confirms them in submission order.
type Emulator struct {
	mu        sync.Mutex
	params    *ledger.NetworkParams
	utxos     map[ledger.TxOutputID]*ledger.TxInput
	mempool   []*ledger.Tx
	confirmed map[ledger.TxID]bool
	slot      int64
	seq       uint32
	log       *zap.Logger
}

var (
	_ Network = (*Emulator)(nil)
	_ Ticker  = (*Emulator)(nil)
)

// NewEmulator creates an empty emulator. A nil params uses DefaultParams and
// a nil logger discards output.
func NewEmulator(params *ledger.NetworkParams, log *zap.Logger) *Emulator {
	if params == nil {
		params = ledger.DefaultParams()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Emulator{
		params:    params.Clone(),
		utxos:     make(map[ledger.TxOutputID]*ledger.TxInput),
		confirmed: make(map[ledger.TxID]bool),
		log:       log,
	}
}

// CreateUtxo funds addr with a genesis output and returns it.
func (e *Emulator) CreateUtxo(addr ledger.Address, value ledger.Value) *ledger.TxInput {
	e.mu.Lock()
	defer e.mu.Unlock()

	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], e.seq)
	e.seq++
	id := ledger.TxOutputID{TxID: ledger.TxID(ledger.Blake2b256([]byte("genesis"), seq[:]))}
	in := ledger.NewTxInput(id, ledger.NewTxOutput(addr, value.Clone()))
	e.utxos[id] = in
	return in
}

// GetUtxos returns confirmed outputs at addr in id order.
func (e *Emulator) GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*ledger.TxInput
	for _, u := range e.utxos {
		if u.Output.Address == addr {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].ID.TxID[:], out[j].ID.TxID[:]); c != 0 {
			return c < 0
		}
		return out[i].ID.Index < out[j].ID.Index
	})
	return out, nil
}

// GetUtxo returns one confirmed output.
func (e *Emulator) GetUtxo(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.utxos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUtxoNotFound, id)
	}
	return u, nil
}

// Parameters returns a copy of the emulator's parameters.
func (e *Emulator) Parameters(ctx context.Context) (*ledger.NetworkParams, error) {
	return e.params.Clone(), nil
}

// CurrentSlot returns the emulator clock.
func (e *Emulator) CurrentSlot() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slot
}

// Mempool returns the ids of submitted, unconfirmed transactions.
func (e *Emulator) Mempool() []ledger.TxID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ledger.TxID, len(e.mempool))
	for i, tx := range e.mempool {
		out[i] = tx.ID()
	}
	return out
}

// IsConfirmed reports whether a transaction was applied by Tick.
func (e *Emulator) IsConfirmed(id ledger.TxID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed[id]
}

// Submit validates tx against the confirmed utxo set and queues it.
func (e *Emulator) Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate(tx); err != nil {
		e.log.Debug("emulator rejected tx", zap.String("txid", tx.ID().Hex()), zap.Error(err))
		return ledger.TxID{}, err
	}
	id := tx.ID()
	e.mempool = append(e.mempool, tx)
	e.log.Debug("emulator accepted tx", zap.String("txid", id.Hex()), zap.Int("mempool", len(e.mempool)))
	return id, nil
}

// Tick advances the clock and confirms the mempool.
func (e *Emulator) Tick(slots int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.slot += slots
	for _, tx := range e.mempool {
		id := tx.ID()
		for _, in := range tx.Body.Inputs {
			delete(e.utxos, in.ID)
		}
		for _, u := range tx.OutputUtxos() {
			e.utxos[u.ID] = u
		}
		e.confirmed[id] = true
		e.log.Debug("emulator confirmed tx", zap.String("txid", id.Hex()), zap.Int64("slot", e.slot))
	}
	e.mempool = nil
}

func (e *Emulator) pendingSpend(id ledger.TxOutputID) bool {
	for _, tx := range e.mempool {
		if ledger.ContainsInput(tx.Body.Inputs, id) {
			return true
		}
	}
	return false
}

func (e *Emulator) validate(tx *ledger.Tx) error {
	if tx == nil {
		return fmt.Errorf("%w: nil tx", ErrSubmitRejected)
	}
	if tx.Error != nil {
		return fmt.Errorf("%w: script validation failed: %s", ErrSubmitRejected, tx.Error.Message)
	}
	if len(tx.Body.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrSubmitRejected)
	}
	id := tx.ID()
	if e.confirmed[id] {
		return fmt.Errorf("%w: %s already confirmed", ErrSubmitRejected, id.Hex())
	}

	for _, in := range tx.Body.Inputs {
		if _, ok := e.utxos[in.ID]; !ok {
			return fmt.Errorf("%w: input %s: %w", ErrSubmitRejected, in.ID, ErrUtxoNotFound)
		}
		if e.pendingSpend(in.ID) {
			return fmt.Errorf("%w: input %s already spent in mempool", ErrSubmitRejected, in.ID)
		}
	}
	for _, in := range append(append([]*ledger.TxInput(nil), tx.Body.RefInputs...), tx.Body.Collateral...) {
		if _, ok := e.utxos[in.ID]; !ok {
			return fmt.Errorf("%w: referenced %s: %w", ErrSubmitRejected, in.ID, ErrUtxoNotFound)
		}
	}

	if tx.Body.ValidFrom != nil && e.slot < *tx.Body.ValidFrom {
		return fmt.Errorf("%w: not valid before slot %d (now %d)", ErrSubmitRejected, *tx.Body.ValidFrom, e.slot)
	}
	if tx.Body.ValidTo != nil && e.slot >= *tx.Body.ValidTo {
		return fmt.Errorf("%w: expired at slot %d (now %d)", ErrSubmitRejected, *tx.Body.ValidTo, e.slot)
	}

	// ledger-side values, not the copies carried in the tx
	consumed := ledger.NewValue(0)
	for _, in := range tx.Body.Inputs {
		consumed = consumed.Add(e.utxos[in.ID].Output.Value)
	}
	produced := ledger.SumOutputs(tx.Body.Outputs).Add(ledger.NewValue(tx.Body.Fee))
	if !consumed.Add(ledger.Value{Assets: tx.Body.Mint}).Equal(produced) {
		return fmt.Errorf("%w: unbalanced: consumed %s, produced %s", ErrSubmitRejected, consumed, produced)
	}

	for i, out := range tx.Body.Outputs {
		if min := e.params.MinLovelace(out); out.Value.Lovelace < min {
			return fmt.Errorf("%w: output %d below min-utxo %s", ErrSubmitRejected, i, ledger.FormatADA(min))
		}
	}

	var cost ledger.Cost
	for _, r := range tx.Body.Redeemers {
		cost = cost.Add(r.Cost)
	}
	if need := e.params.Fee(len(tx.Bytes()), cost); tx.Body.Fee < need {
		return fmt.Errorf("%w: fee %d below minimum %d", ErrSubmitRejected, tx.Body.Fee, need)
	}

	if missing := tx.MissingSignatures(); len(missing) > 0 {
		return fmt.Errorf("%w: missing signature from %s", ErrSubmitRejected, missing[0].Hex())
	}
	return nil
}
