package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// Entry describes a transaction to track.
type Entry struct {
	ID          string
	Name        string
	Description string
	MoreInfo    string
	ParentID    string
	Depth       int
	Optional    bool
}

// Signer produces signatures for a transaction. wallet.Wallet satisfies it.
type Signer interface {
	Sign(ctx context.Context, tx *ledger.Tx) ([]ledger.Signature, error)
}

// BuiltTx is what the builder hands over once a transaction is ready.
type BuiltTx struct {
	Tx             *ledger.Tx
	Wallet         Signer
	WalletMustSign bool
	OtherSigners   []ledger.PubKeyHash
	OnSubmitted    func(ctx context.Context, t *Tracker)
}

// Transition is one recorded state change.
type Transition struct {
	ID   string
	Name string
	From State
	To   State
	At   time.Time
}

// Tracker follows one transaction through its lifecycle.
type Tracker struct {
	mu      sync.Mutex
	batch   *Batch
	entry   Entry
	state   State
	built   *BuiltTx
	txID    ledger.TxID
	err     error
	history []Transition
}

// ID returns the tracked id.
func (t *Tracker) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry.ID
}

// Entry returns the descriptive record.
func (t *Tracker) Entry() Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Built returns the built transaction, or nil before TxBuilt.
func (t *Tracker) Built() *BuiltTx {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.built
}

// TxID returns the ledger id once submitted.
func (t *Tracker) TxID() ledger.TxID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txID
}

// Err returns the recorded failure, if any.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// History returns every transition so far.
func (t *Tracker) History() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transition(nil), t.history...)
}

// Transition moves the tracker to state. Moving to the current state is a
// no-op; any other move outside the lifecycle returns ErrIllegalTransition.
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	from := t.state
	if from == to {
		t.mu.Unlock()
		return nil
	}
	if !CanTransition(from, to) {
		id := t.entry.ID
		t.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, id, from, to)
	}
	t.state = to
	tr := Transition{ID: t.entry.ID, Name: t.entry.Name, From: from, To: to, At: time.Now()}
	t.history = append(t.history, tr)
	t.mu.Unlock()

	if t.batch != nil {
		t.batch.notify(t, tr)
	}
	return nil
}

func (t *Tracker) fail(err error) error {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	return t.Transition(Failed)
}
