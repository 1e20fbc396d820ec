// Package batch tracks the transactions of one submission batch through
// their lifecycle and submits them in chain order.
package batch

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Listener observes every state change in a batch.
type Listener func(t *Tracker, tr Transition)

// Journal records transitions and built transactions.
type Journal interface {
	Record(batchID string, rec Record) error
}

// Batch holds the tracked transactions of one submission round, in the
// order they were added.
type Batch struct {
	mu        sync.Mutex
	id        string
	order     []string
	trackers  map[string]*Tracker
	listeners []Listener
	journal   Journal
	log       *zap.Logger
}

func newBatch(journal Journal, log *zap.Logger) *Batch {
	return &Batch{
		id:       uuid.NewString(),
		trackers: make(map[string]*Tracker),
		journal:  journal,
		log:      log,
	}
}

// ID returns the batch id.
func (b *Batch) ID() string { return b.id }

// OnTransition registers a listener.
func (b *Batch) OnTransition(fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// TxInfo returns the tracker for id.
func (b *Batch) TxInfo(id string) (*Tracker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[id]
	return t, ok
}

// AddTxns starts tracking entries in the pending state. An entry without an
// id gets a fresh one. Entries already tracked keep their tracker and state.
func (b *Batch) AddTxns(entries ...Entry) []*Tracker {
	b.mu.Lock()
	out := make([]*Tracker, 0, len(entries))
	var added []*Tracker
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if t, ok := b.trackers[e.ID]; ok {
			out = append(out, t)
			continue
		}
		t := &Tracker{batch: b, entry: e, state: Pending}
		b.trackers[e.ID] = t
		b.order = append(b.order, e.ID)
		out = append(out, t)
		added = append(added, t)
	}
	b.mu.Unlock()

	for _, t := range added {
		b.log.Debug("tracking tx",
			zap.String("batch", b.id),
			zap.String("id", t.entry.ID),
			zap.String("name", t.entry.Name),
			zap.Int("depth", t.entry.Depth))
		b.record(Record{TxID: t.entry.ID, Name: t.entry.Name, To: Pending, Note: t.entry.Description})
	}
	return out
}

// Trackers returns all trackers in insertion order.
func (b *Batch) Trackers() []*Tracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Tracker, len(b.order))
	for i, id := range b.order {
		out[i] = b.trackers[id]
	}
	return out
}

// TxStates returns the current state of every tracked id.
func (b *Batch) TxStates() map[string]State {
	out := make(map[string]State)
	for _, t := range b.Trackers() {
		out[t.ID()] = t.State()
	}
	return out
}

// ChangeTxID re-keys a tracked entry, keeping its position and state.
// Nothing in this module re-keys entries; callers that track transactions
// under their own ids use it.
func (b *Batch) ChangeTxID(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	b.mu.Lock()
	t, ok := b.trackers[oldID]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTx, oldID)
	}
	if _, taken := b.trackers[newID]; taken {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTx, newID)
	}
	delete(b.trackers, oldID)
	b.trackers[newID] = t
	for i, id := range b.order {
		if id == oldID {
			b.order[i] = newID
		}
	}
	b.mu.Unlock()

	t.mu.Lock()
	t.entry.ID = newID
	state := t.state
	t.mu.Unlock()
	b.record(Record{TxID: newID, Name: t.Entry().Name, From: state, To: state, Note: "renamed from " + oldID})
	return nil
}

func (b *Batch) mustGet(id string) (*Tracker, error) {
	t, ok := b.TxInfo(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTx, id)
	}
	return t, nil
}

// TxBuilt records the built transaction and moves id to Built.
func (b *Batch) TxBuilt(id string, built *BuiltTx) error {
	if built == nil || built.Tx == nil {
		return fmt.Errorf("%w: built tx", ErrNilParam)
	}
	t, err := b.mustGet(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.built = built
	t.mu.Unlock()
	if err := t.Transition(Built); err != nil {
		return err
	}
	b.record(Record{TxID: id, Name: t.Entry().Name, From: Built, To: Built, TxHex: built.Tx.Hex()})
	return nil
}

// TxError records a failure and moves id to the error state.
func (b *Batch) TxError(id string, cause error) error {
	t, err := b.mustGet(id)
	if err != nil {
		return err
	}
	b.log.Warn("tx failed", zap.String("id", id), zap.String("name", t.Entry().Name), zap.Error(cause))
	return t.fail(cause)
}

// AlreadyPresent marks id as skipped because its effect already exists.
func (b *Batch) AlreadyPresent(id string) error {
	t, err := b.mustGet(id)
	if err != nil {
		return err
	}
	return t.Transition(AlreadyPresent)
}

// Cancel marks id as cancelled before it was built.
func (b *Batch) Cancel(id, reason string) error {
	t, err := b.mustGet(id)
	if err != nil {
		return err
	}
	level := zap.WarnLevel
	if t.Entry().Optional {
		level = zap.InfoLevel
	}
	if ce := b.log.Check(level, "tx cancelled"); ce != nil {
		ce.Write(zap.String("id", id), zap.String("reason", reason))
	}
	return t.Transition(Cancelled)
}

func (b *Batch) notify(t *Tracker, tr Transition) {
	b.mu.Lock()
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	b.log.Debug("tx transition",
		zap.String("id", tr.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)))
	rec := Record{TxID: tr.ID, Name: tr.Name, From: tr.From, To: tr.To}
	if tr.To == Failed {
		if err := t.Err(); err != nil {
			rec.Error = err.Error()
		}
	}
	b.record(rec)
	for _, fn := range listeners {
		fn(t, tr)
	}
}

func (b *Batch) record(rec Record) {
	if b.journal == nil {
		return
	}
	if err := b.journal.Record(b.id, rec); err != nil {
		b.log.Warn("journal write failed", zap.String("batch", b.id), zap.Error(err))
	}
}

// Batcher owns the current batch.
type Batcher struct {
	mu      sync.Mutex
	current *Batch
	journal Journal
	log     *zap.Logger
}

// Options configures a Batcher.
type Options struct {
	Journal Journal
	Logger  *zap.Logger
}

// NewBatcher creates a Batcher with an empty current batch.
func NewBatcher(opts Options) *Batcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Batcher{current: newBatch(opts.Journal, log), journal: opts.Journal, log: log}
}

// Current returns the active batch.
func (b *Batcher) Current() *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Rotate starts a new batch and returns the previous one.
func (b *Batcher) Rotate() *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.current
	b.current = newBatch(b.journal, b.log)
	return prev
}
