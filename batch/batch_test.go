package batch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

func TestCanTransition(t *testing.T) {
	for _, tc := range []struct {
		from, to State
		ok       bool
	}{
		{Pending, Building, true},
		{Pending, Built, false},
		{Building, Built, true},
		{Building, AlreadyPresent, true},
		{Building, Cancelled, true},
		{Building, Failed, true},
		{Built, Submitted, true},
		{Built, Signing, true},
		{Signing, Submitted, true},
		{Submitted, Confirmed, true},
		{AlreadyPresent, Building, false},
		{Cancelled, Built, false},
		{Confirmed, Failed, false},
		{Failed, Building, false},
	} {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, AlreadyPresent.IsTerminal())
	assert.True(t, Cancelled.IsSkipped())
	assert.False(t, Built.IsTerminal())
}

func TestTracker_Transition(t *testing.T) {
	b := NewBatcher(Options{}).Current()
	tr := b.AddTxns(Entry{ID: "a", Name: "mint charter"})[0]
	assert.Equal(t, Pending, tr.State())

	require.NoError(t, tr.Transition(Building))
	require.NoError(t, tr.Transition(Building), "same state is a no-op")
	err := tr.Transition(Confirmed)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, Building, tr.State())

	h := tr.History()
	require.Len(t, h, 1)
	assert.Equal(t, Pending, h[0].From)
	assert.Equal(t, Building, h[0].To)
}

func TestBatch_AddTxns(t *testing.T) {
	b := NewBatcher(Options{}).Current()
	got := b.AddTxns(Entry{ID: "a"}, Entry{Name: "no id"}, Entry{ID: "a", Name: "again"})
	require.Len(t, got, 3)
	assert.Same(t, got[0], got[2], "re-adding keeps the tracker")
	assert.NotEmpty(t, got[1].ID())
	assert.Len(t, b.Trackers(), 2)

	info, ok := b.TxInfo("a")
	require.True(t, ok)
	assert.Same(t, got[0], info)
	_, ok = b.TxInfo("nope")
	assert.False(t, ok)

	assert.Equal(t, map[string]State{"a": Pending, got[1].ID(): Pending}, b.TxStates())
}

func TestBatch_ChangeTxID(t *testing.T) {
	b := NewBatcher(Options{}).Current()
	b.AddTxns(Entry{ID: "x"}, Entry{ID: "y"}, Entry{ID: "z"})
	require.NoError(t, b.ChangeTxID("y", "y2"))

	_, ok := b.TxInfo("y")
	assert.False(t, ok)
	tr, ok := b.TxInfo("y2")
	require.True(t, ok)
	assert.Equal(t, "y2", tr.ID())

	ids := []string{}
	for _, tr := range b.Trackers() {
		ids = append(ids, tr.ID())
	}
	assert.Equal(t, []string{"x", "y2", "z"}, ids, "position is kept")

	assert.ErrorIs(t, b.ChangeTxID("missing", "m"), ErrUnknownTx)
	assert.ErrorIs(t, b.ChangeTxID("x", "z"), ErrDuplicateTx)
	assert.NoError(t, b.ChangeTxID("x", "x"))
}

func TestBatch_OutcomeHelpers(t *testing.T) {
	b := NewBatcher(Options{}).Current()
	b.AddTxns(Entry{ID: "present"}, Entry{ID: "cancel", Optional: true}, Entry{ID: "fail"}, Entry{ID: "built"})
	for _, id := range []string{"present", "cancel", "fail", "built"} {
		tr, _ := b.TxInfo(id)
		require.NoError(t, tr.Transition(Building))
	}

	require.NoError(t, b.AlreadyPresent("present"))
	require.NoError(t, b.Cancel("cancel", "fixup declined"))
	boom := errors.New("boom")
	require.NoError(t, b.TxError("fail", boom))
	require.NoError(t, b.TxBuilt("built", &BuiltTx{Tx: &ledger.Tx{}}))

	states := b.TxStates()
	assert.Equal(t, AlreadyPresent, states["present"])
	assert.Equal(t, Cancelled, states["cancel"])
	assert.Equal(t, Failed, states["fail"])
	assert.Equal(t, Built, states["built"])

	failed, _ := b.TxInfo("fail")
	assert.ErrorIs(t, failed.Err(), boom)

	assert.ErrorIs(t, b.TxBuilt("built", nil), ErrNilParam)
	assert.ErrorIs(t, b.AlreadyPresent("nope"), ErrUnknownTx)
	assert.ErrorIs(t, b.AlreadyPresent("built"), ErrIllegalTransition)
}

func TestBatch_Listeners(t *testing.T) {
	b := NewBatcher(Options{}).Current()
	var seen []Transition
	b.OnTransition(func(t *Tracker, tr Transition) { seen = append(seen, tr) })

	tr := b.AddTxns(Entry{ID: "a", Name: "A"})[0]
	require.NoError(t, tr.Transition(Building))
	require.NoError(t, b.AlreadyPresent("a"))

	require.Len(t, seen, 2)
	assert.Equal(t, "A", seen[1].Name)
	assert.Equal(t, AlreadyPresent, seen[1].To)
}

func TestBatch_CancelLogLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := NewBatcher(Options{Logger: zap.New(core)}).Current()
	b.AddTxns(Entry{ID: "opt", Optional: true}, Entry{ID: "req"})
	require.NoError(t, b.Cancel("opt", "x"))
	require.NoError(t, b.Cancel("req", "y"))

	entries := logs.FilterMessage("tx cancelled").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestBatcher_Rotate(t *testing.T) {
	br := NewBatcher(Options{})
	first := br.Current()
	first.AddTxns(Entry{ID: "a"})
	prev := br.Rotate()
	assert.Same(t, first, prev)
	assert.NotEqual(t, first.ID(), br.Current().ID())
	assert.Empty(t, br.Current().Trackers())
}

// --- submission ---

type fakeSubmitter struct {
	order []ledger.TxID
	err   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error) {
	if f.err != nil {
		return ledger.TxID{}, f.err
	}
	f.order = append(f.order, tx.ID())
	return tx.ID(), nil
}

type keySigner struct{ key *ec.PrivateKey }

func (k keySigner) Sign(ctx context.Context, tx *ledger.Tx) ([]ledger.Signature, error) {
	s, err := ledger.SignTxID(tx.ID(), k.key)
	if err != nil {
		return nil, err
	}
	return []ledger.Signature{s}, nil
}

// signedTx returns an unsigned tx spending a key-locked utxo of key.
func signedTx(t *testing.T, key *ec.PrivateKey, seed byte) *ledger.Tx {
	t.Helper()
	addr := ledger.NewKeyAddress(ledger.Testnet, ledger.PubKeyHashOf(key.PubKey()))
	in := ledger.NewTxInput(ledger.TxOutputID{TxID: ledger.TxID{seed}}, ledger.NewTxOutput(addr, ledger.NewValue(ledger.ADA(10))))
	b := ledger.NewTxBuilder(nil)
	require.NoError(t, b.Spend(in, nil))
	tx, err := b.BuildUnsafe(ledger.BuildOptions{ChangeAddress: addr})
	require.NoError(t, err)
	return tx
}

func buildingTracker(t *testing.T, b *Batch, id string) {
	t.Helper()
	tr := b.AddTxns(Entry{ID: id, Name: id})[0]
	require.NoError(t, tr.Transition(Building))
}

func TestSignAndSubmitAll(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	b := NewBatcher(Options{}).Current()

	parent, child := signedTx(t, key, 1), signedTx(t, key, 2)
	var submitted []string
	onSubmitted := func(ctx context.Context, tr *Tracker) { submitted = append(submitted, tr.ID()) }

	buildingTracker(t, b, "parent")
	buildingTracker(t, b, "skipped")
	buildingTracker(t, b, "child")
	require.NoError(t, b.TxBuilt("parent", &BuiltTx{Tx: parent, Wallet: keySigner{key}, WalletMustSign: true, OnSubmitted: onSubmitted}))
	require.NoError(t, b.AlreadyPresent("skipped"))
	require.NoError(t, b.TxBuilt("child", &BuiltTx{Tx: child, Wallet: keySigner{key}, WalletMustSign: true, OnSubmitted: onSubmitted}))

	sub := &fakeSubmitter{}
	require.NoError(t, b.SignAndSubmitAll(context.Background(), sub))
	assert.Equal(t, []ledger.TxID{parent.ID(), child.ID()}, sub.order)
	assert.Equal(t, []string{"parent", "child"}, submitted)

	tr, _ := b.TxInfo("parent")
	assert.Equal(t, Submitted, tr.State())
	assert.Equal(t, parent.ID(), tr.TxID())
	assert.Empty(t, parent.MissingSignatures())

	h := tr.History()
	assert.Equal(t, Signing, h[len(h)-2].To)

	require.NoError(t, b.Confirm("parent"))
	assert.Equal(t, Confirmed, tr.State())
}

func TestSignAndSubmitAll_StopsAtFirstFailure(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	b := NewBatcher(Options{}).Current()

	buildingTracker(t, b, "unsigned")
	buildingTracker(t, b, "later")
	require.NoError(t, b.TxBuilt("unsigned", &BuiltTx{Tx: signedTx(t, key, 1)}))
	require.NoError(t, b.TxBuilt("later", &BuiltTx{Tx: signedTx(t, key, 2), Wallet: keySigner{key}, WalletMustSign: true}))

	sub := &fakeSubmitter{}
	err = b.SignAndSubmitAll(context.Background(), sub)
	require.ErrorIs(t, err, ErrMissingSignatures)
	assert.Empty(t, sub.order)

	states := b.TxStates()
	assert.Equal(t, Failed, states["unsigned"])
	assert.Equal(t, Built, states["later"])
}

func TestSignAndSubmitAll_SubmitError(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	b := NewBatcher(Options{}).Current()
	buildingTracker(t, b, "a")
	require.NoError(t, b.TxBuilt("a", &BuiltTx{Tx: signedTx(t, key, 1), Wallet: keySigner{key}, WalletMustSign: true}))

	rejected := errors.New("rejected")
	err = b.SignAndSubmitAll(context.Background(), &fakeSubmitter{err: rejected})
	assert.ErrorIs(t, err, rejected)
	tr, _ := b.TxInfo("a")
	assert.Equal(t, Failed, tr.State())
	assert.ErrorIs(t, tr.Err(), rejected)

	assert.ErrorIs(t, b.SignAndSubmitAll(context.Background(), nil), ErrNilParam)
}

// --- journal ---

func tempJournal(t *testing.T) *BoltJournal {
	t.Helper()
	j, err := OpenBoltJournal(filepath.Join(t.TempDir(), "sub", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestBoltJournal_RecordsLifecycle(t *testing.T) {
	j := tempJournal(t)
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)

	b := NewBatcher(Options{Journal: j}).Current()
	buildingTracker(t, b, "a")
	buildingTracker(t, b, "b")
	require.NoError(t, b.ChangeTxID("b", "b2"))
	require.NoError(t, b.AlreadyPresent("b2"))
	tx := signedTx(t, key, 1)
	require.NoError(t, b.TxBuilt("a", &BuiltTx{Tx: tx}))

	entries, err := j.Entries(b.ID())
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.False(t, e.At.IsZero())
	}

	hist, err := j.History(b.ID(), "a")
	require.NoError(t, err)
	var states []State
	var hex string
	for _, r := range hist {
		if r.From != r.To {
			states = append(states, r.To)
		}
		if r.TxHex != "" {
			hex = r.TxHex
		}
	}
	assert.Equal(t, []State{Pending, Building, Built}, states)
	assert.Equal(t, tx.Hex(), hex)

	renamed, err := j.History(b.ID(), "b2")
	require.NoError(t, err)
	require.NotEmpty(t, renamed)
	assert.Equal(t, "renamed from b", renamed[0].Note)

	batches, err := j.Batches()
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID()}, batches)
}

func TestBoltJournal_RecordsErrors(t *testing.T) {
	j := tempJournal(t)
	b := NewBatcher(Options{Journal: j}).Current()
	buildingTracker(t, b, "a")
	require.NoError(t, b.TxError("a", errors.New("script failed")))

	hist, err := j.History(b.ID(), "a")
	require.NoError(t, err)
	last := hist[len(hist)-1]
	assert.Equal(t, Failed, last.To)
	assert.Equal(t, "script failed", last.Error)
}

func TestBoltJournal_UnknownBatch(t *testing.T) {
	j := tempJournal(t)
	entries, err := j.Entries("nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBoltJournal_Closed(t *testing.T) {
	j, err := OpenBoltJournal(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.ErrorIs(t, j.Record("b", Record{}), ErrJournalClosed)
}
