package txn

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// payFactory materializes a context paying ada to dest from wallet spares.
func (f *fixture) payFactory(ada int64) Factory {
	return func(context.Context) Materialized {
		c := f.setup.NewContext("")
		if err := c.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(ada)))); err != nil {
			return Failed(err)
		}
		return Ready(c)
	}
}

func TestSubmitAll_FacadeWithNotNeeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(30)

	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	a := &TxDescription{Name: "a", Factory: func(context.Context) Materialized {
		return Failed(&TxNotNeededError{Reason: "charter exists"})
	}}
	b := &TxDescription{Name: "b", Factory: f.payFactory(3)}
	require.NoError(t, root.WithAddlTxns(a, b))
	require.NoError(t, root.SubmitAll(ctx, QueueOptions{}))

	states := f.setup.Batcher().Current().TxStates()
	assert.Equal(t, batch.AlreadyPresent, states[a.ID])
	assert.Equal(t, batch.Confirmed, states[b.ID])
	_, tracked := states[root.ID()]
	assert.False(t, tracked, "facades have no transaction to track")

	assert.Zero(t, f.setup.Registry().Len(), "the facade root is released with its nested txns")

	require.NotNil(t, b.Context)
	assert.Equal(t, b.ID, b.Context.ID())
	assert.Equal(t, "b", b.Context.Name())
	assert.Equal(t, 1, b.Context.Depth())
	assert.Nil(t, a.Context)
}

func TestSubmitAll_NestedChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(30)

	parent := f.setup.NewContext("parent")
	require.NoError(t, parent.AddOutput(ledger.NewTxOutput(f.wallet.Address(), ledger.NewValue(ledger.ADA(10)))))

	grandchild := &TxDescription{Name: "grandchild", Factory: f.payFactory(2)}
	child := &TxDescription{Name: "child", Factory: func(context.Context) Materialized {
		res, err := parent.BuildResult()
		if err != nil {
			return Failed(err)
		}
		c := f.setup.NewContext("child")
		if err := c.AddInput(res.Tx.OutputUtxos()[0], nil); err != nil {
			return Failed(err)
		}
		if err := c.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(3)))); err != nil {
			return Failed(err)
		}
		if err := c.IncludeAddlTxn("", grandchild); err != nil {
			return Failed(err)
		}
		return Ready(c)
	}}
	require.NoError(t, parent.IncludeAddlTxn("", child))

	var order []string
	err := parent.SubmitAll(ctx, QueueOptions{
		OnSubmitted: func(_ context.Context, c *Context, _ *batch.Tracker) { order = append(order, c.Name()) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"parent", "child", "grandchild"}, order)

	b := f.setup.Batcher().Current()
	for _, id := range []string{parent.ID(), child.ID, grandchild.ID} {
		tr, ok := b.TxInfo(id)
		require.True(t, ok)
		assert.Equal(t, batch.Confirmed, tr.State(), tr.Entry().Name)
		assert.True(t, f.emu.IsConfirmed(tr.TxID()), tr.Entry().Name)
	}

	tr, _ := b.TxInfo(grandchild.ID)
	assert.Equal(t, child.ID, tr.Entry().ParentID)
	assert.Equal(t, 2, tr.Entry().Depth)
	assert.Equal(t, 2, grandchild.Context.Depth())
	tr, _ = b.TxInfo(child.ID)
	assert.Equal(t, parent.ID(), tr.Entry().ParentID)
	assert.Zero(t, f.setup.Registry().Len(), "submitted contexts are released")
}

func TestSubmitAll_Journal(t *testing.T) {
	ctx := context.Background()
	j, err := batch.OpenBoltJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	f := newFixture(t, func(o *Options) { o.Batcher = batch.NewBatcher(batch.Options{Journal: j}) })
	f.fund(30)
	c := f.setup.NewContext("journaled")
	require.NoError(t, c.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(4)))))
	require.NoError(t, c.SubmitAll(ctx, QueueOptions{}))

	recs, err := j.History(f.setup.Batcher().Current().ID(), c.ID())
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, batch.Confirmed, recs[len(recs)-1].To)
}

func TestResolve_FixupCancels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(30)

	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	skip := &TxDescription{Name: "skip", Optional: true, Factory: f.payFactory(3)}
	keep := &TxDescription{Name: "keep", Factory: f.payFactory(4)}
	require.NoError(t, root.WithAddlTxns(skip, keep))

	err := root.BuildAndQueueAll(ctx, QueueOptions{
		Fixup: func(_ context.Context, d *TxDescription, c *Context) (*Context, bool, error) {
			return nil, d.Name != "skip", nil
		},
	})
	require.NoError(t, err)

	states := f.setup.Batcher().Current().TxStates()
	assert.Equal(t, batch.Cancelled, states[skip.ID])
	assert.Equal(t, batch.Built, states[keep.ID])
	assert.Len(t, f.chain.Queued(), 1)
}

func TestResolve_FixupReplaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(30)

	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	d := &TxDescription{Name: "pay", Factory: f.payFactory(3)}
	require.NoError(t, root.IncludeAddlTxn("", d))

	var replacement *Context
	err := root.BuildAndQueueAll(ctx, QueueOptions{
		Fixup: func(_ context.Context, _ *TxDescription, c *Context) (*Context, bool, error) {
			replacement = f.setup.NewContext("bigger")
			if err := replacement.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(7)))); err != nil {
				return nil, false, err
			}
			return replacement, true, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, replacement, d.Context)
	assert.Equal(t, d.ID, replacement.ID())

	res, err := replacement.BuildResult()
	require.NoError(t, err)
	assert.Equal(t, ledger.ADA(7), res.Tx.Body.Outputs[0].Value.Lovelace)
}

func TestResolve_FactoryFailureAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(30)

	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	boom := errors.New("charter not found")
	bad := &TxDescription{Name: "bad", Factory: func(context.Context) Materialized { return Failed(boom) }}
	later := &TxDescription{Name: "later", Factory: f.payFactory(3)}
	require.NoError(t, root.WithAddlTxns(bad, later))

	err := root.SubmitAll(ctx, QueueOptions{})
	assert.ErrorIs(t, err, boom)

	b := f.setup.Batcher().Current()
	states := b.TxStates()
	assert.Equal(t, batch.Failed, states[bad.ID])
	assert.Equal(t, batch.Pending, states[later.ID], "later entries are registered but never built")
	tr, _ := b.TxInfo(bad.ID)
	assert.ErrorIs(t, tr.Err(), boom)
}

func TestResolve_FailedWithoutCause(t *testing.T) {
	f := newFixture(t)
	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	d := &TxDescription{Name: "silent", Factory: func(context.Context) Materialized { return Failed(nil) }}

	err := root.ResolveMultipleTxns(context.Background(), []*TxDescription{d}, QueueOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilParam)
	assert.NotContains(t, err.Error(), "%!")

	tr, ok := f.setup.Batcher().Current().TxInfo(d.ID)
	require.True(t, ok)
	assert.Equal(t, batch.Failed, tr.State())
}

func TestResolve_UnexpectedContext(t *testing.T) {
	f := newFixture(t)
	root := f.setup.NewContext("root")
	d := &TxDescription{Name: "stale", Context: f.setup.NewContext("x")}
	err := root.ResolveMultipleTxns(context.Background(), []*TxDescription{d}, QueueOptions{})
	assert.ErrorIs(t, err, ErrUnexpectedContext)
}

func TestIncludeAddlTxn(t *testing.T) {
	f := newFixture(t)

	undecided := f.setup.NewContext("undecided")
	assert.ErrorIs(t, undecided.IncludeAddlTxn("x", &TxDescription{Factory: f.payFactory(1)}), ErrUndecided)

	root := f.setup.NewContext("root")
	require.NoError(t, root.Facade())
	assert.ErrorIs(t, root.IncludeAddlTxn("x", nil), ErrNilParam)
	assert.ErrorIs(t, root.IncludeAddlTxn("x", &TxDescription{}), ErrNilParam)

	ready := f.setup.NewContext("ready")
	d := &TxDescription{Context: ready}
	require.NoError(t, root.IncludeAddlTxn("wrapped", d))
	assert.Equal(t, "wrapped", d.Name)
	assert.Equal(t, ready.ID(), d.ID)
	assert.Nil(t, d.Context)
	require.NotNil(t, d.Factory)
	m := d.Factory(context.Background())
	assert.Equal(t, MaterializedReady, m.Kind())
	assert.Equal(t, ready, m.Context())
	assert.Equal(t, root.ID(), d.ParentID)
	assert.Equal(t, 1, d.Depth)

	again := &TxDescription{ID: d.ID, Name: "replacement", Factory: f.payFactory(1)}
	require.NoError(t, root.IncludeAddlTxn("", again))
	require.Len(t, root.State().AddlTxns, 1)
	got, ok := root.State().AddlTxn(d.ID)
	require.True(t, ok)
	assert.Equal(t, "replacement", got.Name)
}

func TestMaterialized_Kinds(t *testing.T) {
	assert.Equal(t, MaterializedAlreadyPresent, AlreadyPresent("done").Kind())
	assert.Equal(t, "done", AlreadyPresent("done").Reason())

	notNeeded := Failed(&TxNotNeededError{Reason: "exists"})
	assert.Equal(t, MaterializedAlreadyPresent, notNeeded.Kind())
	assert.Contains(t, notNeeded.Reason(), "exists")

	pending := Failed(&AlreadyPendingError{TxNotNeededError: TxNotNeededError{Reason: "in flight"}, PendingID: "abc"})
	assert.Equal(t, MaterializedAlreadyPresent, pending.Kind())
	assert.ErrorIs(t, pending.Err(), ErrTxNotNeeded)

	assert.Equal(t, MaterializedFailed, Failed(nil).Kind())
	assert.ErrorIs(t, Failed(nil).Err(), ErrNilParam)

	hard := Failed(errors.New("boom"))
	assert.Equal(t, MaterializedFailed, hard.Kind())
	assert.False(t, IsTxNotNeeded(hard.Err()))
}

func TestSetup_Release(t *testing.T) {
	f := newFixture(t)
	r := f.setup.Registry()
	parent := f.setup.NewContext("abandoned")
	child := parent.NewChild("child")
	require.Equal(t, 2, r.Len())

	f.setup.Release(parent.ID())
	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(parent.ID())
	assert.False(t, ok)
	_, ok = child.Parent()
	assert.False(t, ok, "a released parent no longer resolves")
}

func TestRegistry_Rehome(t *testing.T) {
	f := newFixture(t)
	r := f.setup.Registry()
	parent := f.setup.NewContext("parent")
	child := parent.NewChild("child")
	other := f.setup.NewContext("other")

	require.NoError(t, r.rehome(parent, "fixed-id"))
	assert.Equal(t, "fixed-id", parent.ID())
	p, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, parent, p)

	assert.ErrorIs(t, r.rehome(other, "fixed-id"), ErrDuplicateID)
	assert.Equal(t, 3, r.Len())
	r.Remove(other.ID())
	assert.Equal(t, 2, r.Len())
}
