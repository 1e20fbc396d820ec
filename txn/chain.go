package txn

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
)

// SubmitTxnChain resolves txns into the current batch. Each built
// transaction's own nested descriptions are registered with the batch as
// soon as it is queued, before any of them is materialized, so observers
// see the whole tree early.
func (c *Context) SubmitTxnChain(ctx context.Context, txns []*TxDescription, opts QueueOptions) error {
	if !opts.chained {
		opts.chained = true
		next := opts.OnBuilt
		opts.OnBuilt = func(ctx context.Context, built *Context, res *BuildResult) error {
			if err := built.announceAddlTxns(ctx); err != nil {
				return err
			}
			if next != nil {
				return next(ctx, built, res)
			}
			return nil
		}
	}
	opts = opts.withTick(c.setup)

	// the anchor carries c's identity only, so resolution cannot touch c's
	// transaction material
	anchor := &Context{
		id:     c.id,
		name:   c.name,
		depth:  c.depth,
		setup:  c.setup,
		log:    c.log,
		diag:   c.diag,
		facade: Facade,
		state:  newState(),
	}
	return anchor.ResolveMultipleTxns(ctx, txns, opts)
}

func (c *Context) announceAddlTxns(ctx context.Context) error {
	nested := c.state.AddlTxns
	if len(nested) == 0 {
		return nil
	}
	entries := make([]batch.Entry, 0, len(nested))
	for _, d := range nested {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.ParentID = c.id
		d.Depth = c.depth + 1
		entries = append(entries, d.entry())
	}
	c.setup.batcher.Current().AddTxns(entries...)
	return c.setup.yield(ctx)
}

// ResolveMultipleTxns materializes, builds and queues each description in
// order, recursing into the nested transactions of each. A factory failure
// other than a not-needed error aborts the remaining descriptions.
func (c *Context) ResolveMultipleTxns(ctx context.Context, txns []*TxDescription, opts QueueOptions) error {
	b := c.setup.batcher.Current()
	for _, d := range txns {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.ParentID == "" {
			d.ParentID = c.id
			d.Depth = c.depth + 1
		}
		b.AddTxns(d.entry())
	}
	if err := c.setup.yield(ctx); err != nil {
		return err
	}

	for _, d := range txns {
		if err := c.resolveOne(ctx, b, d, opts); err != nil {
			return err
		}
		if err := c.setup.yield(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) resolveOne(ctx context.Context, b *batch.Batch, d *TxDescription, opts QueueOptions) error {
	t, ok := b.TxInfo(d.ID)
	if !ok {
		return fmt.Errorf("%w: %s vanished from the batch", ErrInconceivable, d.ID)
	}
	if t.State().IsTerminal() {
		c.log.Debug("nested tx already settled", zap.String("name", d.Name), zap.String("state", string(t.State())))
		return nil
	}
	if t.State() == batch.Pending {
		if err := t.Transition(batch.Building); err != nil {
			return err
		}
	}
	if d.Factory == nil {
		if d.Context != nil {
			err := fmt.Errorf("%w: %s", ErrUnexpectedContext, d.Name)
			_ = b.TxError(d.ID, err)
			return err
		}
		err := fmt.Errorf("%w: factory for %s", ErrNilParam, d.Name)
		_ = b.TxError(d.ID, err)
		return err
	}

	m := d.Factory(ctx)
	switch m.Kind() {
	case MaterializedAlreadyPresent:
		c.log.Info("nested tx not needed", zap.String("name", d.Name), zap.String("reason", m.Reason()))
		return b.AlreadyPresent(d.ID)
	case MaterializedFailed:
		_ = b.TxError(d.ID, m.Err())
		return fmt.Errorf("txn: materialize %s: %w", d.Name, m.Err())
	}

	tcx := m.Context()
	if tcx == nil {
		err := fmt.Errorf("%w: context from factory %s", ErrNilParam, d.Name)
		_ = b.TxError(d.ID, err)
		return err
	}
	if err := c.adopt(d, tcx); err != nil {
		_ = b.TxError(d.ID, err)
		c.setup.Release(tcx.id)
		return err
	}

	if opts.Fixup != nil {
		repl, proceed, err := opts.Fixup(ctx, d, tcx)
		if err != nil {
			_ = b.TxError(d.ID, err)
			return fmt.Errorf("txn: fixup %s: %w", d.Name, err)
		}
		if !proceed {
			c.setup.Release(tcx.id)
			return b.Cancel(d.ID, "cancelled by fixup")
		}
		if repl != nil && repl != tcx {
			c.setup.Release(tcx.id)
			if err := c.adopt(d, repl); err != nil {
				_ = b.TxError(d.ID, err)
				return err
			}
			tcx = repl
		}
	}

	if tcx.facade == Facade {
		// nothing of its own to build; its nested transactions carry on
		if err := b.AlreadyPresent(d.ID); err != nil {
			return err
		}
		defer c.setup.Release(tcx.id)
	}
	return tcx.BuildAndQueueAll(ctx, opts)
}

// adopt gives tcx the description's tracking id and chain position.
func (c *Context) adopt(d *TxDescription, tcx *Context) error {
	if err := c.setup.registry.rehome(tcx, d.ID); err != nil {
		return err
	}
	tcx.depth = d.Depth
	for _, nested := range tcx.state.AddlTxns {
		nested.ParentID = tcx.id
		nested.Depth = tcx.depth + 1
	}
	if tcx.name == "" {
		tcx.name = d.Name
	}
	tcx.log = c.setup.log.With(zap.String("tcx", d.ID))
	d.Context = tcx
	return nil
}
