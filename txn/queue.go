package txn

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// ErrorHandler sees a script rejection. Returning true completes the queue
// call without error.
type ErrorHandler func(ctx context.Context, c *Context, ve *ledger.ValidationError) bool

// Fixup runs on each materialized nested context before it is built. It
// returns a replacement context (nil keeps c) and whether to proceed; false
// cancels the transaction.
type Fixup func(ctx context.Context, d *TxDescription, c *Context) (*Context, bool, error)

// QueueOptions controls BuildAndQueue and the chain pipeline.
type QueueOptions struct {
	BuildOptions

	OnError     ErrorHandler
	OnBuilt     func(ctx context.Context, c *Context, res *BuildResult) error
	OnSubmitted func(ctx context.Context, c *Context, t *batch.Tracker)
	Fixup       Fixup

	// set once the chain hooks are installed
	chained bool
	ticking bool
}

// confirmer is a simulated network that reports what a tick applied.
type confirmer interface {
	IsConfirmed(id ledger.TxID) bool
}

// withTick advances a simulated network one slot after each submission, so
// a transaction spending its predecessor's outputs finds them confirmed.
// Confirmed transactions move to Confirmed in the batch; on a live network
// that transition is left to the caller.
func (o QueueOptions) withTick(s *Setup) QueueOptions {
	if o.ticking {
		return o
	}
	tk, ok := s.ticker()
	if !ok {
		return o
	}
	o.ticking = true
	next := o.OnSubmitted
	o.OnSubmitted = func(ctx context.Context, c *Context, t *batch.Tracker) {
		tk.Tick(1)
		if cf, ok := tk.(confirmer); ok && cf.IsConfirmed(t.TxID()) {
			if err := s.batcher.Current().Confirm(t.ID()); err != nil {
				c.log.Warn("confirm failed", zap.String("name", c.Name()), zap.Error(err))
			}
		}
		if next != nil {
			next(ctx, c, t)
		}
	}
	return o
}

func (c *Context) track(b *batch.Batch) (*batch.Tracker, error) {
	t := b.AddTxns(batch.Entry{
		ID:       c.id,
		Name:     c.Name(),
		ParentID: c.parentID,
		Depth:    c.depth,
	})[0]
	if t.State() == batch.Pending {
		if err := t.Transition(batch.Building); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// fail records err against c's batch entry and releases c.
func (c *Context) fail(b *batch.Batch, err error) {
	_ = b.TxError(c.id, err)
	c.setup.Release(c.id)
}

// BuildAndQueue builds c and hands the transaction to the current batch.
// Nested transactions are not resolved; see BuildAndQueueAll.
func (c *Context) BuildAndQueue(ctx context.Context, opts QueueOptions) error {
	b := c.setup.batcher.Current()
	if _, err := c.track(b); err != nil {
		return err
	}

	res, err := c.Build(ctx, opts.BuildOptions)
	if err != nil {
		c.fail(b, err)
		return err
	}
	if ve := res.Tx.Error; ve != nil {
		c.fail(b, ve)
		if opts.OnError != nil && opts.OnError(ctx, c, ve) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrValidationFailed, c.Name(), ve)
	}
	for _, pkh := range res.Signers {
		if !c.builder.HasSigner(pkh) {
			err := fmt.Errorf("%w: signer %s of %s missing from the builder", ErrInconceivable, pkh.Hex(), c.Name())
			c.fail(b, err)
			return err
		}
	}

	built := &batch.BuiltTx{
		Tx:             res.Tx,
		WalletMustSign: res.WalletMustSign,
		OtherSigners:   res.OtherSigners,
	}
	if res.Wallet != nil {
		built.Wallet = res.Wallet
	}
	onSubmitted := opts.OnSubmitted
	built.OnSubmitted = func(ctx context.Context, t *batch.Tracker) {
		if onSubmitted != nil {
			onSubmitted(ctx, c, t)
		}
		c.setup.Release(c.id)
	}
	if err := b.TxBuilt(c.id, built); err != nil {
		return err
	}
	if c.setup.chain != nil {
		c.setup.chain.With(res.Tx)
	}
	c.log.Info("tx queued",
		zap.String("name", c.Name()),
		zap.String("txid", res.Tx.ID().Hex()),
		zap.Int("depth", c.depth))

	if opts.OnBuilt != nil {
		return opts.OnBuilt(ctx, c, res)
	}
	return nil
}

// BuildAndQueueAll queues c, unless it is a facade, then resolves its
// nested transactions depth-first.
func (c *Context) BuildAndQueueAll(ctx context.Context, opts QueueOptions) error {
	if c.facade == Facade {
		if len(c.state.AddlTxns) == 0 {
			c.log.Warn("facade has no nested transactions", zap.String("name", c.Name()))
			return nil
		}
	} else {
		opts = opts.withTick(c.setup)
		if err := c.BuildAndQueue(ctx, opts); err != nil {
			return err
		}
		if c.built != nil && c.built.Tx.Error != nil {
			// handled by OnError; dependents cannot be built
			return nil
		}
	}
	if len(c.state.AddlTxns) == 0 {
		return nil
	}
	return c.SubmitTxnChain(ctx, c.state.AddlTxns, opts)
}

// IncludeAddlTxn registers a nested transaction to resolve after c is
// queued. A description carrying a ready Context and no Factory is wrapped
// in a Factory returning it. The same id replaces an earlier description.
func (c *Context) IncludeAddlTxn(name string, d *TxDescription) error {
	if d == nil {
		return fmt.Errorf("%w: description", ErrNilParam)
	}
	if c.facade == Undecided {
		return fmt.Errorf("%w: %s", ErrUndecided, c.Name())
	}
	if name != "" {
		d.Name = name
	}
	if d.Factory == nil {
		if d.Context == nil {
			return fmt.Errorf("%w: factory for %s", ErrNilParam, d.Name)
		}
		ready := d.Context
		d.Context = nil
		if d.ID == "" {
			d.ID = ready.id
		}
		d.Factory = func(context.Context) Materialized { return Ready(ready) }
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.ParentID = c.id
	d.Depth = c.depth + 1
	c.state.putAddlTxn(d)
	return nil
}

// WithAddlTxns includes each description under its own name.
func (c *Context) WithAddlTxns(descs ...*TxDescription) error {
	for _, d := range descs {
		if d == nil {
			return fmt.Errorf("%w: description", ErrNilParam)
		}
		if err := c.IncludeAddlTxn(d.Name, d); err != nil {
			return err
		}
	}
	return nil
}

// SubmitAll queues c and its nested transactions, then signs and submits
// the current batch.
func (c *Context) SubmitAll(ctx context.Context, opts QueueOptions) error {
	if err := c.BuildAndQueueAll(ctx, opts); err != nil {
		return err
	}
	if c.facade == Facade {
		c.setup.Release(c.id)
	}
	return c.setup.batcher.Current().SignAndSubmitAll(ctx, c.setup.submitter())
}
