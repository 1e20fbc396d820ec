package txn

import (
	"context"
	"fmt"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
)

// Factory materializes the context of a nested transaction when the
// chain pipeline reaches it.
type Factory func(ctx context.Context) Materialized

// TxDescription is a nested transaction waiting to be resolved.
type TxDescription struct {
	ID          string
	Name        string
	Description string
	MoreInfo    string
	Optional    bool
	ParentID    string
	Depth       int

	Factory Factory
	// Context is set once the factory has run.
	Context *Context
}

func (d *TxDescription) entry() batch.Entry {
	return batch.Entry{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		MoreInfo:    d.MoreInfo,
		ParentID:    d.ParentID,
		Depth:       d.Depth,
		Optional:    d.Optional,
	}
}

// MaterializedKind tells what a Factory produced.
type MaterializedKind uint8

const (
	MaterializedReady MaterializedKind = iota
	MaterializedAlreadyPresent
	MaterializedFailed
)

func (k MaterializedKind) String() string {
	switch k {
	case MaterializedReady:
		return "ready"
	case MaterializedAlreadyPresent:
		return "alreadyPresent"
	case MaterializedFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Materialized is the outcome of a Factory.
type Materialized struct {
	kind   MaterializedKind
	tcx    *Context
	reason string
	err    error
}

// Ready wraps a context to build.
func Ready(c *Context) Materialized { return Materialized{kind: MaterializedReady, tcx: c} }

// AlreadyPresent reports that the transaction's effect already exists.
func AlreadyPresent(reason string) Materialized {
	return Materialized{kind: MaterializedAlreadyPresent, reason: reason}
}

// Failed reports a factory error. A *TxNotNeededError is treated as
// AlreadyPresent; anything else aborts the resolution. A nil err is
// replaced with ErrNilParam.
func Failed(err error) Materialized {
	if err == nil {
		err = fmt.Errorf("%w: failure cause", ErrNilParam)
	}
	return Materialized{kind: MaterializedFailed, err: err}
}

// Kind returns the outcome, folding not-needed failures into
// MaterializedAlreadyPresent.
func (m Materialized) Kind() MaterializedKind {
	if m.kind == MaterializedFailed && IsTxNotNeeded(m.err) {
		return MaterializedAlreadyPresent
	}
	return m.kind
}

// Context returns the ready context.
func (m Materialized) Context() *Context { return m.tcx }

// Err returns the factory error.
func (m Materialized) Err() error { return m.err }

// Reason explains an AlreadyPresent outcome.
func (m Materialized) Reason() string {
	if m.reason == "" && m.err != nil {
		return m.err.Error()
	}
	return m.reason
}
