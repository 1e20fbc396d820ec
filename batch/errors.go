package batch

import "errors"

var (
	// ErrIllegalTransition indicates a state change the lifecycle does not allow.
	ErrIllegalTransition = errors.New("batch: illegal state transition")

	// ErrUnknownTx indicates no tracked entry has the given id.
	ErrUnknownTx = errors.New("batch: unknown transaction")

	// ErrDuplicateTx indicates an id is already tracked.
	ErrDuplicateTx = errors.New("batch: transaction id already tracked")

	// ErrNotBuilt indicates an operation needs a built transaction.
	ErrNotBuilt = errors.New("batch: transaction not built")

	// ErrMissingSignatures indicates a transaction still lacks required signatures at submit time.
	ErrMissingSignatures = errors.New("batch: missing signatures")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("batch: required parameter is nil")

	// ErrJournalClosed indicates the journal database is closed.
	ErrJournalClosed = errors.New("batch: journal closed")
)
