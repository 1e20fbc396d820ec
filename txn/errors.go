package txn

import (
	"errors"
	"fmt"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("txn: required parameter is nil")

	// ErrFacade indicates a transaction-building call on a facade context.
	ErrFacade = errors.New("txn: context is a facade and holds no transaction of its own")

	// ErrNotFacadeable indicates Facade was called on a context that already
	// holds transaction material or has a parent.
	ErrNotFacadeable = errors.New("txn: context cannot become a facade")

	// ErrUndecided indicates nested transactions were added before the
	// context was committed to being a facade or a real transaction.
	ErrUndecided = errors.New("txn: facade status undecided (call Facade first)")

	// ErrAlreadyBuilt indicates a mutation after Build.
	ErrAlreadyBuilt = errors.New("txn: transaction already built")

	// ErrNotBuilt indicates an accessor that needs a built transaction.
	ErrNotBuilt = errors.New("txn: transaction not built")

	// ErrMissingRedeemer indicates redeemer info without redeemer data.
	ErrMissingRedeemer = errors.New("txn: redeemer info has no data")

	// ErrCollateralNotPure indicates a collateral utxo carrying native tokens.
	ErrCollateralNotPure = errors.New("txn: collateral must hold only ADA")

	// ErrCollateralSet indicates a second collateral input.
	ErrCollateralSet = errors.New("txn: collateral already set")

	// ErrFutureDateSet indicates FutureDate was called twice.
	ErrFutureDateSet = errors.New("txn: future date already set")

	// ErrValiditySet indicates FutureDate after the window was fixed.
	ErrValiditySet = errors.New("txn: validity window already set")

	// ErrNoSigner indicates Build without a wallet or explicit signers.
	ErrNoSigner = errors.New("txn: wallet or explicit signers required")

	// ErrNoSeedUtxo indicates UUT minting without a seed utxo.
	ErrNoSeedUtxo = errors.New("txn: no seed utxo")

	// ErrBuildFailed indicates the underlying builder could not assemble the transaction.
	ErrBuildFailed = errors.New("txn: build failed")

	// ErrValidationFailed indicates a built transaction was rejected by a script.
	ErrValidationFailed = errors.New("txn: transaction failed validation")

	// ErrInconceivable indicates an internal consistency check failed; it
	// points at a bug in this package, not in the caller.
	ErrInconceivable = errors.New("txn: inconceivable")

	// ErrUnexpectedContext indicates a pending description carrying a
	// materialized context and no factory.
	ErrUnexpectedContext = errors.New("txn: description already materialized")

	// ErrDuplicateID indicates a context id already registered.
	ErrDuplicateID = errors.New("txn: context id already registered")

	// ErrTxNotNeeded is matched by TxNotNeededError and AlreadyPendingError.
	ErrTxNotNeeded = errors.New("txn: transaction not needed")
)

// TxNotNeededError signals that the effect of a transaction already exists
// on-chain. Factories return it (inside Failed) to skip their transaction.
type TxNotNeededError struct {
	Reason string
}

func (e *TxNotNeededError) Error() string {
	if e.Reason == "" {
		return ErrTxNotNeeded.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTxNotNeeded, e.Reason)
}

func (e *TxNotNeededError) Is(target error) bool { return target == ErrTxNotNeeded }

// AlreadyPendingError is a TxNotNeededError whose effect is being produced
// by an attempt that is already in flight.
type AlreadyPendingError struct {
	TxNotNeededError
	PendingID string
}

func (e *AlreadyPendingError) Error() string {
	return fmt.Sprintf("txn: already pending (%s): %s", e.PendingID, e.Reason)
}

func (e *AlreadyPendingError) Unwrap() error { return &e.TxNotNeededError }

// IsTxNotNeeded reports whether err (or anything it wraps) says the
// transaction is not needed.
func IsTxNotNeeded(err error) bool {
	var nn *TxNotNeededError
	return errors.As(err, &nn)
}

// BuildError is a hard builder failure with the context dump attached.
type BuildError struct {
	Name   string
	Cause  error
	Detail string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", ErrBuildFailed, e.Name, e.Cause)
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Cause }

func (e *BuildError) Is(target error) bool { return target == ErrBuildFailed }
