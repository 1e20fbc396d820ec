package ledger

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")

	// ErrInsufficientFunds indicates the inputs and spare utxos cannot cover outputs and fees.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrDuplicateInput indicates the same utxo was spent twice in one transaction.
	ErrDuplicateInput = errors.New("ledger: utxo already spent in this transaction")

	// ErrMissingRedeemer indicates a script input or mint was added without redeemer data.
	ErrMissingRedeemer = errors.New("ledger: missing redeemer")

	// ErrMissingScript indicates no validator is attached or referenced for a script hash.
	ErrMissingScript = errors.New("ledger: missing script")

	// ErrOutputBelowMinimum indicates an output carries less lovelace than its min-utxo value.
	ErrOutputBelowMinimum = errors.New("ledger: output lovelace below minimum")

	// ErrInvalidValue indicates a value has negative components where none are allowed.
	ErrInvalidValue = errors.New("ledger: invalid value")

	// ErrNoCollateral indicates scripts are executed but no pure-ADA collateral is available.
	ErrNoCollateral = errors.New("ledger: no suitable collateral")

	// ErrInvalidAddress indicates an address string or byte form is malformed.
	ErrInvalidAddress = errors.New("ledger: invalid address")

	// ErrInvalidTxID indicates a transaction id is not 32 bytes of hex.
	ErrInvalidTxID = errors.New("ledger: invalid transaction id")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("ledger: signing failed")

	// ErrInvalidValidity indicates the validity interval is empty or inverted.
	ErrInvalidValidity = errors.New("ledger: invalid validity interval")
)

var (
	// ErrFeeNotConverged indicates fee estimation kept growing past the iteration limit.
	ErrFeeNotConverged = errors.New("ledger: fee estimation did not converge")

	// ErrBudgetExceeded indicates script execution exceeds the per-transaction limit.
	ErrBudgetExceeded = errors.New("ledger: execution budget exceeded")
)
