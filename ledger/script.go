package ledger

import (
	"fmt"
	"strings"
)

// Script is compiled on-chain code identified by its hash.
type Script interface {
	Hash() ScriptHash
	Bytes() []byte
}

// Validator is a script the builder can evaluate against a transaction.
// Compilation and caching of validators live outside this module; anything
// with a hash and an evaluator can be attached.
type Validator interface {
	Script

	// Evaluate runs the script for one redeemer. It returns the measured
	// execution cost, any trace lines, and a *ScriptError if the script
	// rejects the transaction.
	Evaluate(sc *ScriptContext) (Cost, []string, error)
}

// ScriptContext is what a validator sees when it runs.
type ScriptContext struct {
	Tx       *TxBody
	Purpose  RedeemerPurpose
	Index    int
	Redeemer []byte
	Spending *TxInput // set for spending purpose
	Policy   PolicyID // set for minting purpose
}

// ScriptError is returned by a validator that rejects a transaction.
// Stack holds script-engine frames, innermost last.
type ScriptError struct {
	Message string
	Stack   []string
}

func (e *ScriptError) Error() string { return e.Message }

// ValidationError is attached to a built transaction whose scripts failed.
// It is data, not a Go error returned from the build.
type ValidationError struct {
	Message    string
	Purpose    RedeemerPurpose
	Index      int
	ScriptHash ScriptHash
	Logs       []string
	Stack      []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: %s[%d] script %s failed: %s",
		e.Purpose, e.Index, e.ScriptHash.Hex()[:12], e.Message)
}

// Detail renders the message, logs and stack on separate lines.
func (e *ValidationError) Detail() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, l := range e.Logs {
		sb.WriteString("\n  log: ")
		sb.WriteString(l)
	}
	for _, f := range e.Stack {
		sb.WriteString("\n  at ")
		sb.WriteString(f)
	}
	return sb.String()
}

// HashScript computes the script hash of raw script bytes.
func HashScript(code []byte) ScriptHash {
	return ScriptHash(Blake2b224([]byte{0x03}, code))
}

// PolicyOf returns the policy id of a minting validator.
func PolicyOf(s Script) PolicyID { return PolicyID(s.Hash()) }

// FuncValidator is a validator backed by a Go function. Code identifies the
// script and determines its hash; Cost is reported for every execution.
type FuncValidator struct {
	Code []byte
	Cost Cost
	Fn   func(sc *ScriptContext) ([]string, error)
}

// Hash returns the script hash of Code.
func (f *FuncValidator) Hash() ScriptHash { return HashScript(f.Code) }

// Bytes returns Code.
func (f *FuncValidator) Bytes() []byte { return f.Code }

// Evaluate calls Fn. A nil Fn accepts every transaction.
func (f *FuncValidator) Evaluate(sc *ScriptContext) (Cost, []string, error) {
	if f.Fn == nil {
		return f.Cost, nil, nil
	}
	logs, err := f.Fn(sc)
	return f.Cost, logs, err
}
