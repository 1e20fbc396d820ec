package utxo

import (
	"errors"
	"fmt"
)

var (
	// ErrBadSpecifier indicates a token specifier with a malformed combination of parts.
	ErrBadSpecifier = errors.New("utxo: bad token specifier")

	// ErrNotFound indicates a must-find search matched nothing.
	ErrNotFound = errors.New("utxo: not found")

	// ErrNoSearchScope indicates a search was given neither an address nor a wallet.
	ErrNoSearchScope = errors.New("utxo: no address or wallet to search")
)

// NotFoundError reports a failed must-find search: what was sought,
// where it was looked for, and the caller's hint.
type NotFoundError struct {
	Name  string
	Scope string
	Hint  string
	Count int // utxos examined
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("utxo: no '%s' found in %s", e.Name, e.Scope)
	if e.Count > 0 {
		msg += fmt.Sprintf(" (examined %d utxos)", e.Count)
	}
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
