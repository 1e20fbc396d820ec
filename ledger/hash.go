package ledger

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	// HashLen is the byte length of key hashes, script hashes and policy ids.
	HashLen = 28

	// TxIDLen is the byte length of a transaction id.
	TxIDLen = 32
)

// PubKeyHash identifies a signing key (blake2b-224 of the public key).
type PubKeyHash [HashLen]byte

// ScriptHash identifies a validator script.
type ScriptHash [HashLen]byte

// PolicyID identifies a minting policy; it is the hash of the policy script.
type PolicyID [HashLen]byte

// TxID identifies a transaction (blake2b-256 of its encoded body).
type TxID [TxIDLen]byte

func (h PubKeyHash) Hex() string    { return hex.EncodeToString(h[:]) }
func (h PubKeyHash) String() string { return h.Hex() }
func (h ScriptHash) Hex() string    { return hex.EncodeToString(h[:]) }
func (h ScriptHash) String() string { return h.Hex() }
func (p PolicyID) Hex() string      { return hex.EncodeToString(p[:]) }
func (p PolicyID) String() string   { return p.Hex() }
func (id TxID) Hex() string         { return hex.EncodeToString(id[:]) }
func (id TxID) String() string      { return id.Hex() }

// IsZero reports whether the id is all zero bytes.
func (id TxID) IsZero() bool { return id == TxID{} }

// ParseTxID decodes a 64-char hex transaction id.
func ParseTxID(s string) (TxID, error) {
	var id TxID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %w", ErrInvalidTxID, err)
	}
	if len(b) != TxIDLen {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidTxID, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParsePolicyID decodes a 56-char hex policy id.
func ParsePolicyID(s string) (PolicyID, error) {
	var p PolicyID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != HashLen {
		return p, fmt.Errorf("ledger: invalid policy id %q", s)
	}
	copy(p[:], b)
	return p, nil
}

// Blake2b224 hashes data to 28 bytes.
func Blake2b224(data ...[]byte) [HashLen]byte {
	h, err := blake2b.New(HashLen, nil)
	if err != nil {
		// only possible for an invalid size or key, both fixed here
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	var out [HashLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 hashes data to 32 bytes.
func Blake2b256(data ...[]byte) [32]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
