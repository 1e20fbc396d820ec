package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// NetworkID is the network tag carried in an address header.
type NetworkID byte

const (
	Testnet NetworkID = 0
	Mainnet NetworkID = 1
)

// CredentialKind tells whether a credential is a key hash or a script hash.
type CredentialKind uint8

const (
	NoCredential CredentialKind = iota
	KeyCredential
	ScriptCredential
)

// Credential is a payment or staking credential.
type Credential struct {
	Kind CredentialKind
	Hash [HashLen]byte
}

// KeyCredentialOf returns a public-key credential.
func KeyCredentialOf(pkh PubKeyHash) Credential {
	return Credential{Kind: KeyCredential, Hash: pkh}
}

// ScriptCredentialOf returns a script credential.
func ScriptCredentialOf(sh ScriptHash) Credential {
	return Credential{Kind: ScriptCredential, Hash: sh}
}

// Address is a shelley-style address: network, payment credential and an
// optional staking credential. Address values are comparable.
type Address struct {
	Network NetworkID
	Payment Credential
	Staking Credential
}

// NewKeyAddress returns an enterprise address paying to a key hash.
func NewKeyAddress(network NetworkID, pkh PubKeyHash) Address {
	return Address{Network: network, Payment: KeyCredentialOf(pkh)}
}

// NewScriptAddress returns an enterprise address locked by a validator.
func NewScriptAddress(network NetworkID, sh ScriptHash) Address {
	return Address{Network: network, Payment: ScriptCredentialOf(sh)}
}

// WithStaking returns a copy of the address with a staking credential.
func (a Address) WithStaking(c Credential) Address {
	a.Staking = c
	return a
}

// PubKeyHash returns the payment key hash when the payment credential is a
// plain public key.
func (a Address) PubKeyHash() (PubKeyHash, bool) {
	if a.Payment.Kind != KeyCredential {
		return PubKeyHash{}, false
	}
	return PubKeyHash(a.Payment.Hash), true
}

// ScriptHash returns the validator hash when the address is script-locked.
func (a Address) ScriptHash() (ScriptHash, bool) {
	if a.Payment.Kind != ScriptCredential {
		return ScriptHash{}, false
	}
	return ScriptHash(a.Payment.Hash), true
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a.Payment.Kind == NoCredential }

// header computes the CIP-19 header byte.
func (a Address) header() byte {
	var kind byte
	paymentScript := a.Payment.Kind == ScriptCredential
	switch a.Staking.Kind {
	case KeyCredential:
		kind = 0
	case ScriptCredential:
		kind = 2
	default:
		kind = 6
	}
	if paymentScript {
		kind++
	}
	return kind<<4 | byte(a.Network)&0x0f
}

// Bytes returns the raw address bytes (header + credentials).
func (a Address) Bytes() []byte {
	out := make([]byte, 0, 1+2*HashLen)
	out = append(out, a.header())
	out = append(out, a.Payment.Hash[:]...)
	if a.Staking.Kind != NoCredential {
		out = append(out, a.Staking.Hash[:]...)
	}
	return out
}

// String renders the address in bech32 ("addr1..." or "addr_test1...").
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.Bytes(), 8, 5, true)
	if err != nil {
		return ""
	}
	out, err := bech32.Encode(a.prefix(), conv)
	if err != nil {
		return ""
	}
	return out
}

func (a Address) prefix() string {
	if a.Network == Mainnet {
		return "addr"
	}
	return "addr_test"
}

// AddressFromBytes decodes raw address bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != 1+HashLen && len(b) != 1+2*HashLen {
		return a, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(b))
	}
	kind := b[0] >> 4
	a.Network = NetworkID(b[0] & 0x0f)
	a.Payment.Kind = KeyCredential
	if kind%2 == 1 {
		a.Payment.Kind = ScriptCredential
	}
	copy(a.Payment.Hash[:], b[1:1+HashLen])
	switch kind &^ 1 {
	case 0, 2:
		if len(b) != 1+2*HashLen {
			return a, fmt.Errorf("%w: missing staking part", ErrInvalidAddress)
		}
		a.Staking.Kind = KeyCredential
		if kind&^1 == 2 {
			a.Staking.Kind = ScriptCredential
		}
		copy(a.Staking.Hash[:], b[1+HashLen:])
	case 6:
		if len(b) != 1+HashLen {
			return a, fmt.Errorf("%w: unexpected staking part", ErrInvalidAddress)
		}
	default:
		return a, fmt.Errorf("%w: unsupported header 0x%02x", ErrInvalidAddress, b[0])
	}
	return a, nil
}

// ParseAddress decodes a bech32 address.
func ParseAddress(s string) (Address, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if hrp != "addr" && hrp != "addr_test" {
		return Address{}, fmt.Errorf("%w: unknown prefix %q", ErrInvalidAddress, hrp)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	a, err := AddressFromBytes(raw)
	if err != nil {
		return Address{}, err
	}
	if a.prefix() != hrp {
		return Address{}, fmt.Errorf("%w: prefix %q does not match network %d", ErrInvalidAddress, hrp, a.Network)
	}
	return a, nil
}
