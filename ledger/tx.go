package ledger

import (
	"encoding/hex"
)

// RedeemerPurpose tells what a redeemer authorizes.
type RedeemerPurpose uint8

const (
	Spending RedeemerPurpose = iota
	Minting
)

func (p RedeemerPurpose) String() string {
	switch p {
	case Spending:
		return "spending"
	case Minting:
		return "minting"
	default:
		return "unknown"
	}
}

// Cost is a script execution budget.
type Cost struct {
	Mem int64 `json:"mem"`
	CPU int64 `json:"cpu"`
}

// Add returns c + o.
func (c Cost) Add(o Cost) Cost { return Cost{Mem: c.Mem + o.Mem, CPU: c.CPU + o.CPU} }

// Redeemer is the data given to a script for one spend or mint, and the
// budget granted to that execution.
type Redeemer struct {
	Purpose RedeemerPurpose `json:"purpose"`
	Index   int             `json:"index"`
	Data    []byte          `json:"data"`
	Cost    Cost            `json:"cost"`
}

// TxBody is the signed part of a transaction.
type TxBody struct {
	Inputs     []*TxInput
	RefInputs  []*TxInput
	Collateral []*TxInput
	Outputs    []*TxOutput
	Mint       Assets
	Fee        int64
	ValidFrom  *int64 // slot, inclusive
	ValidTo    *int64 // slot, exclusive
	Signers    []PubKeyHash
	Redeemers  []Redeemer
}

// Signature is a key witness over the transaction id.
type Signature struct {
	PubKey []byte `json:"pub_key"` // compressed secp256k1
	Sig    []byte `json:"sig"`     // DER encoded
}

// PubKeyHash returns the hash of the signing key.
func (s Signature) PubKeyHash() PubKeyHash { return PubKeyHash(Blake2b224(s.PubKey)) }

// TxWitnesses carries signatures and attached scripts.
type TxWitnesses struct {
	Signatures []Signature
	Scripts    []Validator
}

// Tx is a built transaction. A non-nil Error means a script rejected it;
// the transaction is still returned so the caller can inspect it.
type Tx struct {
	Body      TxBody
	Witnesses TxWitnesses
	Error     *ValidationError
}

// ID hashes the encoded body.
func (tx *Tx) ID() TxID { return TxID(Blake2b256(encodeBody(&tx.Body))) }

// Bytes returns the encoded transaction (body followed by witnesses).
func (tx *Tx) Bytes() []byte { return encodeTx(tx) }

// Hex returns the encoded transaction as hex.
func (tx *Tx) Hex() string { return hex.EncodeToString(tx.Bytes()) }

// IsValid reports whether no script rejected the transaction.
func (tx *Tx) IsValid() bool { return tx.Error == nil }

// AddSignatures appends key witnesses, skipping keys that already signed.
func (tx *Tx) AddSignatures(sigs ...Signature) {
	for _, s := range sigs {
		pkh := s.PubKeyHash()
		if tx.HasSignatureFrom(pkh) {
			continue
		}
		tx.Witnesses.Signatures = append(tx.Witnesses.Signatures, s)
	}
}

// HasSignatureFrom reports whether a key with the given hash signed.
func (tx *Tx) HasSignatureFrom(pkh PubKeyHash) bool {
	for _, s := range tx.Witnesses.Signatures {
		if s.PubKeyHash() == pkh {
			return true
		}
	}
	return false
}

// RequiredKeyHashes returns the key hashes whose signatures the ledger
// demands: explicit signers plus owners of key-locked inputs and collateral.
func (tx *Tx) RequiredKeyHashes() []PubKeyHash {
	seen := make(map[PubKeyHash]bool)
	var out []PubKeyHash
	add := func(pkh PubKeyHash) {
		if !seen[pkh] {
			seen[pkh] = true
			out = append(out, pkh)
		}
	}
	for _, s := range tx.Body.Signers {
		add(s)
	}
	for _, list := range [][]*TxInput{tx.Body.Inputs, tx.Body.Collateral} {
		for _, in := range list {
			if pkh, ok := in.Output.Address.PubKeyHash(); ok {
				add(pkh)
			}
		}
	}
	return out
}

// OutputUtxos returns the transaction outputs as utxos with their ids filled in.
func (tx *Tx) OutputUtxos() []*TxInput {
	id := tx.ID()
	out := make([]*TxInput, len(tx.Body.Outputs))
	for i, o := range tx.Body.Outputs {
		out[i] = NewTxInput(TxOutputID{TxID: id, Index: uint32(i)}, o)
	}
	return out
}
