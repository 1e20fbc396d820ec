package ledger

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// PubKeyHashOf returns the credential hash of a public key: blake2b-224 of
// its compressed encoding.
func PubKeyHashOf(pub *ec.PublicKey) PubKeyHash {
	return PubKeyHash(Blake2b224(pub.Compressed()))
}

// SignTxID signs a transaction id with one key.
func SignTxID(id TxID, key *ec.PrivateKey) (Signature, error) {
	if key == nil {
		return Signature{}, fmt.Errorf("%w: private key", ErrNilParam)
	}
	sig, err := key.Sign(id[:])
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return Signature{PubKey: key.PubKey().Compressed(), Sig: sig.Serialize()}, nil
}

// SignTx signs tx with every key and attaches the witnesses.
func SignTx(tx *Tx, keys ...*ec.PrivateKey) error {
	if tx == nil {
		return fmt.Errorf("%w: tx", ErrNilParam)
	}
	id := tx.ID()
	for _, k := range keys {
		s, err := SignTxID(id, k)
		if err != nil {
			return err
		}
		tx.AddSignatures(s)
	}
	return nil
}

// VerifySignature checks a key witness against a transaction id.
func VerifySignature(id TxID, s Signature) bool {
	pub, err := ec.ParsePubKey(s.PubKey)
	if err != nil {
		return false
	}
	sig, err := ec.ParseDERSignature(s.Sig)
	if err != nil {
		return false
	}
	return sig.Verify(id[:], pub)
}

// MissingSignatures returns required key hashes without a valid witness.
func (tx *Tx) MissingSignatures() []PubKeyHash {
	id := tx.ID()
	valid := make(map[PubKeyHash]bool)
	for _, s := range tx.Witnesses.Signatures {
		if VerifySignature(id, s) {
			valid[s.PubKeyHash()] = true
		}
	}
	var out []PubKeyHash
	for _, pkh := range tx.RequiredKeyHashes() {
		if !valid[pkh] {
			out = append(out, pkh)
		}
	}
	return out
}
