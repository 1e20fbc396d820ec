package ledger

import (
	"bytes"
	"encoding/binary"
)

// The encoding here is deterministic and length-prefixed.  It serves two
// purposes: a stable preimage for transaction ids, and a byte count for fee
// and min-utxo estimation.

type encoder struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (e *encoder) uvarint(v uint64) {
	n := binary.PutUvarint(e.tmp[:], v)
	e.buf.Write(e.tmp[:n])
}

func (e *encoder) varint(v int64) {
	n := binary.PutVarint(e.tmp[:], v)
	e.buf.Write(e.tmp[:n])
}

func (e *encoder) bytes(b []byte) {
	e.uvarint(uint64(len(b)))
	e.buf.Write(b)
}

func (e *encoder) raw(b []byte) { e.buf.Write(b) }

func (e *encoder) flag(b bool) {
	if b {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) value(v Value) {
	e.uvarint(uint64(v.Lovelace))
	e.assets(v.Assets)
}

func (e *encoder) assets(a Assets) {
	policies := a.Policies()
	e.uvarint(uint64(len(policies)))
	for _, p := range policies {
		e.raw(p[:])
		names := a.TokenNames(p)
		e.uvarint(uint64(len(names)))
		for _, n := range names {
			e.bytes([]byte(n))
			e.varint(a[p][n])
		}
	}
}

func (e *encoder) output(o *TxOutput) {
	e.bytes(o.Address.Bytes())
	e.value(o.Value)
	e.flag(o.Datum != nil)
	if o.Datum != nil {
		e.flag(o.Datum.Inline)
		if o.Datum.Inline {
			e.bytes(o.Datum.Data)
		} else {
			h := o.Datum.Hash()
			e.raw(h[:])
		}
	}
	e.flag(o.RefScript != nil)
	if o.RefScript != nil {
		e.bytes(o.RefScript.Bytes())
	}
}

func (e *encoder) inputRefs(list []*TxInput) {
	e.uvarint(uint64(len(list)))
	for _, in := range list {
		e.raw(in.ID.TxID[:])
		e.uvarint(uint64(in.ID.Index))
	}
}

func (e *encoder) optSlot(s *int64) {
	e.flag(s != nil)
	if s != nil {
		e.varint(*s)
	}
}

func (e *encoder) body(b *TxBody) {
	e.inputRefs(b.Inputs)
	e.inputRefs(b.RefInputs)
	e.inputRefs(b.Collateral)
	e.uvarint(uint64(len(b.Outputs)))
	for _, o := range b.Outputs {
		e.output(o)
	}
	e.assets(b.Mint)
	e.uvarint(uint64(b.Fee))
	e.optSlot(b.ValidFrom)
	e.optSlot(b.ValidTo)
	e.uvarint(uint64(len(b.Signers)))
	for _, s := range b.Signers {
		e.raw(s[:])
	}
	e.uvarint(uint64(len(b.Redeemers)))
	for _, r := range b.Redeemers {
		e.buf.WriteByte(byte(r.Purpose))
		e.uvarint(uint64(r.Index))
		e.bytes(r.Data)
		e.uvarint(uint64(r.Cost.Mem))
		e.uvarint(uint64(r.Cost.CPU))
	}
}

func encodeOutput(o *TxOutput) []byte {
	var e encoder
	e.output(o)
	return e.buf.Bytes()
}

func encodeBody(b *TxBody) []byte {
	var e encoder
	e.body(b)
	return e.buf.Bytes()
}

func encodeTx(tx *Tx) []byte {
	var e encoder
	e.body(&tx.Body)
	e.uvarint(uint64(len(tx.Witnesses.Signatures)))
	for _, s := range tx.Witnesses.Signatures {
		e.bytes(s.PubKey)
		e.bytes(s.Sig)
	}
	e.uvarint(uint64(len(tx.Witnesses.Scripts)))
	for _, s := range tx.Witnesses.Scripts {
		e.bytes(s.Bytes())
	}
	e.flag(tx.Error == nil)
	return e.buf.Bytes()
}
