package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// TxOutputID references one output of a transaction.
type TxOutputID struct {
	TxID  TxID   `json:"txid"`
	Index uint32 `json:"index"`
}

// String renders "txid#index".
func (id TxOutputID) String() string {
	return fmt.Sprintf("%s#%d", id.TxID.Hex(), id.Index)
}

// ParseTxOutputID decodes "txid#index".
func ParseTxOutputID(s string) (TxOutputID, error) {
	parts := strings.SplitN(s, "#", 2)
	if len(parts) != 2 {
		return TxOutputID{}, fmt.Errorf("%w: output id %q", ErrInvalidTxID, s)
	}
	txid, err := ParseTxID(parts[0])
	if err != nil {
		return TxOutputID{}, err
	}
	idx, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return TxOutputID{}, fmt.Errorf("%w: output index %q", ErrInvalidTxID, parts[1])
	}
	return TxOutputID{TxID: txid, Index: uint32(idx)}, nil
}

// Datum is data attached to an output, either inline or by hash.
type Datum struct {
	Inline bool   `json:"inline"`
	Data   []byte `json:"data"`
}

// Hash returns the blake2b-256 hash of the datum data.
func (d *Datum) Hash() [32]byte { return Blake2b256(d.Data) }

// TxOutput is a destination, a value, and optional datum / reference script.
type TxOutput struct {
	Address   Address   `json:"address"`
	Value     Value     `json:"value"`
	Datum     *Datum    `json:"datum,omitempty"`
	RefScript Validator `json:"-"`
}

// NewTxOutput returns an output without datum.
func NewTxOutput(addr Address, value Value) *TxOutput {
	return &TxOutput{Address: addr, Value: value}
}

// TxInput is an unspent output together with its reference: a utxo.
type TxInput struct {
	ID     TxOutputID `json:"id"`
	Output TxOutput   `json:"output"`
}

// NewTxInput pairs an output id with the output it references.
func NewTxInput(id TxOutputID, out *TxOutput) *TxInput {
	return &TxInput{ID: id, Output: *out}
}

// Value returns the value carried by the utxo.
func (in *TxInput) Value() Value { return in.Output.Value }

// Address returns the address holding the utxo.
func (in *TxInput) Address() Address { return in.Output.Address }

// String renders the input reference and its value.
func (in *TxInput) String() string {
	return fmt.Sprintf("%s (%s)", in.ID, in.Output.Value)
}

// SumInputs folds the values of the given utxos.
func SumInputs(inputs []*TxInput) Value {
	total := NewValue(0)
	for _, in := range inputs {
		total = total.Add(in.Output.Value)
	}
	return total
}

// SumOutputs folds the values of the given outputs.
func SumOutputs(outputs []*TxOutput) Value {
	total := NewValue(0)
	for _, out := range outputs {
		total = total.Add(out.Value)
	}
	return total
}

// ContainsInput reports whether a utxo with the same id is in the list.
func ContainsInput(list []*TxInput, id TxOutputID) bool {
	for _, in := range list {
		if in.ID == id {
			return true
		}
	}
	return false
}
