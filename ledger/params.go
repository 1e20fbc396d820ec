package ledger

import (
	"time"
)

// NetworkParams holds the protocol parameters the builder needs for fees,
// min-utxo values, execution budgets and slot arithmetic.
type NetworkParams struct {
	MinFeeA           int64 `json:"min_fee_a"` // lovelace per tx byte
	MinFeeB           int64 `json:"min_fee_b"` // constant lovelace per tx
	CoinsPerUTxOByte  int64 `json:"coins_per_utxo_byte"`
	MaxTxSize         int   `json:"max_tx_size"`
	PriceMemNum       int64 `json:"price_mem_num"`
	PriceMemDen       int64 `json:"price_mem_den"`
	PriceStepNum      int64 `json:"price_step_num"`
	PriceStepDen      int64 `json:"price_step_den"`
	MaxTxExMem        int64 `json:"max_tx_ex_mem"`
	MaxTxExCPU        int64 `json:"max_tx_ex_cpu"`
	CollateralPercent int64 `json:"collateral_percent"`
	MaxCollateral     int   `json:"max_collateral_inputs"`
	SlotLengthMs      int64 `json:"slot_length_ms"`
	ZeroTimeMs        int64 `json:"zero_time_ms"` // unix ms of ZeroSlot
	ZeroSlot          int64 `json:"zero_slot"`
}

// DefaultParams returns mainnet-like parameters with slot zero at the unix epoch.
func DefaultParams() *NetworkParams {
	return &NetworkParams{
		MinFeeA:           44,
		MinFeeB:           155381,
		CoinsPerUTxOByte:  4310,
		MaxTxSize:         16384,
		PriceMemNum:       577,
		PriceMemDen:       10000,
		PriceStepNum:      721,
		PriceStepDen:      10000000,
		MaxTxExMem:        14000000,
		MaxTxExCPU:        10000000000,
		CollateralPercent: 150,
		MaxCollateral:     3,
		SlotLengthMs:      1000,
		ZeroTimeMs:        0,
		ZeroSlot:          0,
	}
}

// Clone returns a copy of the parameters.
func (p *NetworkParams) Clone() *NetworkParams {
	c := *p
	return &c
}

// Merge returns a copy of p with every non-zero field of override applied.
func (p *NetworkParams) Merge(o *NetworkParams) *NetworkParams {
	out := p.Clone()
	if o == nil {
		return out
	}
	setIf := func(dst *int64, v int64) {
		if v != 0 {
			*dst = v
		}
	}
	setIf(&out.MinFeeA, o.MinFeeA)
	setIf(&out.MinFeeB, o.MinFeeB)
	setIf(&out.CoinsPerUTxOByte, o.CoinsPerUTxOByte)
	setIf(&out.PriceMemNum, o.PriceMemNum)
	setIf(&out.PriceMemDen, o.PriceMemDen)
	setIf(&out.PriceStepNum, o.PriceStepNum)
	setIf(&out.PriceStepDen, o.PriceStepDen)
	setIf(&out.MaxTxExMem, o.MaxTxExMem)
	setIf(&out.MaxTxExCPU, o.MaxTxExCPU)
	setIf(&out.CollateralPercent, o.CollateralPercent)
	setIf(&out.SlotLengthMs, o.SlotLengthMs)
	setIf(&out.ZeroTimeMs, o.ZeroTimeMs)
	setIf(&out.ZeroSlot, o.ZeroSlot)
	if o.MaxTxSize != 0 {
		out.MaxTxSize = o.MaxTxSize
	}
	if o.MaxCollateral != 0 {
		out.MaxCollateral = o.MaxCollateral
	}
	return out
}

// TimeToSlot converts wall-clock time to a slot number (rounding down).
func (p *NetworkParams) TimeToSlot(t time.Time) int64 {
	return p.ZeroSlot + (t.UnixMilli()-p.ZeroTimeMs)/p.SlotLengthMs
}

// SlotToTime converts a slot number to the wall-clock time it starts at.
func (p *NetworkParams) SlotToTime(slot int64) time.Time {
	return time.UnixMilli(p.ZeroTimeMs + (slot-p.ZeroSlot)*p.SlotLengthMs)
}

// minUtxoOverhead is the fixed per-output byte overhead counted by the ledger.
const minUtxoOverhead = 160

// MinLovelace returns the minimum lovelace an output must carry to be valid.
func (p *NetworkParams) MinLovelace(out *TxOutput) int64 {
	sized := *out
	// measure with a realistic lovelace field; the size of the amount itself counts
	if sized.Value.Lovelace < LovelacePerADA {
		sized.Value.Lovelace = LovelacePerADA
	}
	return (minUtxoOverhead + int64(len(encodeOutput(&sized)))) * p.CoinsPerUTxOByte
}

// MinLovelaceFor returns the minimum lovelace for an output at addr holding
// the tokens of v.
func (p *NetworkParams) MinLovelaceFor(addr Address, v Value) int64 {
	return p.MinLovelace(&TxOutput{Address: addr, Value: v})
}

// ExecutionFee returns the lovelace charged for the given execution cost.
func (p *NetworkParams) ExecutionFee(c Cost) int64 {
	return ceilDiv(c.Mem*p.PriceMemNum, p.PriceMemDen) + ceilDiv(c.CPU*p.PriceStepNum, p.PriceStepDen)
}

// Fee returns the total fee for a transaction of size bytes and cost.
func (p *NetworkParams) Fee(size int, c Cost) int64 {
	return p.MinFeeA*int64(size) + p.MinFeeB + p.ExecutionFee(c)
}

// CollateralRequired returns the minimum collateral for a fee.
func (p *NetworkParams) CollateralRequired(fee int64) int64 {
	return ceilDiv(fee*p.CollateralPercent, 100)
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
