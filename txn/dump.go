package txn

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders any value in full for offline debugging.
func Dump(v interface{}) string { return dumpConfig.Sdump(v) }

// DumpInputs renders one line per utxo.
func DumpInputs(ins []*ledger.TxInput) string {
	if len(ins) == 0 {
		return "  (none)"
	}
	var sb strings.Builder
	for i, in := range ins {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "  %s: %s at %s", in.ID, in.Output.Value, shortAddr(in.Output.Address))
		if in.Output.Datum != nil {
			sb.WriteString(" +datum")
		}
		if in.Output.RefScript != nil {
			fmt.Fprintf(&sb, " +refScript %s", in.Output.RefScript.Hash().Hex()[:8])
		}
	}
	return sb.String()
}

// DumpOutputs renders one line per output.
func DumpOutputs(outs []*ledger.TxOutput) string {
	if len(outs) == 0 {
		return "  (none)"
	}
	var sb strings.Builder
	for i, o := range outs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "  #%d: %s to %s", i, o.Value, shortAddr(o.Address))
		if o.Datum != nil {
			sb.WriteString(" +datum")
		}
	}
	return sb.String()
}

// DumpMinted renders minted and burned tokens.
func DumpMinted(a ledger.Assets) string {
	if a.IsZero() {
		return "  (none)"
	}
	var sb strings.Builder
	for _, p := range a.Policies() {
		for _, n := range a.TokenNames(p) {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "  %+d %s.%s", a.Get(p, n), p.Hex()[:8], ledger.DisplayTokenName(n))
		}
	}
	return sb.String()
}

// DumpTx renders a built transaction.
func DumpTx(tx *ledger.Tx) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tx %s\n", tx.ID())
	fmt.Fprintf(&sb, "inputs:\n%s\n", DumpInputs(tx.Body.Inputs))
	if len(tx.Body.RefInputs) > 0 {
		fmt.Fprintf(&sb, "reference inputs:\n%s\n", DumpInputs(tx.Body.RefInputs))
	}
	if len(tx.Body.Collateral) > 0 {
		fmt.Fprintf(&sb, "collateral:\n%s\n", DumpInputs(tx.Body.Collateral))
	}
	fmt.Fprintf(&sb, "outputs:\n%s\n", DumpOutputs(tx.Body.Outputs))
	if !tx.Body.Mint.IsZero() {
		fmt.Fprintf(&sb, "minted:\n%s\n", DumpMinted(tx.Body.Mint))
	}
	fmt.Fprintf(&sb, "fee: %s", ledger.FormatADA(tx.Body.Fee))
	if tx.Body.ValidFrom != nil || tx.Body.ValidTo != nil {
		sb.WriteString("\nvalidity:")
		if tx.Body.ValidFrom != nil {
			fmt.Fprintf(&sb, " from %d", *tx.Body.ValidFrom)
		}
		if tx.Body.ValidTo != nil {
			fmt.Fprintf(&sb, " to %d", *tx.Body.ValidTo)
		}
	}
	for _, r := range tx.Body.Redeemers {
		fmt.Fprintf(&sb, "\nredeemer %s[%d]: mem %d cpu %d", r.Purpose, r.Index, r.Cost.Mem, r.Cost.CPU)
	}
	return sb.String()
}

func shortAddr(a ledger.Address) string {
	s := a.String()
	if len(s) <= 24 {
		return s
	}
	return s[:16] + "…" + s[len(s)-6:]
}
