package utxo

import (
	"slices"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// SortInfo ranks a utxo for fee and change coverage. Free is the lovelace
// above the minimum its tokens need; MinAdaAmount is that minimum (zero for
// pure-ADA utxos).
type SortInfo struct {
	Utxo         *ledger.TxInput
	Sufficient   bool
	Free         int64
	MinAdaAmount int64
}

// MkUtxoSortInfo returns a function computing SortInfo against a threshold:
// a utxo is sufficient when Free > min and, if max > 0, Free < max.
func (h *Helper) MkUtxoSortInfo(min, max int64) func(u *ledger.TxInput) SortInfo {
	return func(u *ledger.TxInput) SortInfo {
		var minAda int64
		if !u.Output.Value.IsPureADA() {
			minAda = h.params.MinLovelaceFor(u.Output.Address, u.Output.Value.TokensOnly())
		}
		free := u.Output.Value.Lovelace - minAda
		sufficient := free > min
		if max > 0 && free >= max {
			sufficient = false
		}
		return SortInfo{Utxo: u, Sufficient: sufficient, Free: free, MinAdaAmount: minAda}
	}
}

// UtxoIsSufficient keeps sufficient entries.
func UtxoIsSufficient(si SortInfo) bool { return si.Sufficient }

// UtxoIsPureADA keeps utxos carrying no native tokens.
func UtxoIsPureADA(u *ledger.TxInput) bool { return u.Output.Value.IsPureADA() }

// UtxoSortSmallerAndPureADA orders pure-ADA entries first, then smaller Free first.
func UtxoSortSmallerAndPureADA(a, b SortInfo) int {
	aPure, bPure := a.MinAdaAmount == 0, b.MinAdaAmount == 0
	switch {
	case aPure && !bPure:
		return -1
	case !aPure && bPure:
		return 1
	case a.Free < b.Free:
		return -1
	case a.Free > b.Free:
		return 1
	}
	return 0
}

// RankSpares returns the sufficient utxos among candidates that r has not
// reserved, in UtxoSortSmallerAndPureADA order. When any pure-ADA utxo is
// sufficient, only pure-ADA utxos are returned.
func (h *Helper) RankSpares(candidates []*ledger.TxInput, threshold int64, r Reserver) []*ledger.TxInput {
	reserved := reservedSet(r)
	info := h.MkUtxoSortInfo(threshold, 0)

	var ranked []SortInfo
	for _, u := range candidates {
		if reserved[u.ID] {
			continue
		}
		if si := info(u); UtxoIsSufficient(si) {
			ranked = append(ranked, si)
		}
	}
	slices.SortStableFunc(ranked, UtxoSortSmallerAndPureADA)

	var pure, all []*ledger.TxInput
	for _, si := range ranked {
		all = append(all, si.Utxo)
		if UtxoIsPureADA(si.Utxo) {
			pure = append(pure, si.Utxo)
		}
	}
	if len(pure) > 0 {
		return pure
	}
	return all
}
