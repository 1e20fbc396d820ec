// Package utxo ranks, filters and locates unspent outputs for spending,
// fee coverage and collateral.
package utxo

import (
	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/network"
)

// Predicate selects utxos.
type Predicate func(u *ledger.TxInput) bool

// Reserver reports utxos already committed to a transaction under
// construction.
type Reserver interface {
	ReservedUtxos() []*ledger.TxInput
}

// Helper bundles the utxo policy of one application: the parameters used
// for min-ADA math, the network searched for script addresses and the
// policy that resolves name-only token specifiers.
type Helper struct {
	params  *ledger.NetworkParams
	network network.Network
	policy  *ledger.PolicyID
	log     *zap.Logger
}

// Options configures a Helper.
type Options struct {
	Params        *ledger.NetworkParams // nil uses DefaultParams
	Network       network.Network       // needed only for address searches
	DefaultPolicy *ledger.PolicyID
	Logger        *zap.Logger
}

// New creates a Helper.
func New(opts Options) *Helper {
	h := &Helper{
		params:  opts.Params,
		network: opts.Network,
		policy:  opts.DefaultPolicy,
		log:     opts.Logger,
	}
	if h.params == nil {
		h.params = ledger.DefaultParams()
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Params returns the parameters used for min-ADA calculations.
func (h *Helper) Params() *ledger.NetworkParams { return h.params }

// minAdaProbe is the address sized like the largest common form (base
// address with key staking) used to price standalone token outputs.
var minAdaProbe = ledger.NewKeyAddress(ledger.Mainnet, ledger.PubKeyHash{}).
	WithStaking(ledger.KeyCredentialOf(ledger.PubKeyHash{}))

// MkMinAssetValue returns count of policy.name plus the lovelace a
// standalone output needs to carry it.
func (h *Helper) MkMinAssetValue(policy ledger.PolicyID, name string, count int64) ledger.Value {
	return h.MkMinTokenValue(tokenValue(policy, name, count))
}

// MkMinTokenValue returns the tokens of v plus the lovelace a standalone
// output needs to carry them.
func (h *Helper) MkMinTokenValue(v ledger.Value) ledger.Value {
	out := v.TokensOnly()
	out.Lovelace = h.params.MinLovelaceFor(minAdaProbe, out)
	return out
}

// TotalValue sums the values of utxos.
func TotalValue(utxos []*ledger.TxInput) ledger.Value {
	total := ledger.NewValue(0)
	for _, u := range utxos {
		total = total.Add(u.Output.Value)
	}
	return total
}

// AssetsHasToken reports whether a holds at least the tokens of want.
func AssetsHasToken(a ledger.Assets, want ledger.Value) bool {
	return ledger.Value{Assets: a}.GE(want.TokensOnly())
}

// ValueHasToken reports whether v holds at least want, lovelace included.
func ValueHasToken(v, want ledger.Value) bool { return v.GE(want) }

// OutputHasToken reports whether an output holds at least want.
func OutputHasToken(o *ledger.TxOutput, want ledger.Value) bool {
	return o != nil && o.Value.GE(want)
}

// UtxoHasToken reports whether a utxo holds at least want.
func UtxoHasToken(u *ledger.TxInput, want ledger.Value) bool {
	return u != nil && u.Output.Value.GE(want)
}

// HasToken resolves ts and reports whether v holds it. A malformed
// specifier matches nothing.
func (h *Helper) HasToken(v ledger.Value, ts TokenSpecifier) bool {
	want, err := ts.Normalize(h.policy)
	if err != nil {
		return false
	}
	return v.GE(want)
}

// MkTokenPredicate returns a predicate matching utxos holding ts.
func (h *Helper) MkTokenPredicate(ts TokenSpecifier) (Predicate, error) {
	want, err := ts.Normalize(h.policy)
	if err != nil {
		return nil, err
	}
	return func(u *ledger.TxInput) bool { return UtxoHasToken(u, want) }, nil
}

// MkValuePredicate returns a predicate matching pure-ADA utxos holding at
// least lovelace, skipping any reserved by r (which may be nil).
func (h *Helper) MkValuePredicate(lovelace int64, r Reserver) Predicate {
	reserved := reservedSet(r)
	return func(u *ledger.TxInput) bool {
		if reserved[u.ID] {
			return false
		}
		return u.Output.Value.IsPureADA() && u.Output.Value.Lovelace >= lovelace
	}
}

func reservedSet(r Reserver) map[ledger.TxOutputID]bool {
	set := make(map[ledger.TxOutputID]bool)
	if r == nil {
		return set
	}
	for _, u := range r.ReservedUtxos() {
		set[u.ID] = true
	}
	return set
}
