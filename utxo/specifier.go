package utxo

import (
	"fmt"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// SpecKind tells which shape a TokenSpecifier holds.
type SpecKind uint8

const (
	specNone SpecKind = iota
	SpecValue
	SpecTokenName
	SpecUut
	SpecPolicyName
	SpecAssetClass
)

func (k SpecKind) String() string {
	switch k {
	case SpecValue:
		return "value"
	case SpecTokenName:
		return "token-name"
	case SpecUut:
		return "uut"
	case SpecPolicyName:
		return "policy+name"
	case SpecAssetClass:
		return "asset-class"
	default:
		return "none"
	}
}

// AssetClass names one token: a policy and a token name.
type AssetClass struct {
	Policy ledger.PolicyID
	Name   string
}

func (a AssetClass) String() string {
	return a.Policy.Hex()[:8] + "." + ledger.DisplayTokenName(a.Name)
}

// UutName is a unique token name together with the logical purpose it
// was minted for.
type UutName struct {
	Purpose string
	Name    string
}

func (u UutName) String() string { return u.Name }

// TokenSpecifier describes tokens a utxo or value should hold. Build one
// with ByValue, ByTokenName, ByUut, ByPolicyName or ByAssetClass.
type TokenSpecifier struct {
	kind   SpecKind
	value  ledger.Value
	policy ledger.PolicyID
	name   string
	qty    int64
}

// ByValue matches anything holding at least v.
func ByValue(v ledger.Value) TokenSpecifier {
	return TokenSpecifier{kind: SpecValue, value: v.Clone()}
}

// ByTokenName matches qty (0 means 1) of a token under the default policy
// supplied at normalization.
func ByTokenName(name string, qty int64) TokenSpecifier {
	return TokenSpecifier{kind: SpecTokenName, name: name, qty: qty}
}

// ByUut matches the single unique token u under the default policy.
func ByUut(u UutName) TokenSpecifier {
	return TokenSpecifier{kind: SpecUut, name: u.Name, qty: 1}
}

// ByPolicyName matches qty (0 means 1) of policy.name.
func ByPolicyName(policy ledger.PolicyID, name string, qty int64) TokenSpecifier {
	return TokenSpecifier{kind: SpecPolicyName, policy: policy, name: name, qty: qty}
}

// ByAssetClass matches qty (0 means 1) of the asset class.
func ByAssetClass(ac AssetClass, qty int64) TokenSpecifier {
	return TokenSpecifier{kind: SpecAssetClass, policy: ac.Policy, name: ac.Name, qty: qty}
}

// Kind returns the specifier's shape.
func (s TokenSpecifier) Kind() SpecKind { return s.kind }

func (s TokenSpecifier) String() string {
	switch s.kind {
	case SpecValue:
		return s.value.String()
	case SpecTokenName, SpecUut:
		return fmt.Sprintf("%d %s", s.quantity(), ledger.DisplayTokenName(s.name))
	case SpecPolicyName, SpecAssetClass:
		return fmt.Sprintf("%d %s", s.quantity(), AssetClass{Policy: s.policy, Name: s.name})
	default:
		return "<no tokens>"
	}
}

func (s TokenSpecifier) quantity() int64 {
	if s.qty == 0 {
		return 1
	}
	return s.qty
}

// Normalize converts the specifier to the value it requires. defaultPolicy
// resolves the name-only shapes and may be nil for the others.
func (s TokenSpecifier) Normalize(defaultPolicy *ledger.PolicyID) (ledger.Value, error) {
	if s.qty < 0 {
		return ledger.Value{}, fmt.Errorf("%w: negative quantity %d", ErrBadSpecifier, s.qty)
	}
	switch s.kind {
	case SpecValue:
		if s.value.IsZero() {
			return ledger.Value{}, fmt.Errorf("%w: empty value", ErrBadSpecifier)
		}
		if s.value.Lovelace < 0 || s.value.Assets.HasNegative() {
			return ledger.Value{}, fmt.Errorf("%w: negative value %s", ErrBadSpecifier, s.value)
		}
		return s.value.Clone(), nil

	case SpecTokenName, SpecUut:
		if defaultPolicy == nil {
			return ledger.Value{}, fmt.Errorf("%w: %s %q needs a default policy", ErrBadSpecifier, s.kind, s.name)
		}
		if s.name == "" {
			return ledger.Value{}, fmt.Errorf("%w: empty token name", ErrBadSpecifier)
		}
		return tokenValue(*defaultPolicy, s.name, s.quantity()), nil

	case SpecPolicyName, SpecAssetClass:
		if s.name == "" {
			return ledger.Value{}, fmt.Errorf("%w: %s needs a token name", ErrBadSpecifier, s.kind)
		}
		return tokenValue(s.policy, s.name, s.quantity()), nil

	default:
		return ledger.Value{}, fmt.Errorf("%w: unset", ErrBadSpecifier)
	}
}

func tokenValue(policy ledger.PolicyID, name string, qty int64) ledger.Value {
	return ledger.Value{Assets: ledger.AssetsOf(policy, map[string]int64{name: qty})}
}
