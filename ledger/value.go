package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// LovelacePerADA is the number of lovelace in one ADA.
const LovelacePerADA = 1_000_000

// ADA converts a whole-ADA amount to lovelace.
func ADA(n int64) int64 { return n * LovelacePerADA }

// Assets maps policy -> token name -> quantity. Token names are raw bytes
// held in a string. Zero quantities are never stored.
type Assets map[PolicyID]map[string]int64

// NewAssets returns an empty asset bundle.
func NewAssets() Assets { return make(Assets) }

// AssetsOf builds a bundle holding tokens under a single policy.
func AssetsOf(policy PolicyID, tokens map[string]int64) Assets {
	a := NewAssets()
	for name, qty := range tokens {
		a.Add(policy, name, qty)
	}
	return a
}

// Add adjusts the quantity of one token in place.
func (a Assets) Add(policy PolicyID, name string, qty int64) {
	if qty == 0 {
		return
	}
	tokens, ok := a[policy]
	if !ok {
		tokens = make(map[string]int64)
		a[policy] = tokens
	}
	tokens[name] += qty
	if tokens[name] == 0 {
		delete(tokens, name)
		if len(tokens) == 0 {
			delete(a, policy)
		}
	}
}

// Get returns the quantity held of one token.
func (a Assets) Get(policy PolicyID, name string) int64 {
	return a[policy][name]
}

// Clone returns a deep copy.
func (a Assets) Clone() Assets {
	out := NewAssets()
	for p, tokens := range a {
		for n, q := range tokens {
			out.Add(p, n, q)
		}
	}
	return out
}

// Plus returns a new bundle holding a + b.
func (a Assets) Plus(b Assets) Assets {
	out := a.Clone()
	for p, tokens := range b {
		for n, q := range tokens {
			out.Add(p, n, q)
		}
	}
	return out
}

// Negated returns a new bundle with every quantity negated.
func (a Assets) Negated() Assets {
	out := NewAssets()
	for p, tokens := range a {
		for n, q := range tokens {
			out.Add(p, n, -q)
		}
	}
	return out
}

// IsZero reports whether the bundle holds no tokens.
func (a Assets) IsZero() bool { return len(a) == 0 }

// Count returns the number of distinct tokens.
func (a Assets) Count() int {
	n := 0
	for _, tokens := range a {
		n += len(tokens)
	}
	return n
}

// Policies returns the policy ids in byte order.
func (a Assets) Policies() []PolicyID {
	out := make([]PolicyID, 0, len(a))
	for p := range a {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// TokenNames returns the token names under a policy in byte order.
func (a Assets) TokenNames(policy PolicyID) []string {
	out := make([]string, 0, len(a[policy]))
	for n := range a[policy] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasNegative reports whether any token quantity is below zero.
func (a Assets) HasNegative() bool {
	for _, tokens := range a {
		for _, q := range tokens {
			if q < 0 {
				return true
			}
		}
	}
	return false
}

// Value is a bundle of lovelace plus native tokens.
type Value struct {
	Lovelace int64  `json:"lovelace"`
	Assets   Assets `json:"assets,omitempty"`
}

// NewValue returns a lovelace-only value.
func NewValue(lovelace int64) Value { return Value{Lovelace: lovelace} }

// NewTokenValue returns a value with the given lovelace and tokens.
func NewTokenValue(lovelace int64, assets Assets) Value {
	return Value{Lovelace: lovelace, Assets: assets.Clone()}
}

// Add returns v + o.
func (v Value) Add(o Value) Value {
	return Value{Lovelace: v.Lovelace + o.Lovelace, Assets: v.Assets.Plus(o.Assets)}
}

// Sub returns v - o. Components may go negative.
func (v Value) Sub(o Value) Value {
	return Value{Lovelace: v.Lovelace - o.Lovelace, Assets: v.Assets.Plus(o.Assets.Negated())}
}

// GE reports whether v >= o for lovelace and for every token of either value.
func (v Value) GE(o Value) bool {
	if v.Lovelace < o.Lovelace {
		return false
	}
	return !v.Sub(o).Assets.HasNegative()
}

// IsZero reports whether the value holds nothing.
func (v Value) IsZero() bool { return v.Lovelace == 0 && v.Assets.IsZero() }

// IsPureADA reports whether the value carries no native tokens.
func (v Value) IsPureADA() bool { return v.Assets.IsZero() }

// Equal reports component-wise equality.
func (v Value) Equal(o Value) bool {
	d := v.Sub(o)
	return d.IsZero()
}

// Clone returns a deep copy.
func (v Value) Clone() Value { return Value{Lovelace: v.Lovelace, Assets: v.Assets.Clone()} }

// TokensOnly returns the value's tokens with zero lovelace.
func (v Value) TokensOnly() Value { return Value{Assets: v.Assets.Clone()} }

// String renders the value as "12.5 ADA + 1 <policy>.<name>".
func (v Value) String() string {
	var sb strings.Builder
	sb.WriteString(FormatADA(v.Lovelace))
	for _, p := range v.Assets.Policies() {
		for _, n := range v.Assets.TokenNames(p) {
			fmt.Fprintf(&sb, " + %d %s.%s", v.Assets[p][n], p.Hex()[:8], DisplayTokenName(n))
		}
	}
	return sb.String()
}

// FormatADA renders a lovelace amount in ADA with up to six decimals.
func FormatADA(lovelace int64) string {
	sign := ""
	if lovelace < 0 {
		sign = "-"
		lovelace = -lovelace
	}
	whole := lovelace / LovelacePerADA
	frac := lovelace % LovelacePerADA
	if frac == 0 {
		return fmt.Sprintf("%s%d ADA", sign, whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s ADA", sign, whole, s)
}

// DisplayTokenName returns the name as text when printable, else as hex.
func DisplayTokenName(name string) string {
	for _, r := range name {
		if !unicode.IsPrint(r) || r == unicode.ReplacementChar {
			return "0x" + hex.EncodeToString([]byte(name))
		}
	}
	return name
}
