package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(b byte) PolicyID {
	var p PolicyID
	for i := range p {
		p[i] = b
	}
	return p
}

func TestAssetsAdd_DropsZero(t *testing.T) {
	p := testPolicy(1)
	a := NewAssets()
	a.Add(p, "x", 3)
	a.Add(p, "x", -3)
	assert.True(t, a.IsZero())
	assert.Equal(t, 0, a.Count())
}

func TestValueArithmetic(t *testing.T) {
	p := testPolicy(2)
	v := NewTokenValue(ADA(3), AssetsOf(p, map[string]int64{"a": 2, "b": 1}))
	o := NewTokenValue(ADA(1), AssetsOf(p, map[string]int64{"a": 1}))

	sum := v.Add(o)
	assert.Equal(t, ADA(4), sum.Lovelace)
	assert.Equal(t, int64(3), sum.Assets.Get(p, "a"))

	diff := v.Sub(o)
	assert.Equal(t, ADA(2), diff.Lovelace)
	assert.Equal(t, int64(1), diff.Assets.Get(p, "a"))
	assert.Equal(t, int64(1), diff.Assets.Get(p, "b"))

	// inputs are not mutated
	assert.Equal(t, int64(2), v.Assets.Get(p, "a"))
}

func TestValueGE(t *testing.T) {
	p := testPolicy(3)
	tests := []struct {
		name string
		v, o Value
		want bool
	}{
		{"equal lovelace", NewValue(5), NewValue(5), true},
		{"less lovelace", NewValue(4), NewValue(5), false},
		{"missing token", NewValue(ADA(10)), NewTokenValue(0, AssetsOf(p, map[string]int64{"t": 1})), false},
		{"has token", NewTokenValue(ADA(1), AssetsOf(p, map[string]int64{"t": 2})), NewTokenValue(0, AssetsOf(p, map[string]int64{"t": 1})), true},
		{"extra tokens are fine", NewTokenValue(ADA(1), AssetsOf(p, map[string]int64{"t": 1})), NewValue(ADA(1)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.GE(tc.o))
		})
	}
}

func TestValueEqualAndPure(t *testing.T) {
	p := testPolicy(4)
	a := NewTokenValue(7, AssetsOf(p, map[string]int64{"n": 1}))
	assert.True(t, a.Equal(a.Clone()))
	assert.False(t, a.IsPureADA())
	assert.True(t, NewValue(7).IsPureADA())
	assert.False(t, a.Equal(NewValue(7)))
}

func TestFormatADA(t *testing.T) {
	assert.Equal(t, "5 ADA", FormatADA(ADA(5)))
	assert.Equal(t, "1.5 ADA", FormatADA(1_500_000))
	assert.Equal(t, "-0.000001 ADA", FormatADA(-1))
}

func TestDisplayTokenName(t *testing.T) {
	assert.Equal(t, "charter", DisplayTokenName("charter"))
	assert.Equal(t, "0x00ff", DisplayTokenName(string([]byte{0x00, 0xff})))
}

func TestAddressRoundTrip(t *testing.T) {
	var pkh PubKeyHash
	pkh[0] = 0xaa
	addr := NewKeyAddress(Testnet, pkh)

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	got, ok := parsed.PubKeyHash()
	assert.True(t, ok)
	assert.Equal(t, pkh, got)

	var sh ScriptHash
	sh[1] = 0xbb
	staked := NewScriptAddress(Mainnet, sh).WithStaking(KeyCredentialOf(pkh))
	parsed, err = ParseAddress(staked.String())
	require.NoError(t, err)
	assert.Equal(t, staked, parsed)
	_, ok = parsed.PubKeyHash()
	assert.False(t, ok)
}

func TestParseAddress_Invalid(t *testing.T) {
	_, err := ParseAddress("bogus")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ParseAddress("addr1qqqq")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = AddressFromBytes([]byte{0x60, 0x01})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParseTxOutputID(t *testing.T) {
	var id TxID
	id[0] = 0x12
	ref := TxOutputID{TxID: id, Index: 3}
	got, err := ParseTxOutputID(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	_, err = ParseTxOutputID("nohash")
	assert.ErrorIs(t, err, ErrInvalidTxID)
}

func TestParamsSlotConversion(t *testing.T) {
	p := DefaultParams()
	p.ZeroTimeMs = 1_600_000_000_000
	p.ZeroSlot = 100
	tm := p.SlotToTime(250)
	assert.Equal(t, int64(250), p.TimeToSlot(tm))
	assert.Equal(t, int64(100), p.TimeToSlot(p.SlotToTime(100)))
}

func TestParamsMerge(t *testing.T) {
	base := DefaultParams()
	merged := base.Merge(&NetworkParams{MinFeeA: 1, MaxTxSize: 99})
	assert.Equal(t, int64(1), merged.MinFeeA)
	assert.Equal(t, 99, merged.MaxTxSize)
	assert.Equal(t, base.MinFeeB, merged.MinFeeB)
	assert.Equal(t, int64(44), base.MinFeeA, "merge must not modify receiver")
}

func TestMinLovelace_GrowsWithTokens(t *testing.T) {
	p := DefaultParams()
	var pkh PubKeyHash
	addr := NewKeyAddress(Testnet, pkh)
	pure := p.MinLovelaceFor(addr, NewValue(0))
	withToken := p.MinLovelaceFor(addr, NewTokenValue(0, AssetsOf(testPolicy(9), map[string]int64{"tok": 1})))
	assert.Greater(t, pure, int64(0))
	assert.Greater(t, withToken, pure)
}
