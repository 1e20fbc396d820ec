package txn

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donecollectively/stellar-contracts-sub001/config"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/network"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

type fixture struct {
	params *ledger.NetworkParams
	emu    *network.Emulator
	chain  *network.ChainBuilder
	wallet *wallet.SimpleWallet
	setup  *Setup
	dest   ledger.Address
}

// newFixture wires an emulator whose slot zero is now, so validity windows
// computed from the wall clock line up with the emulator's slot counter.
func newFixture(t *testing.T, mod ...func(*Options)) *fixture {
	t.Helper()
	params := ledger.DefaultParams()
	params.ZeroTimeMs = time.Now().UnixMilli()

	emu := network.NewEmulator(params, nil)
	chain := network.NewChainBuilder(emu)
	w, err := wallet.NewSimpleWallet(bytes.Repeat([]byte{7}, 32), &wallet.Emulator, chain, &wallet.Options{Lookahead: 1})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	opts := Options{
		Network: chain,
		Wallet:  w,
		Params:  params,
		Config:  &cfg,
		Chain:   chain,
	}
	for _, m := range mod {
		m(&opts)
	}
	s, err := NewSetup(opts)
	require.NoError(t, err)

	return &fixture{
		params: params,
		emu:    emu,
		chain:  chain,
		wallet: w,
		setup:  s,
		dest:   ledger.NewKeyAddress(ledger.Testnet, ledger.PubKeyHash{9, 9, 9}),
	}
}

// fund creates a wallet utxo holding ada.
func (f *fixture) fund(ada int64) *ledger.TxInput {
	return f.emu.CreateUtxo(f.wallet.Address(), ledger.NewValue(ledger.ADA(ada)))
}

func TestNewSetup_RequiresNetwork(t *testing.T) {
	_, err := NewSetup(Options{})
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestNewSetup_Defaults(t *testing.T) {
	s, err := NewSetup(Options{Network: &network.MockNetwork{}})
	require.NoError(t, err)
	assert.NotNil(t, s.Batcher())
	assert.NotNil(t, s.Helper())
	assert.NotNil(t, s.Params())
	assert.Nil(t, s.Wallet())
	assert.Equal(t, config.DefaultConfig().DefaultValidity, s.Config().DefaultValidity)
	assert.NoError(t, s.yield(context.Background()), "zero yield returns at once")
}

func TestSetup_YieldHonorsContext(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ChainYield = time.Hour
	s, err := NewSetup(Options{Network: &network.MockNetwork{}, Config: &cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.yield(ctx), context.Canceled)
}

func TestContext_FacadeState(t *testing.T) {
	f := newFixture(t)
	c := f.setup.NewContext("facade")
	assert.Equal(t, Undecided, c.FacadeState())

	require.NoError(t, c.Facade())
	assert.Equal(t, Facade, c.FacadeState())
	assert.ErrorIs(t, c.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(2)))), ErrFacade)
	assert.ErrorIs(t, c.AddSigner(f.dest), ErrFacade)
	_, err := c.Build(context.Background(), BuildOptions{})
	assert.ErrorIs(t, err, ErrFacade)

	rc := f.setup.NewContext("real")
	require.NoError(t, rc.AddOutput(ledger.NewTxOutput(f.dest, ledger.NewValue(ledger.ADA(2)))))
	assert.Equal(t, Real, rc.FacadeState())
	assert.ErrorIs(t, rc.Facade(), ErrNotFacadeable)

	child := c.NewChild("child")
	assert.ErrorIs(t, child.Facade(), ErrNotFacadeable, "contexts with a parent cannot be facades")
}

func TestContext_NameFallsBackToID(t *testing.T) {
	f := newFixture(t)
	c := f.setup.NewContext("")
	assert.Equal(t, c.ID(), c.Name())
	assert.Equal(t, "renamed", c.WithName("renamed").Name())
}

func TestContext_AddInputRedeemer(t *testing.T) {
	f := newFixture(t)
	u := f.fund(10)
	c := f.setup.NewContext("spend")

	assert.ErrorIs(t, c.AddInput(u, &Redeemer{}), ErrMissingRedeemer)
	assert.Equal(t, Undecided, c.FacadeState(), "a rejected input leaves the context undecided")

	require.NoError(t, c.AddInput(u, nil))
	assert.Len(t, c.Inputs(), 1)

	err := c.AddInput(u, nil)
	assert.ErrorIs(t, err, ledger.ErrDuplicateInput)
	assert.Len(t, c.Inputs(), 1)
}

func TestContext_RejectedCallsStayUndecided(t *testing.T) {
	f := newFixture(t)
	v := &ledger.FuncValidator{Code: []byte("guard"), Cost: ledger.Cost{Mem: 1, CPU: 1}}
	locked := f.lockAt(v, 10)
	c := f.setup.NewContext("host")

	assert.ErrorIs(t, c.AddInput(locked, nil), ledger.ErrMissingRedeemer)
	assert.Empty(t, c.Inputs())
	assert.Equal(t, Undecided, c.FacadeState())

	tiny := ledger.NewTxOutput(f.dest, ledger.NewValue(1))
	assert.ErrorIs(t, c.AddOutput(tiny), ledger.ErrOutputBelowMinimum)
	assert.Equal(t, Undecided, c.FacadeState())

	assert.ErrorIs(t, c.MintTokens(ledger.PolicyOf(v), map[string]int64{"x": 1}, nil), ledger.ErrMissingRedeemer)
	assert.Equal(t, Undecided, c.FacadeState())

	require.NoError(t, c.Facade(), "no change was applied, so the context may still host nested txns")
	assert.Equal(t, Facade, c.FacadeState())
}

func TestContext_AddRefInputIdempotent(t *testing.T) {
	f := newFixture(t)
	ref := f.fund(3)
	spent := f.fund(4)
	c := f.setup.NewContext("refs")

	require.NoError(t, c.AddRefInput(ref))
	require.NoError(t, c.AddRefInput(ref))
	assert.Len(t, c.RefInputs(), 1)

	require.NoError(t, c.AddInput(spent, nil))
	require.NoError(t, c.AddRefInput(spent), "referencing a spent input is ignored")
	assert.Len(t, c.RefInputs(), 1)
}

func TestContext_AddCollateral(t *testing.T) {
	f := newFixture(t)
	c := f.setup.NewContext("collateral")

	policy := ledger.PolicyID{1, 2, 3}
	tokens := f.emu.CreateUtxo(f.wallet.Address(), ledger.Value{
		Lovelace: ledger.ADA(5),
		Assets:   ledger.Assets{policy: {"tok": 1}},
	})
	assert.ErrorIs(t, c.AddCollateral(tokens), ErrCollateralNotPure)
	assert.Nil(t, c.Collateral())

	pure := f.fund(5)
	require.NoError(t, c.AddCollateral(pure))
	assert.Equal(t, pure, c.Collateral())
	assert.ErrorIs(t, c.AddCollateral(f.fund(6)), ErrCollateralSet)
}

func TestContext_ReservedUtxosSpanChildren(t *testing.T) {
	f := newFixture(t)
	parent := f.setup.NewContext("parent")
	child := parent.NewChild("child")
	grandchild := child.NewChild("grandchild")

	a, b, col := f.fund(10), f.fund(11), f.fund(5)
	require.NoError(t, parent.AddInput(a, nil))
	require.NoError(t, grandchild.AddInput(b, nil))
	require.NoError(t, child.AddCollateral(col))

	ids := func(c *Context) []ledger.TxOutputID {
		var out []ledger.TxOutputID
		for _, u := range c.ReservedUtxos() {
			out = append(out, u.ID)
		}
		return out
	}
	assert.ElementsMatch(t, []ledger.TxOutputID{a.ID, b.ID, col.ID}, ids(parent))
	assert.ElementsMatch(t, []ledger.TxOutputID{a.ID, b.ID, col.ID}, ids(child))
	assert.ElementsMatch(t, []ledger.TxOutputID{a.ID, b.ID, col.ID}, ids(grandchild))

	p, ok := grandchild.Parent()
	require.True(t, ok)
	assert.Equal(t, child, p)
	_, ok = parent.Parent()
	assert.False(t, ok)
}

func TestContext_SparesSkipReserved(t *testing.T) {
	f := newFixture(t)
	a, b := f.fund(10), f.fund(20)
	parent := f.setup.NewContext("parent")
	child := parent.NewChild("child")
	require.NoError(t, child.AddInput(a, nil))

	spares, err := parent.FindAnySpareUtxos(context.Background())
	require.NoError(t, err)
	require.Len(t, spares, 1)
	assert.Equal(t, b.ID, spares[0].ID)
}

func TestContext_FutureDateValidity(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	f := newFixture(t, func(o *Options) { o.Clock = func() time.Time { return now } })
	c := f.setup.NewContext("later")

	start := now.Add(time.Hour)
	require.NoError(t, c.FutureDate(start))
	assert.ErrorIs(t, c.FutureDate(start), ErrFutureDateSet)
	require.NoError(t, c.ValidFor(10*time.Minute))

	from, to, ok := c.ValidityWindow()
	require.True(t, ok)
	assert.True(t, from.Equal(start))
	assert.True(t, to.Equal(start.Add(10*time.Minute)))

	other := f.setup.NewContext("too late")
	require.NoError(t, other.ValidFor(time.Minute))
	assert.ErrorIs(t, other.FutureDate(start), ErrValiditySet)

	fromSlot, toSlot, ok := c.ValiditySlots()
	require.True(t, ok)
	assert.Equal(t, f.params.TimeToSlot(start), fromSlot)
	assert.Equal(t, int64(600), toSlot-fromSlot)
}

func TestContext_ValidForBackdates(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	f := newFixture(t, func(o *Options) { o.Clock = func() time.Time { return now } })
	c := f.setup.NewContext("now")

	require.NoError(t, c.ValidFor(5*time.Minute))
	from, to, ok := c.ValidityWindow()
	require.True(t, ok)
	assert.True(t, from.Equal(now.Add(-f.setup.Config().ValidityBackdate)))
	assert.True(t, to.Equal(now.Add(5*time.Minute)))
}

func TestContext_StateAndUuts(t *testing.T) {
	f := newFixture(t)
	c := f.setup.NewContext("state")
	c.AddState("answer", 42)
	assert.Equal(t, 42, c.State().Extra["answer"])

	n := MkUutName("charter", ledger.TxOutputID{Index: 1})
	c.AddUut("charter", n)
	assert.Equal(t, n, c.State().Uuts["charter"])
}

func TestContext_BuildResultBeforeBuild(t *testing.T) {
	f := newFixture(t)
	_, err := f.setup.NewContext("x").BuildResult()
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestDump_Empty(t *testing.T) {
	assert.Equal(t, "  (none)", DumpInputs(nil))
	assert.Equal(t, "  (none)", DumpOutputs(nil))
	assert.Equal(t, "  (none)", DumpMinted(nil))
}
