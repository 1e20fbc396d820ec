package txn

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
	"github.com/donecollectively/stellar-contracts-sub001/config"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/network"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

func simpleWallet(nc *wallet.NetworkConfig, src wallet.UtxoSource) (wallet.Wallet, error) {
	return wallet.NewSimpleWallet(bytes.Repeat([]byte{3}, 32), nc, src, &wallet.Options{Lookahead: 1})
}

func TestOpen_Emulator(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Network = "emulator"
	cfg.LogFile = filepath.Join(dir, "sdk.log")
	cfg.JournalPath = filepath.Join(dir, "journal.db")

	s, err := Open(ctx, OpenOptions{Config: cfg, NewWallet: simpleWallet})
	require.NoError(t, err)

	emu, ok := s.Chain().Base().(*network.Emulator)
	require.True(t, ok)
	w := s.Wallet().(*wallet.SimpleWallet)
	emu.CreateUtxo(w.Address(), ledger.NewValue(ledger.ADA(25)))

	c := s.NewContext("pay")
	dest := ledger.NewKeyAddress(ledger.Testnet, ledger.PubKeyHash{4})
	require.NoError(t, c.AddOutput(ledger.NewTxOutput(dest, ledger.NewValue(ledger.ADA(5)))))
	require.NoError(t, c.SubmitAll(ctx, QueueOptions{}))

	tr, ok := s.Batcher().Current().TxInfo(c.ID())
	require.True(t, ok)
	assert.Equal(t, batch.Confirmed, tr.State())
	assert.True(t, emu.IsConfirmed(tr.TxID()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is harmless")

	logged, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "setup opened")
	assert.Contains(t, string(logged), "tx submitted")

	j, err := batch.OpenBoltJournal(cfg.JournalPath)
	require.NoError(t, err)
	defer j.Close()
	recs, err := j.History(s.Batcher().Current().ID(), c.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network = "moon"
	_, err := Open(context.Background(), OpenOptions{Config: cfg, Logger: zap.NewNop()})
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)
}

func TestOpen_MainnetNeedsEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network = "mainnet"
	_, err := Open(context.Background(), OpenOptions{Config: cfg, Logger: zap.NewNop(), Env: map[string]string{}})
	assert.ErrorIs(t, err, network.ErrNotConfigured)
}

func TestOpen_PreprodUsesRPC(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := Open(context.Background(), OpenOptions{
		Config: cfg,
		Logger: zap.NewNop(),
		Env:    map[string]string{network.EnvOgmiosURL: "http://ogmios.test:1337"},
	})
	require.NoError(t, err)
	defer s.Close()

	_, isRPC := s.Chain().Base().(*network.RPCClient)
	assert.True(t, isRPC)
	assert.Nil(t, s.Wallet())
	_, canTick := s.ticker()
	assert.False(t, canTick)
}

type stubSRV struct{ addrs []*net.SRV }

func (s *stubSRV) LookupSRV(_ context.Context, _, _, _ string) (string, []*net.SRV, error) {
	return "", s.addrs, nil
}

func TestOpen_DiscoversEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network = "mainnet"
	r := &stubSRV{addrs: []*net.SRV{
		{Target: "backup.example.com.", Port: 1337, Priority: 20},
		{Target: "ogmios.example.com.", Port: 443, Priority: 10},
	}}
	s, err := Open(context.Background(), OpenOptions{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Env:      map[string]string{},
		Discover: "example.com",
		Resolver: r,
	})
	require.NoError(t, err)
	defer s.Close()
	rc, ok := s.Chain().Base().(*network.RPCClient)
	require.True(t, ok)
	assert.Equal(t, "https://ogmios.example.com:443", rc.URL())
}
