// Package txn builds Cardano transactions through a mutable Context and
// resolves chains of dependent transactions into a batch.
package txn

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
	"github.com/donecollectively/stellar-contracts-sub001/config"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/network"
	"github.com/donecollectively/stellar-contracts-sub001/utxo"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

// Options configures a Setup.
type Options struct {
	Network network.Network // required
	Wallet  wallet.Wallet   // nil for contexts signed only by explicit signers
	Params  *ledger.NetworkParams
	Batcher *batch.Batcher
	Logger  *zap.Logger
	Config  *config.Config // nil uses config.DefaultConfig

	// Chain, when set, receives every queued transaction so later
	// transactions can spend its outputs before confirmation.
	Chain *network.ChainBuilder

	// DefaultPolicy resolves name-only token specifiers.
	DefaultPolicy *ledger.PolicyID

	// Clock replaces time.Now.
	Clock func() time.Time
}

// Setup is the environment shared by every context of one application.
type Setup struct {
	network  network.Network
	wallet   wallet.Wallet
	params   *ledger.NetworkParams
	batcher  *batch.Batcher
	log      *zap.Logger
	cfg      config.Config
	chain    *network.ChainBuilder
	helper   *utxo.Helper
	registry *Registry
	clock    func() time.Time
	journal  *batch.BoltJournal // owned when opened from config
}

// NewSetup validates opts and fills in defaults.
func NewSetup(opts Options) (*Setup, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("%w: network", ErrNilParam)
	}
	s := &Setup{
		network:  opts.Network,
		wallet:   opts.Wallet,
		params:   opts.Params,
		batcher:  opts.Batcher,
		log:      opts.Logger,
		chain:    opts.Chain,
		registry: NewRegistry(),
		clock:    opts.Clock,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if opts.Config != nil {
		s.cfg = *opts.Config
	} else {
		s.cfg = config.DefaultConfig()
	}
	if s.params == nil {
		s.params = ledger.DefaultParams()
	}
	if s.batcher == nil {
		s.batcher = batch.NewBatcher(batch.Options{Logger: s.log})
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	s.helper = utxo.New(utxo.Options{
		Params:        s.params,
		Network:       s.network,
		DefaultPolicy: opts.DefaultPolicy,
		Logger:        s.log,
	})
	return s, nil
}

// Network returns the network contexts query and submit to.
func (s *Setup) Network() network.Network { return s.network }

// Wallet returns the connected wallet, or nil.
func (s *Setup) Wallet() wallet.Wallet { return s.wallet }

// Params returns the network parameters.
func (s *Setup) Params() *ledger.NetworkParams { return s.params }

// Batcher returns the batch controller.
func (s *Setup) Batcher() *batch.Batcher { return s.batcher }

// Helper returns the utxo helper.
func (s *Setup) Helper() *utxo.Helper { return s.helper }

// Registry returns the context registry.
func (s *Setup) Registry() *Registry { return s.registry }

// Release drops the context registered under id. Contexts are released
// automatically once their transaction is submitted, fails or is skipped;
// call Release for contexts abandoned before they were queued. Children of
// a released context no longer resolve it as their parent.
func (s *Setup) Release(id string) { s.registry.Remove(id) }

// Config returns the configuration in effect.
func (s *Setup) Config() config.Config { return s.cfg }

func (s *Setup) now() time.Time { return s.clock() }

// yield pauses for the configured chain yield so batch listeners can
// observe intermediate states. A zero yield returns at once.
func (s *Setup) yield(ctx context.Context) error {
	d := s.cfg.ChainYield
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ticker returns the manually advanced clock of a simulated network.
func (s *Setup) ticker() (network.Ticker, bool) {
	if t, ok := s.network.(network.Ticker); ok {
		return t, true
	}
	if s.chain != nil {
		t, ok := s.chain.Base().(network.Ticker)
		return t, ok
	}
	return nil, false
}

// submitter returns the network signed transactions go to.
func (s *Setup) submitter() network.Network {
	if s.chain != nil {
		return s.chain.Base()
	}
	return s.network
}
