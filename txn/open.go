package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/batch"
	"github.com/donecollectively/stellar-contracts-sub001/config"
	"github.com/donecollectively/stellar-contracts-sub001/logger"
	"github.com/donecollectively/stellar-contracts-sub001/network"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

// OpenOptions configures Open.
type OpenOptions struct {
	Config config.Config

	// NewWallet, when set, creates the wallet over the setup's chained
	// network so its utxo view includes queued transactions.
	NewWallet func(net *wallet.NetworkConfig, src wallet.UtxoSource) (wallet.Wallet, error)

	// Env is consulted for the Ogmios endpoint; nil uses the process
	// environment.
	Env map[string]string

	// Logger replaces the logger built from Config.
	Logger *zap.Logger

	// Discover names a domain whose SRV records advertise Ogmios endpoints.
	// It is consulted only when no endpoint is configured.
	Discover string
	Resolver network.SRVResolver // nil uses a DNSSEC resolver
}

// Open builds a Setup from configuration: it validates the config, builds
// the logger, connects the emulator or the Ogmios endpoint behind a chain
// overlay and opens the batch journal when one is configured. Call Close
// when done.
func Open(ctx context.Context, opts OpenOptions) (*Setup, error) {
	cfg := opts.Config
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("txn: config: %w", err)
	}
	netCfg, err := wallet.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log, err = logger.New(logger.FromConfig(cfg))
		if err != nil {
			return nil, err
		}
	}

	params := netCfg.Params()
	var base network.Network
	if cfg.Network == "emulator" {
		// the emulator's slot counter starts now
		params.ZeroTimeMs = time.Now().UnixMilli()
		base = network.NewEmulator(params, log.Named("emulator"))
	} else {
		env := opts.Env
		if env == nil {
			env = network.EnvMap()
		}
		flags := &network.RPCConfig{URL: cfg.OgmiosURL}
		rc, err := network.ResolveConfig(flags, env, cfg.Network)
		if errors.Is(err, network.ErrNotConfigured) && opts.Discover != "" {
			urls, derr := network.DiscoverEndpoints(ctx, opts.Discover, opts.Resolver)
			if derr != nil {
				return nil, derr
			}
			log.Info("discovered endpoints", zap.String("domain", opts.Discover), zap.Strings("urls", urls))
			flags.URL = urls[0]
			rc, err = network.ResolveConfig(flags, env, cfg.Network)
		}
		if err != nil {
			return nil, err
		}
		base = network.NewRPCClient(*rc)
	}
	chain := network.NewChainBuilder(base)

	var w wallet.Wallet
	if opts.NewWallet != nil {
		if w, err = opts.NewWallet(netCfg, chain); err != nil {
			return nil, fmt.Errorf("txn: wallet: %w", err)
		}
	}

	var journal *batch.BoltJournal
	batchOpts := batch.Options{Logger: log.Named("batch")}
	if cfg.JournalPath != "" {
		if journal, err = batch.OpenBoltJournal(cfg.JournalPath); err != nil {
			return nil, err
		}
		batchOpts.Journal = journal
	}

	s, err := NewSetup(Options{
		Network: chain,
		Wallet:  w,
		Params:  params,
		Batcher: batch.NewBatcher(batchOpts),
		Logger:  log,
		Config:  &cfg,
		Chain:   chain,
	})
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, err
	}
	s.journal = journal
	log.Info("setup opened",
		zap.String("network", cfg.Network),
		zap.Bool("journal", journal != nil),
		zap.Bool("wallet", w != nil))
	return s, nil
}

// Chain returns the overlay queued transactions are recorded in, or nil.
func (s *Setup) Chain() *network.ChainBuilder { return s.chain }

// Close releases the journal and flushes the logger.
func (s *Setup) Close() error {
	var errs []error
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("txn: close journal: %w", err))
		}
		s.journal = nil
	}
	// syncing stderr fails on some platforms
	_ = s.log.Sync()
	return errors.Join(errs...)
}
