package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validNetworks lists the accepted network names.
var validNetworks = map[string]bool{
	"mainnet":  true,
	"preprod":  true,
	"preview":  true,
	"emulator": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetworks[cfg.Network] {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.OgmiosURL != "" {
		if err := validateURL(cfg.OgmiosURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
		}
	}

	if cfg.DefaultValidity <= 0 {
		return fmt.Errorf("%w: validity %s", ErrInvalidDuration, cfg.DefaultValidity)
	}
	if cfg.ValidityBackdate < 0 {
		return fmt.Errorf("%w: backdate %s", ErrInvalidDuration, cfg.ValidityBackdate)
	}
	if cfg.ChainYield < 0 {
		return fmt.Errorf("%w: chainyield %s", ErrInvalidDuration, cfg.ChainYield)
	}

	if cfg.BudgetSlushCPU < 0 || cfg.BudgetSlushMem < 0 || cfg.BudgetSlushPercent < 0 {
		return ErrInvalidSlush
	}
	if cfg.SpareThreshold < 0 {
		return ErrInvalidThreshold
	}

	return nil
}

// validateURL checks that raw is an absolute http(s) or ws(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
