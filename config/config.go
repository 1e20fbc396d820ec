// Package config holds the settings threaded through the transaction
// context, the batch controller and the network clients. Settings are read
// from a simple "key = value" file; nothing here is process-wide.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the SDK settings.
type Config struct {
	DataDir  string // base directory for journals and logs
	Network  string // mainnet, preprod, preview or emulator
	LogLevel string // debug, info, warn or error
	LogFile  string // empty means stderr

	// OgmiosURL overrides the network preset endpoint when set.
	OgmiosURL string

	// DefaultValidity is the validity window applied when a context sets none.
	DefaultValidity time.Duration
	// ValidityBackdate moves the window start into the past to absorb clock skew.
	ValidityBackdate time.Duration

	// BudgetSlushCPU and BudgetSlushMem are execution units added to every
	// evaluated script budget. BudgetSlushPercent adds a share of the
	// measured cost on top.
	BudgetSlushCPU     int64
	BudgetSlushMem     int64
	BudgetSlushPercent int64

	// SpareThreshold is the lovelace a spare utxo must carry to be offered
	// to the builder for fees and balancing.
	SpareThreshold int64

	// ChainYield is the pause between steps of the chain resolution pipeline.
	// Zero means no pause.
	ChainYield time.Duration

	// JournalPath is the bbolt batch journal. Empty disables journaling.
	JournalPath string
}

// DefaultDataDir returns the default data directory (~/.stellar).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stellar"
	}
	return filepath.Join(home, ".stellar")
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Network:          "preprod",
		LogLevel:         "info",
		DefaultValidity:  12 * time.Minute,
		ValidityBackdate: 60 * time.Second,
		BudgetSlushCPU:   1_000_000,
		BudgetSlushMem:   10_000,
		SpareThreshold:   5_000_000,
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads the file at path and applies it on top of DefaultConfig.
// Blank lines and lines starting with '#' are ignored, as are unknown keys.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "ogmios":
		c.OgmiosURL = value
	case "validity":
		c.DefaultValidity, err = time.ParseDuration(value)
	case "backdate":
		c.ValidityBackdate, err = time.ParseDuration(value)
	case "slushcpu":
		c.BudgetSlushCPU, err = strconv.ParseInt(value, 10, 64)
	case "slushmem":
		c.BudgetSlushMem, err = strconv.ParseInt(value, 10, 64)
	case "slushpct":
		c.BudgetSlushPercent, err = strconv.ParseInt(value, 10, 64)
	case "sparethreshold":
		c.SpareThreshold, err = strconv.ParseInt(value, 10, 64)
	case "chainyield":
		c.ChainYield, err = time.ParseDuration(value)
	case "journal":
		c.JournalPath = value
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Stellar Contracts Configuration\n\n")
	fmt.Fprintf(&sb, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&sb, "network = %s\n", cfg.Network)
	fmt.Fprintf(&sb, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&sb, "ogmios = %s\n", cfg.OgmiosURL)
	sb.WriteString("\n# Transaction building\n")
	fmt.Fprintf(&sb, "validity = %s\n", cfg.DefaultValidity)
	fmt.Fprintf(&sb, "backdate = %s\n", cfg.ValidityBackdate)
	fmt.Fprintf(&sb, "slushcpu = %d\n", cfg.BudgetSlushCPU)
	fmt.Fprintf(&sb, "slushmem = %d\n", cfg.BudgetSlushMem)
	fmt.Fprintf(&sb, "slushpct = %d\n", cfg.BudgetSlushPercent)
	fmt.Fprintf(&sb, "sparethreshold = %d\n", cfg.SpareThreshold)
	sb.WriteString("\n# Batch submission\n")
	fmt.Fprintf(&sb, "chainyield = %s\n", cfg.ChainYield)
	fmt.Fprintf(&sb, "journal = %s\n", cfg.JournalPath)

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
