package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"preprod\", \"preview\", or \"emulator\")")

	// ErrInvalidEndpoint indicates the Ogmios endpoint URL is malformed.
	ErrInvalidEndpoint = errors.New("config: invalid ogmios endpoint")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidDuration indicates a validity or yield duration is out of range.
	ErrInvalidDuration = errors.New("config: invalid duration")

	// ErrInvalidSlush indicates a negative budget slush.
	ErrInvalidSlush = errors.New("config: budget slush must not be negative")

	// ErrInvalidThreshold indicates a negative spare-utxo threshold.
	ErrInvalidThreshold = errors.New("config: spare threshold must not be negative")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
