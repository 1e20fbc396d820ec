package network

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by ResolveConfig.
const (
	EnvOgmiosURL   = "STELLAR_OGMIOS_URL"
	EnvOgmiosToken = "STELLAR_OGMIOS_TOKEN"
)

// RPCConfig holds the connection parameters for an Ogmios endpoint.
type RPCConfig struct {
	URL     string `json:"url"`
	Token   string `json:"token"`
	Network string `json:"network"`
}

// NetworkPresets contains default endpoints for local development networks.
// Mainnet is intentionally omitted to require explicit configuration.
var NetworkPresets = map[string]RPCConfig{
	"preview": {URL: "http://localhost:1337"},
	"preprod": {URL: "http://localhost:1337"},
}

// EnvMap returns the process environment as a map, for ResolveConfig.
func EnvMap() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// ResolveConfig merges configuration with decreasing priority: flags, then
// environment (STELLAR_OGMIOS_URL, STELLAR_OGMIOS_TOKEN), then presets.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}
	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if v := env[EnvOgmiosURL]; v != "" {
		result.URL = v
	}
	if v := env[EnvOgmiosToken]; v != "" {
		result.Token = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.Token != "" {
			result.Token = flags.Token
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s requires an explicit endpoint (set --ogmios-url or %s)",
			ErrNotConfigured, network, EnvOgmiosURL)
	}
	return &result, nil
}
