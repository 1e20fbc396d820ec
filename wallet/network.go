package wallet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// NetworkConfig names a Cardano network and the slot clock that goes with it.
type NetworkConfig struct {
	Name         string           `json:"name"`
	NetworkID    ledger.NetworkID `json:"network_id"`
	ZeroTimeMs   int64            `json:"zero_time_ms"`
	ZeroSlot     int64            `json:"zero_slot"`
	SlotLengthMs int64            `json:"slot_length_ms"`
	OgmiosURL    string           `json:"ogmios_url,omitempty"`
}

// Predefined network configurations.
var (
	Mainnet = NetworkConfig{
		Name:         "mainnet",
		NetworkID:    ledger.Mainnet,
		ZeroTimeMs:   1596059091000,
		ZeroSlot:     4492800,
		SlotLengthMs: 1000,
	}

	Preprod = NetworkConfig{
		Name:         "preprod",
		NetworkID:    ledger.Testnet,
		ZeroTimeMs:   1655769600000,
		ZeroSlot:     86400,
		SlotLengthMs: 1000,
	}

	Preview = NetworkConfig{
		Name:         "preview",
		NetworkID:    ledger.Testnet,
		ZeroTimeMs:   1666656000000,
		ZeroSlot:     0,
		SlotLengthMs: 1000,
	}

	// Emulator is the in-memory test network; slot zero is the unix epoch.
	Emulator = NetworkConfig{
		Name:         "emulator",
		NetworkID:    ledger.Testnet,
		SlotLengthMs: 1000,
	}
)

var predefined = map[string]*NetworkConfig{
	"mainnet":  &Mainnet,
	"preprod":  &Preprod,
	"preview":  &Preview,
	"emulator": &Emulator,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// Params returns default protocol parameters with this network's slot clock.
func (n *NetworkConfig) Params() *ledger.NetworkParams {
	p := ledger.DefaultParams()
	p.ZeroTimeMs = n.ZeroTimeMs
	p.ZeroSlot = n.ZeroSlot
	if n.SlotLengthMs > 0 {
		p.SlotLengthMs = n.SlotLengthMs
	}
	return p
}

// LoadCustomNetwork loads a NetworkConfig from a JSON file.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read network config: %w", err)
	}

	var config NetworkConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("wallet: failed to parse network config: %w", err)
	}
	if config.Name == "" {
		return nil, fmt.Errorf("wallet: network config must have a name")
	}
	return &config, nil
}
