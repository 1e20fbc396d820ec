package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

const (
	// CIP-1852 path constants.
	PurposeCIP1852  = 1852
	CoinTypeCardano = 1815

	// Roles.
	ExternalRole = 0 // receive addresses
	ChangeRole   = 1 // change addresses

	// MaxIndex is the largest non-hardened child index.
	MaxIndex = 1<<31 - 1

	// Hardened is the BIP32 hardened offset.
	Hardened = 0x80000000
)

// HDKeys derives payment keys from a BIP39 seed along
// m/1852'/1815'/account'/role/index.
type HDKeys struct {
	masterKey *bip32.ExtendedKey
	network   *NetworkConfig
}

// KeyPair holds a derived key and the address it controls.
type KeyPair struct {
	PrivateKey *ec.PrivateKey    `json:"-"`
	PublicKey  *ec.PublicKey     `json:"public_key"`
	KeyHash    ledger.PubKeyHash `json:"key_hash"`
	Address    ledger.Address    `json:"address"`
	Path       string            `json:"path"`
}

// NewHDKeys creates the master key from a BIP39 seed.
func NewHDKeys(seed []byte, network *NetworkConfig) (*HDKeys, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &Mainnet
	}

	params := &chaincfg.TestNet
	if network.NetworkID == ledger.Mainnet {
		params = &chaincfg.MainNet
	}
	masterKey, err := bip32.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &HDKeys{masterKey: masterKey, network: network}, nil
}

// Network returns the network the keys produce addresses for.
func (h *HDKeys) Network() *NetworkConfig { return h.network }

// Derive returns the key pair at m/1852'/1815'/account'/role/index.
func (h *HDKeys) Derive(account, role, index uint32) (*KeyPair, error) {
	for _, v := range []uint32{account, role, index} {
		if v > MaxIndex {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, v)
		}
	}

	key := h.masterKey
	steps := []struct {
		name  string
		child uint32
	}{
		{"purpose", PurposeCIP1852 + Hardened},
		{"coin type", CoinTypeCardano + Hardened},
		{"account", account + Hardened},
		{"role", role},
		{"index", index},
	}
	for _, s := range steps {
		next, err := key.Child(s.child)
		if err != nil {
			return nil, fmt.Errorf("%w: %s derivation: %w", ErrDerivationFailed, s.name, err)
		}
		key = next
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}
	pub := priv.PubKey()
	pkh := ledger.PubKeyHashOf(pub)
	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		KeyHash:    pkh,
		Address:    ledger.NewKeyAddress(h.network.NetworkID, pkh),
		Path:       fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", PurposeCIP1852, CoinTypeCardano, account, role, index),
	}, nil
}
