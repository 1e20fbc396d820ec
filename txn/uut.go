package txn

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/utxo"
)

// uutSuffixLen is the number of hex digits appended to a UUT purpose.
const uutSuffixLen = 12

// MkUutName derives the unique token name for purpose from the seed utxo.
// Spending the seed in the minting transaction makes the name unrepeatable.
func MkUutName(purpose string, seed ledger.TxOutputID) utxo.UutName {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], seed.Index)
	h := ledger.Blake2b256(seed.TxID[:], idx[:])
	return utxo.UutName{
		Purpose: purpose,
		Name:    purpose + "-" + hex.EncodeToString(h[:])[:uutSuffixLen],
	}
}

// AddSeedUtxo spends u and records it as the seed for UUT names.
func (c *Context) AddSeedUtxo(u *ledger.TxInput) error {
	if u == nil {
		return fmt.Errorf("%w: seed utxo", ErrNilParam)
	}
	if err := c.AddInput(u, nil); err != nil {
		return err
	}
	c.state.SeedUtxo = u
	return nil
}

// MintUuts mints one unique token per purpose under policy and records
// each name in the state. Repeating a purpose mints the same name twice.
func (c *Context) MintUuts(policy ledger.PolicyID, redeemer []byte, purposes ...string) ([]utxo.UutName, error) {
	seed := c.state.SeedUtxo
	if seed == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSeedUtxo, c.Name())
	}
	if err := c.mutable("MintUuts"); err != nil {
		return nil, err
	}
	tokens := make(map[string]int64, len(purposes))
	names := make([]utxo.UutName, 0, len(purposes))
	for _, p := range purposes {
		n := MkUutName(p, seed.ID)
		tokens[n.Name]++
		names = append(names, n)
	}
	if err := c.builder.Mint(policy, tokens, redeemer); err != nil {
		return nil, fmt.Errorf("txn: mint uuts in %s: %w", c.Name(), err)
	}
	c.markReal()
	for _, n := range names {
		c.AddUut(n.Purpose, n)
	}
	return names, nil
}

// MintTokens mints (or, with negative quantities, burns) tokens under policy.
func (c *Context) MintTokens(policy ledger.PolicyID, tokens map[string]int64, redeemer []byte) error {
	if len(tokens) == 0 {
		return fmt.Errorf("%w: tokens", ErrNilParam)
	}
	if err := c.mutable("MintTokens"); err != nil {
		return err
	}
	if err := c.builder.Mint(policy, tokens, redeemer); err != nil {
		return fmt.Errorf("txn: mint in %s: %w", c.Name(), err)
	}
	c.markReal()
	return nil
}
