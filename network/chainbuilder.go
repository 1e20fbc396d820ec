package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// ChainBuilder layers queued-but-unconfirmed transactions over a Network so
// a later transaction can spend outputs of an earlier one in the same chain.
// Outputs of queued transactions appear as utxos; their inputs disappear.
type ChainBuilder struct {
	base Network

	mu      sync.Mutex
	queued  []*ledger.Tx
	spent   map[ledger.TxOutputID]bool
	created map[ledger.TxOutputID]*ledger.TxInput
	order   []ledger.TxOutputID
}

var _ Network = (*ChainBuilder)(nil)

// NewChainBuilder wraps base.
func NewChainBuilder(base Network) *ChainBuilder {
	return &ChainBuilder{
		base:    base,
		spent:   make(map[ledger.TxOutputID]bool),
		created: make(map[ledger.TxOutputID]*ledger.TxInput),
	}
}

// Base returns the wrapped network.
func (c *ChainBuilder) Base() Network { return c.base }

// With records tx as part of the chain.
func (c *ChainBuilder) With(tx *ledger.Tx) *ChainBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queued = append(c.queued, tx)
	for _, in := range tx.Body.Inputs {
		c.spent[in.ID] = true
	}
	for _, u := range tx.OutputUtxos() {
		c.created[u.ID] = u
		c.order = append(c.order, u.ID)
	}
	return c
}

// Queued returns the transactions added with With, in order.
func (c *ChainBuilder) Queued() []*ledger.Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ledger.Tx(nil), c.queued...)
}

// GetUtxos returns base utxos not spent by the chain, then chain outputs at addr.
func (c *ChainBuilder) GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error) {
	base, err := c.base.GetUtxos(ctx, addr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[ledger.TxOutputID]bool)
	var out []*ledger.TxInput
	for _, u := range base {
		if c.spent[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	for _, id := range c.order {
		u := c.created[id]
		if c.spent[id] || seen[id] || u.Output.Address != addr {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// GetUtxo resolves an output through the chain first.
func (c *ChainBuilder) GetUtxo(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error) {
	c.mu.Lock()
	spent := c.spent[id]
	u, created := c.created[id]
	c.mu.Unlock()

	switch {
	case spent:
		return nil, fmt.Errorf("%w: %s spent by a queued tx", ErrUtxoNotFound, id)
	case created:
		return u, nil
	}
	return c.base.GetUtxo(ctx, id)
}

// Submit passes through to the base network.
func (c *ChainBuilder) Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error) {
	return c.base.Submit(ctx, tx)
}

// Parameters passes through to the base network.
func (c *ChainBuilder) Parameters(ctx context.Context) (*ledger.NetworkParams, error) {
	return c.base.Parameters(ctx)
}
