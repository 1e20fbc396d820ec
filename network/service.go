// Package network is the chain side of transaction building: utxo lookup,
// submission and protocol parameters, with an in-memory Emulator for tests,
// a ChainBuilder overlay for chained transactions, and an Ogmios client.
package network

import (
	"context"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// Network is the primary interface to a Cardano node or simulation.
type Network interface {
	// GetUtxos returns the unspent outputs at an address.
	GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error)

	// GetUtxo returns one unspent output. ErrUtxoNotFound if it is missing or spent.
	GetUtxo(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error)

	// Submit sends a signed transaction and returns its id.
	Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error)

	// Parameters returns the current protocol parameters.
	Parameters(ctx context.Context) (*ledger.NetworkParams, error)
}

// Ticker is implemented by simulated networks whose clock advances on demand.
type Ticker interface {
	Tick(slots int64)
	CurrentSlot() int64
}
