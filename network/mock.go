package network

import (
	"context"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

// MockNetwork is a test double for Network.
// All function fields must be set before the corresponding method is called.
type MockNetwork struct {
	GetUtxosFn   func(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error)
	GetUtxoFn    func(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error)
	SubmitFn     func(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error)
	ParametersFn func(ctx context.Context) (*ledger.NetworkParams, error)
}

var _ Network = (*MockNetwork)(nil)

func (m *MockNetwork) GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error) {
	return m.GetUtxosFn(ctx, addr)
}
func (m *MockNetwork) GetUtxo(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error) {
	return m.GetUtxoFn(ctx, id)
}
func (m *MockNetwork) Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error) {
	return m.SubmitFn(ctx, tx)
}
func (m *MockNetwork) Parameters(ctx context.Context) (*ledger.NetworkParams, error) {
	return m.ParametersFn(ctx)
}
