package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

var _ Network = (*RPCClient)(nil)

type ogmiosTxRef struct {
	ID string `json:"id"`
}

type ogmiosOutputRef struct {
	Transaction ogmiosTxRef `json:"transaction"`
	Index       uint32      `json:"index"`
}

// ogmiosValue is {"ada":{"lovelace":n}, "<policy hex>":{"<name hex>":n}}.
type ogmiosValue map[string]map[string]int64

type ogmiosUtxo struct {
	Transaction ogmiosTxRef `json:"transaction"`
	Index       uint32      `json:"index"`
	Address     string      `json:"address"`
	Value       ogmiosValue `json:"value"`
	DatumHash   string      `json:"datumHash,omitempty"`
	Datum       string      `json:"datum,omitempty"`
}

func (v ogmiosValue) toValue() (ledger.Value, error) {
	out := ledger.Value{Lovelace: v["ada"]["lovelace"], Assets: ledger.NewAssets()}
	for policyHex, tokens := range v {
		if policyHex == "ada" {
			continue
		}
		policy, err := ledger.ParsePolicyID(policyHex)
		if err != nil {
			return out, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		for nameHex, qty := range tokens {
			name, err := hex.DecodeString(nameHex)
			if err != nil {
				return out, fmt.Errorf("%w: asset name %q", ErrInvalidResponse, nameHex)
			}
			out.Assets.Add(policy, string(name), qty)
		}
	}
	return out, nil
}

func (u *ogmiosUtxo) toInput() (*ledger.TxInput, error) {
	txid, err := ledger.ParseTxID(u.Transaction.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	addr, err := ledger.ParseAddress(u.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	value, err := u.Value.toValue()
	if err != nil {
		return nil, err
	}
	out := ledger.NewTxOutput(addr, value)
	if u.Datum != "" {
		data, err := hex.DecodeString(u.Datum)
		if err != nil {
			return nil, fmt.Errorf("%w: datum: %w", ErrInvalidResponse, err)
		}
		out.Datum = &ledger.Datum{Inline: true, Data: data}
	}
	return ledger.NewTxInput(ledger.TxOutputID{TxID: txid, Index: u.Index}, out), nil
}

// GetUtxos calls queryLedgerState/utxo filtered by address.
func (c *RPCClient) GetUtxos(ctx context.Context, addr ledger.Address) ([]*ledger.TxInput, error) {
	params := map[string]interface{}{"addresses": []string{addr.String()}}
	return c.queryUtxos(ctx, params)
}

// GetUtxo calls queryLedgerState/utxo filtered by output reference.
func (c *RPCClient) GetUtxo(ctx context.Context, id ledger.TxOutputID) (*ledger.TxInput, error) {
	params := map[string]interface{}{
		"outputReferences": []ogmiosOutputRef{{Transaction: ogmiosTxRef{ID: id.TxID.Hex()}, Index: id.Index}},
	}
	utxos, err := c.queryUtxos(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUtxoNotFound, id)
	}
	return utxos[0], nil
}

func (c *RPCClient) queryUtxos(ctx context.Context, params interface{}) ([]*ledger.TxInput, error) {
	var results []ogmiosUtxo
	if err := c.Call(ctx, "queryLedgerState/utxo", params, &results); err != nil {
		return nil, err
	}
	out := make([]*ledger.TxInput, 0, len(results))
	for i := range results {
		in, err := results[i].toInput()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

type submitResult struct {
	Transaction ogmiosTxRef `json:"transaction"`
}

// Submit calls submitTransaction. Server-side rejections wrap ErrSubmitRejected.
func (c *RPCClient) Submit(ctx context.Context, tx *ledger.Tx) (ledger.TxID, error) {
	params := map[string]interface{}{"transaction": map[string]string{"cbor": tx.Hex()}}
	var res submitResult
	if err := c.Call(ctx, "submitTransaction", params, &res); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return ledger.TxID{}, fmt.Errorf("%w: %s", ErrSubmitRejected, rpcErr.Message)
		}
		return ledger.TxID{}, err
	}
	id, err := ledger.ParseTxID(res.Transaction.ID)
	if err != nil {
		return ledger.TxID{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return id, nil
}

type ogmiosLovelace struct {
	Ada struct {
		Lovelace int64 `json:"lovelace"`
	} `json:"ada"`
}

type ogmiosParams struct {
	MinFeeCoefficient         int64          `json:"minFeeCoefficient"`
	MinFeeConstant            ogmiosLovelace `json:"minFeeConstant"`
	MinUtxoDepositCoefficient int64          `json:"minUtxoDepositCoefficient"`
	MaxTransactionSize        struct {
		Bytes int `json:"bytes"`
	} `json:"maxTransactionSize"`
	ScriptExecutionPrices struct {
		Memory string `json:"memory"`
		CPU    string `json:"cpu"`
	} `json:"scriptExecutionPrices"`
	MaxExecutionUnitsPerTransaction struct {
		Memory int64 `json:"memory"`
		CPU    int64 `json:"cpu"`
	} `json:"maxExecutionUnitsPerTransaction"`
	CollateralPercentage int64 `json:"collateralPercentage"`
	MaxCollateralInputs  int   `json:"maxCollateralInputs"`
}

// parseRatio decodes "num/den".
func parseRatio(s string) (int64, int64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: ratio %q", ErrInvalidResponse, s)
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: ratio %q", ErrInvalidResponse, s)
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil || d == 0 {
		return 0, 0, fmt.Errorf("%w: ratio %q", ErrInvalidResponse, s)
	}
	return n, d, nil
}

// Parameters calls queryLedgerState/protocolParameters. Fields the endpoint
// leaves out keep their DefaultParams values.
func (c *RPCClient) Parameters(ctx context.Context) (*ledger.NetworkParams, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "queryLedgerState/protocolParameters", nil, &raw); err != nil {
		return nil, err
	}
	var op ogmiosParams
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("%w: protocol parameters: %w", ErrInvalidResponse, err)
	}

	override := &ledger.NetworkParams{
		MinFeeA:           op.MinFeeCoefficient,
		MinFeeB:           op.MinFeeConstant.Ada.Lovelace,
		CoinsPerUTxOByte:  op.MinUtxoDepositCoefficient,
		MaxTxSize:         op.MaxTransactionSize.Bytes,
		MaxTxExMem:        op.MaxExecutionUnitsPerTransaction.Memory,
		MaxTxExCPU:        op.MaxExecutionUnitsPerTransaction.CPU,
		CollateralPercent: op.CollateralPercentage,
		MaxCollateral:     op.MaxCollateralInputs,
	}
	if op.ScriptExecutionPrices.Memory != "" {
		n, d, err := parseRatio(op.ScriptExecutionPrices.Memory)
		if err != nil {
			return nil, err
		}
		override.PriceMemNum, override.PriceMemDen = n, d
	}
	if op.ScriptExecutionPrices.CPU != "" {
		n, d, err := parseRatio(op.ScriptExecutionPrices.CPU)
		if err != nil {
			return nil, err
		}
		override.PriceStepNum, override.PriceStepDen = n, d
	}
	return ledger.DefaultParams().Merge(override), nil
}
