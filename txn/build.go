package txn

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/diag"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/wallet"
)

// BuildOptions controls Build.
type BuildOptions struct {
	// Signers are required in addition to those added with AddSigner.
	Signers []ledger.Address
	// ChangeAddress overrides the wallet's change address.
	ChangeAddress *ledger.Address
	// Params are merged over the setup's parameters for this build.
	Params *ledger.NetworkParams
	// ExpectError skips the raw transaction dump when a script fails.
	ExpectError bool
}

// BuildResult is a built transaction with its signer bookkeeping.
type BuildResult struct {
	Tx *ledger.Tx
	// Signers are the key hashes registered as required signers.
	Signers        []ledger.PubKeyHash
	WalletMustSign bool
	Wallet         wallet.Wallet
	// OtherSigners are required signers the wallet does not hold.
	OtherSigners []ledger.PubKeyHash
	// Costs holds the budget of each script run, keyed "purpose[index]",
	// with slush applied.
	Costs     map[string]ledger.Cost
	TotalCost ledger.Cost

	walletKeys map[ledger.PubKeyHash]bool
}

// IsWalletSigner reports whether pkh is a required signer held by the wallet.
func (r *BuildResult) IsWalletSigner(pkh ledger.PubKeyHash) bool { return r.walletKeys[pkh] }

// FindAnySpareUtxos returns wallet utxos the builder may add for fees and
// balancing: unreserved, above the spare threshold, pure-ADA ones first.
func (c *Context) FindAnySpareUtxos(ctx context.Context) ([]*ledger.TxInput, error) {
	w := c.setup.wallet
	if w == nil {
		return nil, nil
	}
	utxos, err := w.Utxos(ctx)
	if err != nil {
		return nil, fmt.Errorf("txn: wallet utxos: %w", err)
	}
	return c.setup.helper.RankSpares(utxos, c.setup.cfg.SpareThreshold, c), nil
}

func (c *Context) isOwn(ctx context.Context, addr ledger.Address) (bool, error) {
	w := c.setup.wallet
	if w == nil {
		return false, nil
	}
	own, err := w.IsOwnAddress(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("txn: wallet address check: %w", err)
	}
	return own, nil
}

// Build balances and assembles the transaction. A script failure does not
// make Build fail: it is reported on BuildResult.Tx.Error and logged.
func (c *Context) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if c.facade == Facade {
		return nil, fmt.Errorf("%w: Build on %s", ErrFacade, c.Name())
	}
	if c.built != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyBuilt, c.Name())
	}
	c.facade = Real
	if c.validTo == nil {
		if err := c.ValidFor(c.setup.cfg.DefaultValidity); err != nil {
			return nil, err
		}
	}

	w := c.setup.wallet
	explicit := append(append([]ledger.Address(nil), c.signers...), opts.Signers...)
	if w == nil && len(explicit) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSigner, c.Name())
	}

	change, err := c.changeAddress(ctx, opts, explicit)
	if err != nil {
		return nil, err
	}
	spares, err := c.FindAnySpareUtxos(ctx)
	if err != nil {
		return nil, err
	}

	// wallet-owned key inputs always need the wallet's witness
	for _, in := range c.inputs {
		own, err := c.isOwn(ctx, in.Output.Address)
		if err != nil {
			return nil, err
		}
		if own {
			c.addWitness(in.Output.Address)
		}
	}

	res := &BuildResult{
		Wallet:     w,
		Costs:      make(map[string]ledger.Cost),
		walletKeys: make(map[ledger.PubKeyHash]bool),
	}
	seen := make(map[ledger.PubKeyHash]bool)
	for _, addr := range append(explicit, c.witnesses...) {
		pkh, ok := addr.PubKeyHash()
		if !ok || seen[pkh] {
			continue
		}
		seen[pkh] = true
		own, err := c.isOwn(ctx, addr)
		if err != nil {
			return nil, err
		}
		res.Signers = append(res.Signers, pkh)
		if own {
			res.walletKeys[pkh] = true
		} else {
			res.OtherSigners = append(res.OtherSigners, pkh)
		}
		c.builder.AddSigner(pkh)
	}

	imbalance := ledger.SumInputs(c.inputs).Add(ledger.Value{Assets: c.builder.Minted()}).
		Sub(ledger.SumOutputs(c.outputs))
	if !imbalance.IsZero() {
		c.diag.Logf("%s: unbalanced before change and fees: %s", c.Name(), imbalance)
	}

	cfg := c.setup.cfg
	hook := func(purpose ledger.RedeemerPurpose, index int, measured ledger.Cost) ledger.Cost {
		budget := ledger.Cost{
			Mem: measured.Mem + cfg.BudgetSlushMem + measured.Mem*cfg.BudgetSlushPercent/100,
			CPU: measured.CPU + cfg.BudgetSlushCPU + measured.CPU*cfg.BudgetSlushPercent/100,
		}
		res.Costs[fmt.Sprintf("%s[%d]", purpose, index)] = budget
		return budget
	}

	tx, err := c.builder.BuildUnsafe(ledger.BuildOptions{
		ChangeAddress:  change,
		SpareUtxos:     spares,
		Params:         opts.Params,
		Logger:         c.diag,
		ModifyExBudget: hook,
	})
	if err != nil {
		detail := c.describe(imbalance)
		c.diag.Error(fmt.Sprintf("build %s: %v", c.Name(), err))
		c.diag.Print(detail)
		c.diag.FlushError("tx build failed")
		return nil, &BuildError{Name: c.Name(), Cause: err, Detail: detail}
	}
	res.Tx = tx
	for _, cost := range res.Costs {
		res.TotalCost = res.TotalCost.Add(cost)
	}

	res.WalletMustSign = len(res.walletKeys) > 0
	if !res.WalletMustSign {
		for _, in := range append(append([]*ledger.TxInput(nil), tx.Body.Inputs...), tx.Body.Collateral...) {
			own, err := c.isOwn(ctx, in.Output.Address)
			if err != nil {
				return nil, err
			}
			if own {
				res.WalletMustSign = true
				break
			}
		}
	}

	if ve := tx.Error; ve != nil {
		c.diag.Error(fmt.Sprintf("%s failed validation: %s", c.Name(), ve.Message))
		c.diag.Print(diag.RenderFailureStack(ve))
		c.diag.Print(c.describe(imbalance))
		if !opts.ExpectError {
			c.diag.Print("tx hex: " + tx.Hex())
			c.diag.Print("script context:\n" + Dump(tx.Body.Redeemers))
		}
		c.diag.FlushError("tx validation failure")
	} else {
		c.diag.Flush()
		c.log.Debug("tx built",
			zap.String("name", c.Name()),
			zap.String("txid", tx.ID().Hex()),
			zap.Int64("fee", tx.Body.Fee),
			zap.Int("inputs", len(tx.Body.Inputs)),
			zap.Int("outputs", len(tx.Body.Outputs)))
	}

	c.built = res
	return res, nil
}

func (c *Context) changeAddress(ctx context.Context, opts BuildOptions, explicit []ledger.Address) (ledger.Address, error) {
	if opts.ChangeAddress != nil {
		return *opts.ChangeAddress, nil
	}
	if w := c.setup.wallet; w != nil {
		addr, err := w.ChangeAddress(ctx)
		if err != nil {
			return ledger.Address{}, fmt.Errorf("txn: change address: %w", err)
		}
		return addr, nil
	}
	for _, a := range explicit {
		if _, ok := a.PubKeyHash(); ok {
			return a, nil
		}
	}
	return ledger.Address{}, fmt.Errorf("%w: no change address for %s", ErrNoSigner, c.Name())
}

// describe renders the context for error reports.
func (c *Context) describe(imbalance ledger.Value) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "transaction %s\n", c.Name())
	fmt.Fprintf(&sb, "imbalance: %s\n", imbalance)
	fmt.Fprintf(&sb, "inputs:\n%s\n", DumpInputs(c.inputs))
	fmt.Fprintf(&sb, "outputs:\n%s\n", DumpOutputs(c.outputs))
	fmt.Fprintf(&sb, "minted:\n%s\n", DumpMinted(c.builder.Minted()))
	fmt.Fprintf(&sb, "reference inputs:\n%s", DumpInputs(c.refInputs))
	return sb.String()
}
