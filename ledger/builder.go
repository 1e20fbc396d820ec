package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// maxFeeIterations bounds the fee fixed-point loop.
const maxFeeIterations = 16

// witnessBytesPerKey approximates the encoded size of one key witness.
const witnessBytesPerKey = 110

// ScriptLogger receives trace lines emitted by validators.
type ScriptLogger interface {
	LogPrint(line string)
}

// BudgetHook may adjust the measured cost of one script execution before it is
// written to the redeemer.
type BudgetHook func(purpose RedeemerPurpose, index int, measured Cost) Cost

// BuildOptions controls BuildUnsafe.
type BuildOptions struct {
	ChangeAddress  Address
	SpareUtxos     []*TxInput     // consumed in the given order when inputs fall short
	Params         *NetworkParams // non-zero fields override the builder's params
	Logger         ScriptLogger
	ModifyExBudget BudgetHook
}

type mintEntry struct {
	tokens   map[string]int64
	redeemer []byte
}

// TxBuilder accumulates the parts of a transaction and balances it on build.
type TxBuilder struct {
	params     *NetworkParams
	inputs     []*TxInput
	spendData  map[TxOutputID][]byte
	refInputs  []*TxInput
	collateral []*TxInput
	outputs    []*TxOutput
	mints      map[PolicyID]*mintEntry
	scripts    map[ScriptHash]Validator
	validFrom  *int64
	validTo    *int64
	signers    []PubKeyHash
}

// NewTxBuilder returns an empty builder. A nil params uses DefaultParams.
func NewTxBuilder(params *NetworkParams) *TxBuilder {
	if params == nil {
		params = DefaultParams()
	}
	return &TxBuilder{
		params:    params,
		spendData: make(map[TxOutputID][]byte),
		mints:     make(map[PolicyID]*mintEntry),
		scripts:   make(map[ScriptHash]Validator),
	}
}

// Params returns the parameters the builder was created with.
func (b *TxBuilder) Params() *NetworkParams { return b.params }

func (b *TxBuilder) used(id TxOutputID) bool {
	return ContainsInput(b.inputs, id) || ContainsInput(b.refInputs, id)
}

// Spend adds an input. Script-locked inputs need redeemer data.
func (b *TxBuilder) Spend(in *TxInput, redeemer []byte) error {
	if in == nil {
		return fmt.Errorf("%w: input", ErrNilParam)
	}
	if b.used(in.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateInput, in.ID)
	}
	if _, isScript := in.Output.Address.ScriptHash(); isScript {
		if len(redeemer) == 0 {
			return fmt.Errorf("%w: script input %s", ErrMissingRedeemer, in.ID)
		}
		b.spendData[in.ID] = redeemer
	}
	b.inputs = append(b.inputs, in)
	return nil
}

// AddOutput appends an output. An output with zero lovelace is raised to its
// minimum; one with some lovelace below the minimum is rejected.
func (b *TxBuilder) AddOutput(out *TxOutput) error {
	if out == nil {
		return fmt.Errorf("%w: output", ErrNilParam)
	}
	if out.Address.IsZero() {
		return fmt.Errorf("%w: output has no address", ErrInvalidAddress)
	}
	if out.Value.Lovelace < 0 || out.Value.Assets.HasNegative() {
		return fmt.Errorf("%w: output value %s", ErrInvalidValue, out.Value)
	}
	min := b.params.MinLovelace(out)
	switch {
	case out.Value.Lovelace == 0:
		out.Value.Lovelace = min
	case out.Value.Lovelace < min:
		return fmt.Errorf("%w: %s < %s", ErrOutputBelowMinimum,
			FormatADA(out.Value.Lovelace), FormatADA(min))
	}
	b.outputs = append(b.outputs, out)
	return nil
}

// Refer adds a read-only reference input.
func (b *TxBuilder) Refer(in *TxInput) error {
	if in == nil {
		return fmt.Errorf("%w: reference input", ErrNilParam)
	}
	if b.used(in.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateInput, in.ID)
	}
	b.refInputs = append(b.refInputs, in)
	return nil
}

// AddCollateral pledges a pure-ADA utxo as collateral.
func (b *TxBuilder) AddCollateral(in *TxInput) error {
	if in == nil {
		return fmt.Errorf("%w: collateral", ErrNilParam)
	}
	if !in.Output.Value.IsPureADA() {
		return fmt.Errorf("%w: collateral %s carries tokens", ErrInvalidValue, in.ID)
	}
	if ContainsInput(b.collateral, in.ID) {
		return fmt.Errorf("%w: collateral %s", ErrDuplicateInput, in.ID)
	}
	b.collateral = append(b.collateral, in)
	return nil
}

// Mint adds tokens minted (positive) or burned (negative) under a policy.
// Repeated calls for the same policy accumulate; the last redeemer wins.
func (b *TxBuilder) Mint(policy PolicyID, tokens map[string]int64, redeemer []byte) error {
	if len(redeemer) == 0 {
		return fmt.Errorf("%w: mint under policy %s", ErrMissingRedeemer, policy.Hex())
	}
	e, ok := b.mints[policy]
	if !ok {
		e = &mintEntry{tokens: make(map[string]int64)}
		b.mints[policy] = e
	}
	for name, qty := range tokens {
		e.tokens[name] += qty
	}
	e.redeemer = redeemer
	return nil
}

// AttachScript adds a validator witness.
func (b *TxBuilder) AttachScript(v Validator) {
	if v != nil {
		b.scripts[v.Hash()] = v
	}
}

// ValidFromSlot sets the inclusive lower validity bound.
func (b *TxBuilder) ValidFromSlot(slot int64) { b.validFrom = &slot }

// ValidToSlot sets the exclusive upper validity bound.
func (b *TxBuilder) ValidToSlot(slot int64) { b.validTo = &slot }

// AddSigner declares a key whose signature the transaction requires.
func (b *TxBuilder) AddSigner(pkh PubKeyHash) {
	if !b.HasSigner(pkh) {
		b.signers = append(b.signers, pkh)
	}
}

// HasSigner reports whether the key was declared with AddSigner.
func (b *TxBuilder) HasSigner(pkh PubKeyHash) bool {
	for _, s := range b.signers {
		if s == pkh {
			return true
		}
	}
	return false
}

// Signers returns the declared signers.
func (b *TxBuilder) Signers() []PubKeyHash { return append([]PubKeyHash(nil), b.signers...) }

// Minted returns the net minted assets.
func (b *TxBuilder) Minted() Assets {
	out := NewAssets()
	for p, e := range b.mints {
		for n, q := range e.tokens {
			out.Add(p, n, q)
		}
	}
	return out
}

func (b *TxBuilder) findValidator(h ScriptHash) Validator {
	if v, ok := b.scripts[h]; ok {
		return v
	}
	for _, ref := range b.refInputs {
		if ref.Output.RefScript != nil && ref.Output.RefScript.Hash() == h {
			return ref.Output.RefScript
		}
	}
	return nil
}

// BuildUnsafe balances and assembles the transaction. Script failures are
// reported on Tx.Error; the returned error is reserved for transactions that
// cannot be assembled at all.
func (b *TxBuilder) BuildUnsafe(opts BuildOptions) (*Tx, error) {
	params := b.params.Merge(opts.Params)
	if opts.ChangeAddress.IsZero() {
		return nil, fmt.Errorf("%w: change address required", ErrInvalidAddress)
	}
	if b.validFrom != nil && b.validTo != nil && *b.validFrom >= *b.validTo {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidValidity, *b.validFrom, *b.validTo)
	}
	for _, in := range b.inputs {
		if h, ok := in.Output.Address.ScriptHash(); ok && b.findValidator(h) == nil {
			return nil, fmt.Errorf("%w: %s for input %s", ErrMissingScript, h.Hex(), in.ID)
		}
	}
	for p := range b.mints {
		if b.findValidator(ScriptHash(p)) == nil {
			return nil, fmt.Errorf("%w: minting policy %s", ErrMissingScript, p.Hex())
		}
	}

	minted := b.Minted()
	spent := append([]*TxInput(nil), b.inputs...)
	var spares []*TxInput
	for _, s := range opts.SpareUtxos {
		if s != nil && !b.used(s.ID) {
			spares = append(spares, s)
		}
	}
	outTotal := SumOutputs(b.outputs)

	var (
		fee  int64
		tx   *Tx
		logs []string
	)
	for iter := 0; ; iter++ {
		if iter >= maxFeeIterations {
			return nil, fmt.Errorf("%w: last fee %d", ErrFeeNotConverged, fee)
		}

		// Pull spares until inputs and mint cover outputs, fee and a valid change output.
		var change Value
		for {
			have := SumInputs(spent).Add(Value{Assets: minted})
			change = have.Sub(outTotal).Sub(NewValue(fee))
			short := change.Lovelace < 0 || change.Assets.HasNegative()
			if !short && !change.IsZero() &&
				change.Lovelace < params.MinLovelaceFor(opts.ChangeAddress, change) {
				short = true
			}
			if !short {
				break
			}
			next := pickSpare(spares, change)
			if next < 0 {
				if change.Lovelace >= 0 && !change.Assets.HasNegative() && change.IsPureADA() {
					// dust change goes to the fee
					fee += change.Lovelace
					change = NewValue(0)
					break
				}
				return nil, fmt.Errorf("%w: need %s have %s", ErrInsufficientFunds,
					outTotal.Add(NewValue(fee)), have)
			}
			spent = append(spent, spares[next])
			spares = append(spares[:next], spares[next+1:]...)
		}

		body := TxBody{
			Inputs:     sortedInputs(spent),
			RefInputs:  sortedInputs(b.refInputs),
			Collateral: append([]*TxInput(nil), b.collateral...),
			Outputs:    append([]*TxOutput(nil), b.outputs...),
			Mint:       minted.Clone(),
			Fee:        fee,
			ValidFrom:  b.validFrom,
			ValidTo:    b.validTo,
			Signers:    append([]PubKeyHash(nil), b.signers...),
		}
		if !change.IsZero() {
			body.Outputs = append(body.Outputs, NewTxOutput(opts.ChangeAddress, change))
		}
		tx = &Tx{Body: body}

		var cost Cost
		cost, logs = b.evaluate(tx, opts.ModifyExBudget)
		if cost.Mem > params.MaxTxExMem || cost.CPU > params.MaxTxExCPU {
			if tx.Error == nil {
				tx.Error = &ValidationError{Message: fmt.Sprintf("%s: mem %d cpu %d",
					ErrBudgetExceeded, cost.Mem, cost.CPU)}
			}
		}

		if len(tx.Body.Redeemers) > 0 && len(tx.Body.Collateral) == 0 {
			c := chooseCollateral(spares, spent, params.CollateralRequired(fee))
			if c == nil {
				return nil, fmt.Errorf("%w: need %s pure-ADA", ErrNoCollateral,
					FormatADA(params.CollateralRequired(fee)))
			}
			tx.Body.Collateral = []*TxInput{c}
		}

		for _, v := range b.scripts {
			tx.Witnesses.Scripts = append(tx.Witnesses.Scripts, v)
		}
		sort.Slice(tx.Witnesses.Scripts, func(i, j int) bool {
			hi, hj := tx.Witnesses.Scripts[i].Hash(), tx.Witnesses.Scripts[j].Hash()
			return bytes.Compare(hi[:], hj[:]) < 0
		})

		size := len(tx.Bytes()) + witnessBytesPerKey*len(tx.RequiredKeyHashes())
		need := params.Fee(size, cost)
		if need <= fee {
			break
		}
		fee = need
	}

	if opts.Logger != nil {
		for _, l := range logs {
			opts.Logger.LogPrint(l)
		}
	}
	return tx, nil
}

// evaluate runs every validator the body invokes, fills in redeemers, and
// records the first failure on tx.Error.
func (b *TxBuilder) evaluate(tx *Tx, hook BudgetHook) (Cost, []string) {
	var (
		total Cost
		logs  []string
	)
	run := func(v Validator, sc *ScriptContext) Cost {
		measured, lines, err := v.Evaluate(sc)
		logs = append(logs, lines...)
		if err != nil && tx.Error == nil {
			ve := &ValidationError{
				Message:    err.Error(),
				Purpose:    sc.Purpose,
				Index:      sc.Index,
				ScriptHash: v.Hash(),
				Logs:       append([]string(nil), lines...),
			}
			var se *ScriptError
			if errors.As(err, &se) {
				ve.Stack = append([]string(nil), se.Stack...)
			}
			tx.Error = ve
		}
		if hook != nil {
			measured = hook(sc.Purpose, sc.Index, measured)
		}
		return measured
	}

	for i, in := range tx.Body.Inputs {
		h, ok := in.Output.Address.ScriptHash()
		if !ok {
			continue
		}
		data := b.spendData[in.ID]
		sc := &ScriptContext{Tx: &tx.Body, Purpose: Spending, Index: i, Redeemer: data, Spending: in}
		c := run(b.findValidator(h), sc)
		total = total.Add(c)
		tx.Body.Redeemers = append(tx.Body.Redeemers, Redeemer{Purpose: Spending, Index: i, Data: data, Cost: c})
	}
	for i, p := range sortedPolicies(b.mints) {
		data := b.mints[p].redeemer
		sc := &ScriptContext{Tx: &tx.Body, Purpose: Minting, Index: i, Redeemer: data, Policy: p}
		c := run(b.findValidator(ScriptHash(p)), sc)
		total = total.Add(c)
		tx.Body.Redeemers = append(tx.Body.Redeemers, Redeemer{Purpose: Minting, Index: i, Data: data, Cost: c})
	}
	return total, logs
}

// pickSpare returns the index of the next spare that helps cover the
// shortfall in change, or -1.
func pickSpare(spares []*TxInput, change Value) int {
	for i, s := range spares {
		if change.Lovelace < 0 || !change.Assets.HasNegative() {
			return i
		}
		for p, tokens := range change.Assets {
			for n, q := range tokens {
				if q < 0 && s.Output.Value.Assets.Get(p, n) > 0 {
					return i
				}
			}
		}
	}
	return -1
}

func chooseCollateral(spares, spent []*TxInput, min int64) *TxInput {
	for _, list := range [][]*TxInput{spares, spent} {
		for _, u := range list {
			if _, key := u.Output.Address.PubKeyHash(); !key {
				continue
			}
			if u.Output.Value.IsPureADA() && u.Output.Value.Lovelace >= min {
				return u
			}
		}
	}
	return nil
}

func sortedInputs(list []*TxInput) []*TxInput {
	out := append([]*TxInput(nil), list...)
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].ID.TxID[:], out[j].ID.TxID[:]); c != 0 {
			return c < 0
		}
		return out[i].ID.Index < out[j].ID.Index
	})
	return out
}

func sortedPolicies(m map[PolicyID]*mintEntry) []PolicyID {
	out := make([]PolicyID, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
