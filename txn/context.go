package txn

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/donecollectively/stellar-contracts-sub001/diag"
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/utxo"
)

// Context accumulates one transaction under construction. It is not safe
// for concurrent use; a chain of contexts is resolved sequentially.
type Context struct {
	id       string
	name     string
	parentID string
	depth    int
	setup    *Setup
	log      *zap.Logger
	diag     *diag.ConsoleLogger

	facade  FacadeState
	builder *ledger.TxBuilder

	inputs     []*ledger.TxInput
	outputs    []*ledger.TxOutput
	collateral *ledger.TxInput
	refInputs  []*ledger.TxInput
	signers    []ledger.Address
	witnesses  []ledger.Address
	// reserved by child contexts
	childReserved []*ledger.TxInput

	futureDate *time.Time
	validFrom  *time.Time
	validTo    *time.Time

	state State
	built *BuildResult
}

var _ utxo.Reserver = (*Context)(nil)

// NewContext creates a root context registered with s.
func (s *Setup) NewContext(name string) *Context {
	return s.newContext(name, "")
}

func (s *Setup) newContext(name, parentID string) *Context {
	c := &Context{
		id:       uuid.NewString(),
		name:     name,
		parentID: parentID,
		setup:    s,
		diag:     diag.NewConsoleLogger(s.log.Named("diag")),
		builder:  ledger.NewTxBuilder(s.params),
		state:    newState(),
	}
	for s.registry.add(c) != nil {
		c.id = uuid.NewString()
	}
	c.log = s.log.With(zap.String("tcx", c.id))
	return c
}

// NewChild creates a context whose reservations are shared with c, so
// utxos either of them selects are unavailable to the other.
func (c *Context) NewChild(name string) *Context {
	return c.setup.newContext(name, c.id)
}

// ID returns the context id, which is also its batch tracking id.
func (c *Context) ID() string { return c.id }

// Name returns the display name.
func (c *Context) Name() string {
	if c.name == "" {
		return c.id
	}
	return c.name
}

// WithName sets the display name.
func (c *Context) WithName(name string) *Context {
	c.name = name
	return c
}

// Setup returns the environment the context was created in.
func (c *Context) Setup() *Setup { return c.setup }

// Parent returns the parent context, if any.
func (c *Context) Parent() (*Context, bool) {
	if c.parentID == "" {
		return nil, false
	}
	return c.setup.registry.Get(c.parentID)
}

// Depth returns the nesting depth in the transaction chain.
func (c *Context) Depth() int { return c.depth }

// FacadeState returns whether the context builds a transaction of its own.
func (c *Context) FacadeState() FacadeState { return c.facade }

// Diagnostics returns the context's diagnostic log.
func (c *Context) Diagnostics() *diag.ConsoleLogger { return c.diag }

// State returns the auxiliary state.
func (c *Context) State() *State { return &c.state }

// Inputs returns the inputs added so far.
func (c *Context) Inputs() []*ledger.TxInput { return append([]*ledger.TxInput(nil), c.inputs...) }

// Outputs returns the outputs added so far.
func (c *Context) Outputs() []*ledger.TxOutput { return append([]*ledger.TxOutput(nil), c.outputs...) }

// RefInputs returns the reference inputs added so far.
func (c *Context) RefInputs() []*ledger.TxInput {
	return append([]*ledger.TxInput(nil), c.refInputs...)
}

// Collateral returns the collateral input, or nil.
func (c *Context) Collateral() *ledger.TxInput { return c.collateral }

// Signers returns the explicitly added signers.
func (c *Context) Signers() []ledger.Address { return append([]ledger.Address(nil), c.signers...) }

// Minted returns the net tokens minted so far.
func (c *Context) Minted() ledger.Assets { return c.builder.Minted() }

// BuildResult returns the result of the last Build.
func (c *Context) BuildResult() (*BuildResult, error) {
	if c.built == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotBuilt, c.Name())
	}
	return c.built, nil
}

// Facade commits c to hosting only nested transactions. It fails once c
// holds transaction material or when c has a parent.
func (c *Context) Facade() error {
	switch {
	case c.parentID != "":
		return fmt.Errorf("%w: %s has a parent", ErrNotFacadeable, c.Name())
	case c.facade == Real:
		return fmt.Errorf("%w: %s already holds transaction material", ErrNotFacadeable, c.Name())
	}
	c.facade = Facade
	return nil
}

// mutable reports whether op may change c. It does not commit c; callers
// mark it Real once the change has been applied.
func (c *Context) mutable(op string) error {
	if c.built != nil {
		return fmt.Errorf("%w: %s on %s", ErrAlreadyBuilt, op, c.Name())
	}
	if c.facade == Facade {
		return fmt.Errorf("%w: %s on %s", ErrFacade, op, c.Name())
	}
	return nil
}

// markReal commits an undecided context to building a transaction.
func (c *Context) markReal() {
	if c.facade == Undecided {
		c.facade = Real
	}
}

// AddInput spends u. Script-locked inputs need rd with redeemer data; a
// non-nil rd without data is rejected.
func (c *Context) AddInput(u *ledger.TxInput, rd *Redeemer) error {
	if u == nil {
		return fmt.Errorf("%w: input", ErrNilParam)
	}
	if rd != nil && len(rd.Data) == 0 {
		return fmt.Errorf("%w: input %s", ErrMissingRedeemer, u.ID)
	}
	if err := c.mutable("AddInput"); err != nil {
		return err
	}
	var data []byte
	if rd != nil {
		data = rd.Data
	}
	if err := c.builder.Spend(u, data); err != nil {
		c.diag.Error(fmt.Sprintf("add input %s to %s: %v", u.ID, c.Name(), err))
		c.diag.Print(Dump(u))
		c.diag.Flush()
		return fmt.Errorf("txn: add input %s to %s: %w", u.ID, c.Name(), err)
	}
	if _, isKey := u.Output.Address.PubKeyHash(); isKey {
		c.addWitness(u.Output.Address)
	}
	c.markReal()
	c.inputs = append(c.inputs, u)
	c.reserveInParent(u)
	c.log.Debug("input added", zap.String("utxo", u.ID.String()), zap.String("value", u.Output.Value.String()))
	return nil
}

func (c *Context) addWitness(addr ledger.Address) {
	for _, w := range c.witnesses {
		if w == addr {
			return
		}
	}
	c.witnesses = append(c.witnesses, addr)
}

// reserveInParent publishes u into every ancestor's reserved set.
func (c *Context) reserveInParent(u *ledger.TxInput) {
	p, ok := c.Parent()
	for ok {
		if !ledger.ContainsInput(p.childReserved, u.ID) {
			p.childReserved = append(p.childReserved, u)
		}
		p, ok = p.Parent()
	}
}

// AddOutput appends o. A zero-lovelace output is raised to its minimum.
func (c *Context) AddOutput(o *ledger.TxOutput) error {
	if o == nil {
		return fmt.Errorf("%w: output", ErrNilParam)
	}
	if err := c.mutable("AddOutput"); err != nil {
		return err
	}
	if err := c.builder.AddOutput(o); err != nil {
		c.diag.Error(fmt.Sprintf("add output to %s: %v", c.Name(), err))
		c.diag.Print("failed output:\n" + DumpOutputs([]*ledger.TxOutput{o}))
		c.diag.Print("inputs:\n" + DumpInputs(c.inputs))
		c.diag.Print("outputs:\n" + DumpOutputs(c.outputs))
		c.diag.Flush()
		return fmt.Errorf("txn: add output %s to %s: %w", o.Value, c.Name(), err)
	}
	c.markReal()
	c.outputs = append(c.outputs, o)
	return nil
}

// AddRefInput references in without spending it. Referencing a utxo that is
// already referenced or spent is a no-op.
func (c *Context) AddRefInput(in *ledger.TxInput) error {
	if in == nil {
		return fmt.Errorf("%w: reference input", ErrNilParam)
	}
	if err := c.mutable("AddRefInput"); err != nil {
		return err
	}
	if ledger.ContainsInput(c.refInputs, in.ID) {
		c.log.Warn("reference input already added", zap.String("utxo", in.ID.String()))
		return nil
	}
	if ledger.ContainsInput(c.inputs, in.ID) {
		c.log.Warn("reference input is already spent by this tx", zap.String("utxo", in.ID.String()))
		return nil
	}
	if err := c.builder.Refer(in); err != nil {
		return fmt.Errorf("txn: add reference input %s: %w", in.ID, err)
	}
	c.markReal()
	c.refInputs = append(c.refInputs, in)
	return nil
}

// AddRefInputWithScript references in and tells the builder that it carries
// refScript, for utxos fetched without their script bytes.
func (c *Context) AddRefInputWithScript(in *ledger.TxInput, refScript ledger.Validator) error {
	if in == nil || refScript == nil {
		return fmt.Errorf("%w: reference input", ErrNilParam)
	}
	if in.Output.RefScript == nil {
		withScript := *in
		withScript.Output.RefScript = refScript
		in = &withScript
	}
	return c.AddRefInput(in)
}

// AddCollateral pledges u, which must hold only ADA.
func (c *Context) AddCollateral(u *ledger.TxInput) error {
	if u == nil {
		return fmt.Errorf("%w: collateral", ErrNilParam)
	}
	if !u.Output.Value.IsPureADA() {
		return fmt.Errorf("%w: %s holds %s", ErrCollateralNotPure, u.ID, u.Output.Value)
	}
	if c.collateral != nil {
		return fmt.Errorf("%w: %s", ErrCollateralSet, c.collateral.ID)
	}
	if err := c.mutable("AddCollateral"); err != nil {
		return err
	}
	if err := c.builder.AddCollateral(u); err != nil {
		return fmt.Errorf("txn: add collateral %s: %w", u.ID, err)
	}
	c.markReal()
	c.collateral = u
	c.reserveInParent(u)
	return nil
}

// AddSigner requires a signature from the key behind addr. Addresses
// without a key credential are dropped when the transaction is built.
func (c *Context) AddSigner(addr ledger.Address) error {
	if err := c.mutable("AddSigner"); err != nil {
		return err
	}
	for _, s := range c.signers {
		if s == addr {
			return nil
		}
	}
	c.markReal()
	c.signers = append(c.signers, addr)
	return nil
}

// AttachScript adds a validator witness.
func (c *Context) AttachScript(v ledger.Validator) error {
	if v == nil {
		return fmt.Errorf("%w: script", ErrNilParam)
	}
	if err := c.mutable("AttachScript"); err != nil {
		return err
	}
	c.builder.AttachScript(v)
	c.markReal()
	return nil
}

// AddUut records the unique token minted for purpose.
func (c *Context) AddUut(purpose string, name utxo.UutName) {
	c.state.Uuts[purpose] = name
}

// AddState stores an application value.
func (c *Context) AddState(key string, value interface{}) {
	c.state.Extra[key] = value
}

// ReservedUtxos returns the utxos this context, its ancestors and their
// children have committed to.
func (c *Context) ReservedUtxos() []*ledger.TxInput {
	var out []*ledger.TxInput
	seen := make(map[ledger.TxOutputID]bool)
	add := func(list ...*ledger.TxInput) {
		for _, u := range list {
			if u != nil && !seen[u.ID] {
				seen[u.ID] = true
				out = append(out, u)
			}
		}
	}
	for cur, ok := c, true; ok; cur, ok = cur.Parent() {
		add(cur.inputs...)
		add(cur.collateral)
		add(cur.childReserved...)
	}
	return out
}

// FutureDate sets the start of the validity window. It may be set once,
// before ValidFor.
func (c *Context) FutureDate(t time.Time) error {
	if c.futureDate != nil {
		return fmt.Errorf("%w: %s", ErrFutureDateSet, c.futureDate.Format(time.RFC3339))
	}
	if c.validTo != nil {
		return fmt.Errorf("%w: call FutureDate before ValidFor", ErrValiditySet)
	}
	if err := c.mutable("FutureDate"); err != nil {
		return err
	}
	c.futureDate = &t
	c.markReal()
	return nil
}

// ValidFor sets the validity window. It starts at the future date when one
// was set, otherwise at now minus the configured backdate; it ends d after
// the future date or after now.
func (c *Context) ValidFor(d time.Duration) error {
	if err := c.mutable("ValidFor"); err != nil {
		return err
	}
	var start, end time.Time
	if c.futureDate != nil {
		start = *c.futureDate
		end = start.Add(d)
	} else {
		now := c.setup.now()
		start = now.Add(-c.setup.cfg.ValidityBackdate)
		end = now.Add(d)
	}
	c.validFrom, c.validTo = &start, &end
	c.builder.ValidFromSlot(c.setup.params.TimeToSlot(start))
	c.builder.ValidToSlot(c.setup.params.TimeToSlot(end))
	c.markReal()
	return nil
}

// ValidityWindow returns the window set by ValidFor.
func (c *Context) ValidityWindow() (from, to time.Time, ok bool) {
	if c.validFrom == nil || c.validTo == nil {
		return time.Time{}, time.Time{}, false
	}
	return *c.validFrom, *c.validTo, true
}

// ValiditySlots returns the window as slots.
func (c *Context) ValiditySlots() (from, to int64, ok bool) {
	f, t, ok := c.ValidityWindow()
	if !ok {
		return 0, 0, false
	}
	return c.setup.params.TimeToSlot(f), c.setup.params.TimeToSlot(t), true
}
