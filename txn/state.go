package txn

import (
	"github.com/donecollectively/stellar-contracts-sub001/ledger"
	"github.com/donecollectively/stellar-contracts-sub001/utxo"
)

// FacadeState records whether a context builds a transaction of its own.
type FacadeState uint8

const (
	// Undecided contexts become Real on their first successful
	// transaction-building call, or Facade through Context.Facade.
	Undecided FacadeState = iota
	// Facade contexts only host nested transactions.
	Facade
	// Real contexts build a transaction.
	Real
)

func (f FacadeState) String() string {
	switch f {
	case Undecided:
		return "undecided"
	case Facade:
		return "facade"
	case Real:
		return "real"
	default:
		return "unknown"
	}
}

// State is the auxiliary data carried by a context.
type State struct {
	// Uuts maps a purpose to the unique token name minted for it.
	Uuts map[string]utxo.UutName
	// AddlTxns are the nested transactions to resolve after this one is
	// queued, in the order they were added.
	AddlTxns []*TxDescription
	// SeedUtxo is the input whose spend makes the UUT names unique.
	SeedUtxo *ledger.TxInput
	// Extra holds application values.
	Extra map[string]interface{}
}

func newState() State {
	return State{
		Uuts:  make(map[string]utxo.UutName),
		Extra: make(map[string]interface{}),
	}
}

// AddlTxn returns the nested description with the given id.
func (s *State) AddlTxn(id string) (*TxDescription, bool) {
	for _, d := range s.AddlTxns {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// putAddlTxn replaces the description with d's id, or appends d.
func (s *State) putAddlTxn(d *TxDescription) {
	for i, old := range s.AddlTxns {
		if old.ID == d.ID {
			s.AddlTxns[i] = d
			return
		}
	}
	s.AddlTxns = append(s.AddlTxns, d)
}

// Redeemer is the data given to the script that guards an input.
type Redeemer struct {
	Data []byte
}
