package batch

// State is the lifecycle position of a tracked transaction.
type State string

const (
	Pending        State = "pending"
	Building       State = "building"
	Built          State = "built"
	Signing        State = "signing"
	Submitted      State = "submitted"
	Confirmed      State = "confirmed"
	Failed         State = "error"
	AlreadyPresent State = "alreadyPresent"
	Cancelled      State = "cancelled"
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	Pending:   {Building, Cancelled, AlreadyPresent, Failed},
	Building:  {Built, Failed, AlreadyPresent, Cancelled},
	Built:     {Signing, Submitted, Failed},
	Signing:   {Submitted, Failed},
	Submitted: {Confirmed, Failed},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s State) IsTerminal() bool { return len(transitions[s]) == 0 }

// IsSkipped reports whether the transaction finished without being built.
func (s State) IsSkipped() bool { return s == AlreadyPresent || s == Cancelled }
