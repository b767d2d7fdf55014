package order

import "fmt"

// StateMachine validates and executes order state transitions.
type StateMachine struct {
	transitions map[Status][]Status
}

// NewStateMachine creates a new order state machine. Failed and expired
// orders may still become paid: a late webhook means the provider took
// the money, and refusing the transition would strand the purchase.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[Status][]Status{
			StatusPending: {StatusPaid, StatusFailed, StatusExpired},
			StatusFailed:  {StatusPaid},
			StatusExpired: {StatusPaid},
			StatusPaid:    {}, // terminal
		},
	}
}

// CanTransition checks if a transition from `from` to `to` is valid.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	allowed, ok := sm.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition attempts to move an order to a new status.
func (sm *StateMachine) Transition(o *Order, to Status) error {
	if !sm.CanTransition(o.Status, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}
