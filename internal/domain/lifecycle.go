package domain

import "github.com/barqly/barqly-vault/internal/vaulterr"

// LifecycleState is the state of a registry entry (key).
type LifecycleState string

const (
	PreActivation LifecycleState = "PreActivation"
	Active        LifecycleState = "Active"
	Suspended     LifecycleState = "Suspended"
	Deactivated   LifecycleState = "Deactivated"
	Compromised   LifecycleState = "Compromised"
	Destroyed     LifecycleState = "Destroyed"
)

// StatusEvent is one entry in a key's status_history.
type StatusEvent struct {
	NewState  LifecycleState `json:"new_state"`
	Reason    string         `json:"reason,omitempty"`
	Actor     string         `json:"actor"`
	Timestamp string         `json:"timestamp"` // RFC3339
}

// allowedTransitions encodes the transition table from spec section 3.2.
// PreActivation -> Destroyed is listed directly in the table, so a key that
// was never activated can be destroyed without the deactivation step that
// Active and Suspended keys must go through first.
var allowedTransitions = map[LifecycleState]map[LifecycleState]bool{
	PreActivation: {Active: true, Compromised: true, Destroyed: true},
	Active:        {Suspended: true, Deactivated: true, Compromised: true},
	Suspended:     {Active: true, Deactivated: true, Compromised: true},
	Deactivated:   {Active: true, Destroyed: true, Compromised: true},
	Compromised:   {Destroyed: true},
	Destroyed:     {},
}

// CanTransition reports whether moving from `from` to `to` is permitted.
func CanTransition(from, to LifecycleState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ValidateTransition returns a LifecycleError if the transition is not
// permitted, nil otherwise.
func ValidateTransition(keyID string, from, to LifecycleState) error {
	if CanTransition(from, to) {
		return nil
	}
	return &vaulterr.LifecycleError{KeyID: keyID, From: string(from), To: string(to)}
}

// DeactivationGraceDays is the grace period, in days, for a Deactivated key.
// No code reads it: neither the bootstrap reconciler nor any other sweep
// moves a Deactivated key to Destroyed, which happens only on an explicit
// delete.
const DeactivationGraceDays = 30
