package domain

import "testing"

func TestCanTransitionAllowed(t *testing.T) {
	cases := []struct{ from, to LifecycleState }{
		{PreActivation, Active},
		{Active, Suspended},
		{Suspended, Active},
		{Active, Deactivated},
		{Suspended, Deactivated},
		{Deactivated, Active},
		{Deactivated, Destroyed},
		{Active, Compromised},
		{Compromised, Destroyed},
	}
	for _, c := range cases {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}
}

func TestCanTransitionRejected(t *testing.T) {
	cases := []struct{ from, to LifecycleState }{
		{Destroyed, Active},
		{Active, PreActivation},
		{Compromised, Active},
		{Deactivated, Suspended},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be rejected", c.from, c.to)
		}
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := ValidateTransition("key-1", Destroyed, Active)
	if err == nil {
		t.Fatal("expected an error for an invalid transition")
	}
}

func TestValidateTransitionOK(t *testing.T) {
	if err := ValidateTransition("key-1", PreActivation, Active); err != nil {
		t.Errorf("unexpected error for a valid transition: %v", err)
	}
}
