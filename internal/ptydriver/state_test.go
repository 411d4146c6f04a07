package ptydriver

import "testing"

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Idle:            "Idle",
		GeneratingKey:   "GeneratingKey",
		WaitingForPin:   "WaitingForPin",
		WaitingForTouch: "WaitingForTouch",
		Completing:      "Completing",
		Complete:        "Complete",
		Failed:          "Failed",
		State(99):       "Unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
