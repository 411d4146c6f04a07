package vaulterr

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrEmptyLabel", ErrEmptyLabel},
		{"ErrLabelTooLong", ErrLabelTooLong},
		{"ErrWeakPassphrase", ErrWeakPassphrase},
		{"ErrInvalidPin", ErrInvalidPin},
		{"ErrKeyNotFound", ErrKeyNotFound},
		{"ErrVaultNotFound", ErrVaultNotFound},
		{"ErrDuplicateKey", ErrDuplicateKey},
		{"ErrInvalidKeyState", ErrInvalidKeyState},
		{"ErrTokenBusy", ErrTokenBusy},
		{"ErrPinBlocked", ErrPinBlocked},
		{"ErrTouchTimeout", ErrTouchTimeout},
		{"ErrWrongPassphrase", ErrWrongPassphrase},
		{"ErrNoMatchingIdentity", ErrNoMatchingIdentity},
		{"ErrArchiveCorrupted", ErrArchiveCorrupted},
		{"ErrRegistryCorrupted", ErrRegistryCorrupted},
		{"ErrCancelled", ErrCancelled},
		{"ErrUnexpected", ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Error("sentinel error should not be nil")
			}
			if tt.err.Error() == "" {
				t.Error("sentinel error should have a message")
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("label", "must not be empty", ErrEmptyLabel)

	if err.Error() != "validation: label: must not be empty" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if !errors.Is(err, ErrEmptyLabel) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestLifecycleError(t *testing.T) {
	err := &LifecycleError{KeyID: "key-1", From: "Destroyed", To: "Active"}

	want := "lifecycle: key key-1: transition Destroyed -> Active not allowed"
	if err.Error() != want {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if !errors.Is(err, ErrInvalidKeyState) {
		t.Error("errors.Is should match ErrInvalidKeyState")
	}
}

func TestTokenError(t *testing.T) {
	base := errors.New("pty closed unexpectedly")
	err := NewTokenError("generate-identity", "31995463", base)

	if err.Error() != "token generate-identity: pty closed unexpectedly" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if errors.Unwrap(err) != base {
		t.Error("Unwrap should return underlying error")
	}

	nilErr := NewTokenError("change-pin", "31995463", nil)
	if nilErr.Error() != "token change-pin failed" {
		t.Errorf("unexpected message for nil base: %s", nilErr.Error())
	}
}

func TestPersistenceError(t *testing.T) {
	base := errors.New("permission denied")
	err := NewPersistenceError("save", "/vaults/a/manifest.json", base)

	want := "save /vaults/a/manifest.json: permission denied"
	if err.Error() != want {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if errors.Unwrap(err) != base {
		t.Error("Unwrap should return underlying error")
	}
}

func TestWrapClassifiesKnownSentinels(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{ErrWrongPassphrase, "WrongPassphrase"},
		{ErrNoMatchingIdentity, "NoMatchingIdentity"},
		{ErrTouchTimeout, "TouchTimeout"},
		{ErrTokenBusy, "TokenBusy"},
		{ErrPinBlocked, "PinBlocked"},
		{ErrNoRecipients, "NoRecipients"},
		{ErrDuplicateKey, "DuplicateKey"},
		{ErrArchiveCorrupted, "ArchiveCorrupted"},
		{ErrRegistryCorrupted, "RegistryCorrupted"},
		{ErrCancelled, "Cancelled"},
		{errors.New("something else"), "Unexpected"},
	}

	for _, c := range cases {
		got := Wrap(c.err)
		if got.Kind != c.kind {
			t.Errorf("Wrap(%v).Kind = %q, want %q", c.err, got.Kind, c.kind)
		}
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	first := Wrap(ErrWrongPassphrase)
	second := Wrap(first)
	if second != first {
		t.Error("Wrap should return the same OperationError when given one")
	}
}

func TestIsAndAs(t *testing.T) {
	if !Is(ErrCancelled, ErrCancelled) {
		t.Error("Is should return true for same error")
	}
	if Is(ErrCancelled, ErrUnexpected) {
		t.Error("Is should return false for different errors")
	}

	tokenErr := NewTokenError("init", "31995463", errors.New("boom"))
	var target *TokenError
	if !As(tokenErr, &target) {
		t.Error("As should find TokenError")
	}
	if target.Op != "init" {
		t.Errorf("unexpected Op: %s", target.Op)
	}
}
