package token

import (
	"context"
	"testing"

	"github.com/barqly/barqly-vault/internal/domain"
)

func mustPinDigits(t *testing.T, digits string) domain.Pin {
	t.Helper()
	v, err := domain.NewPin(digits)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestChangePin(t *testing.T) {
	s := newTestSession(t, `echo "PIN changed"`)
	if err := s.ChangePin(context.Background(), mustSerial(t), mustPin(t), mustPinDigits(t, "778899")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitializeTokenSequences(t *testing.T) {
	s := newTestSession(t, `echo "ok"`)
	newPin := mustPinDigits(t, "778899")
	puk := mustPinDigits(t, "99887766")

	if err := s.InitializeToken(context.Background(), mustSerial(t), newPin, puk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitializeTokenFailsFastOnFirstStep(t *testing.T) {
	s := newTestSession(t, `echo "error: wrong pin" 1>&2; exit 1`)
	newPin := mustPinDigits(t, "778899")
	puk := mustPinDigits(t, "99887766")

	if err := s.InitializeToken(context.Background(), mustSerial(t), newPin, puk); err == nil {
		t.Error("expected an error when the first provisioning step fails")
	}
}
