package domain

import "testing"

func TestNewSerialValid(t *testing.T) {
	s, err := NewSerial("31995463")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Raw() != "31995463" {
		t.Errorf("Raw() = %q, want 31995463", s.Raw())
	}
	if s.String() != "****5463" {
		t.Errorf("String() = %q, want ****5463", s.String())
	}
}

func TestNewSerialInvalid(t *testing.T) {
	for _, bad := range []string{"", "abc", "12", "not-a-serial-at-all-way-too-long-123456789"} {
		if _, err := NewSerial(bad); err == nil {
			t.Errorf("serial %q should be rejected", bad)
		}
	}
}

func TestNewPinValid(t *testing.T) {
	p, err := NewPin("482913")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Raw() != "482913" {
		t.Errorf("Raw() = %q, want 482913", p.Raw())
	}
	if p.String() != "Pin{REDACTED}" {
		t.Errorf("String() should never reveal the PIN, got %q", p.String())
	}
}

func TestNewPinLengthRejected(t *testing.T) {
	for _, bad := range []string{"12345", "123456789"} {
		if _, err := NewPin(bad); err == nil {
			t.Errorf("pin %q with bad length should be rejected", bad)
		}
	}
}

func TestNewPinNonNumericRejected(t *testing.T) {
	if _, err := NewPin("12345a"); err == nil {
		t.Error("non-numeric pin should be rejected")
	}
}

func TestNewPinWeakRejected(t *testing.T) {
	if _, err := NewPin("123456"); err == nil {
		t.Error("known-weak pin should be rejected")
	}
}

func TestPinMarshalJSONFails(t *testing.T) {
	p, _ := NewPin("482913")
	if _, err := p.MarshalJSON(); err == nil {
		t.Error("Pin should refuse to marshal")
	}
}
