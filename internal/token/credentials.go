package token

import (
	"context"

	"github.com/barqly/barqly-vault/internal/domain"
)

// Factory default PIV credentials, per the PIV applet specification. Not
// secret: every unprovisioned token ships with these.
const (
	defaultPin = "123456"
	defaultPuk = "12345678"
)

// ChangePin changes the PIV PIN from old to new. A user-supplied PIN passes
// domain-level validation when built with domain.NewPin; InitializeToken
// passes the factory default as old through domain.FactoryDefaultPin, which
// skips the weak-pattern check.
func (s *Session) ChangePin(ctx context.Context, serial domain.Serial, old, newPin domain.Pin) error {
	return withSession(func() error {
		_, err := s.run(ctx, "--device", serial.Raw(), "piv", "access", "change-pin",
			"--pin", old.Raw(), "--new-pin", newPin.Raw())
		return err
	})
}

// ChangePuk changes the PIV PUK from old to new.
func (s *Session) ChangePuk(ctx context.Context, serial domain.Serial, old, newPuk domain.Pin) error {
	return withSession(func() error {
		_, err := s.run(ctx, "--device", serial.Raw(), "piv", "access", "change-puk",
			"--puk", old.Raw(), "--new-puk", newPuk.Raw())
		return err
	})
}

// ChangeManagementKeyToProtectedTDES switches the management key to
// TDES, stored on-device and protected by the PIV PIN rather than held by
// the caller.
func (s *Session) ChangeManagementKeyToProtectedTDES(ctx context.Context, serial domain.Serial, pin domain.Pin) error {
	return withSession(func() error {
		_, err := s.run(ctx, "--device", serial.Raw(), "piv", "access", "change-management-key",
			"--algorithm", "TDES", "--protect", "--pin", pin.Raw())
		return err
	})
}

// InitializeToken orchestrates the three provisioning steps a fresh token
// needs, in order, failing fast if any step fails. recoveryPuk is a
// user-supplied recovery code reused as the new PUK.
func (s *Session) InitializeToken(ctx context.Context, serial domain.Serial, newPin, recoveryPuk domain.Pin) error {
	defaultPinVal := domain.FactoryDefaultPin(defaultPin)
	defaultPukVal := domain.FactoryDefaultPin(defaultPuk)

	if err := s.ChangePin(ctx, serial, defaultPinVal, newPin); err != nil {
		return err
	}
	if err := s.ChangePuk(ctx, serial, defaultPukVal, recoveryPuk); err != nil {
		return err
	}
	if err := s.ChangeManagementKeyToProtectedTDES(ctx, serial, newPin); err != nil {
		return err
	}
	return nil
}
