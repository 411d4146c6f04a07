package token

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/barqly/barqly-vault/internal/domain"
)

func newTestSession(t *testing.T, managementBody string) *Session {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake management CLI requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ykman")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+managementBody), 0700); err != nil {
		t.Fatal(err)
	}
	return &Session{managementPath: path, pluginPath: path}
}

func TestListDevices(t *testing.T) {
	s := newTestSession(t, `echo "YubiKey 5C [OTP+FIDO+CCID] Serial number: 12345678"`)

	devices, err := s.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Serial.Raw() != "12345678" {
		t.Errorf("unexpected serial: %s", devices[0].Serial.Raw())
	}
}

func TestGetSerialAmbiguous(t *testing.T) {
	s := newTestSession(t, `
echo "Serial number: 12345678"
echo "Serial number: 87654321"
`)
	if _, err := s.GetSerial(context.Background()); err == nil {
		t.Error("expected an error for multiple attached devices")
	}
}

func TestHasDefaultPin(t *testing.T) {
	s := newTestSession(t, `echo "PIN tries remaining: 3, using the default PIN"`)
	has, err := s.HasDefaultPin(context.Background(), mustSerial(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("expected default-pin detection to be true")
	}
}

func TestHasProtectedMgmtKey(t *testing.T) {
	s := newTestSession(t, `echo "Management key algorithm TDES, stored on device, protected by PIN"`)
	has, err := s.HasProtectedMgmtKey(context.Background(), mustSerial(t), mustPin(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("expected protected-mgmt-key detection to be true")
	}
}

func mustSerial(t *testing.T) domain.Serial {
	t.Helper()
	v, err := domain.NewSerial("12345678")
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func mustPin(t *testing.T) domain.Pin {
	t.Helper()
	v, err := domain.NewPin("445566")
	if err != nil {
		t.Fatal(err)
	}
	return v
}
