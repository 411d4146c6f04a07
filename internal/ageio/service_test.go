package ageio

import (
	"path/filepath"
	"testing"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/registry"
)

func newTestService(t *testing.T) *PassphraseKeyService {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)

	store, err := registry.LoadFrom(filepath.Join(tmp, "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewPassphraseKeyService(store)
}

func TestPassphraseKeyServiceCreateAndUnlock(t *testing.T) {
	svc := newTestService(t)
	label, err := domain.NewLabel("recovery-key")
	if err != nil {
		t.Fatal(err)
	}

	entry, err := svc.Create(label, "correcthorse1battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.PublicRecipient == "" {
		t.Error("expected a public recipient on the created entry")
	}
	if entry.EncryptedBlobFilename == "" {
		t.Error("expected a blob filename on the created entry")
	}

	unlocked, err := svc.Unlock(entry.KeyId, "correcthorse1battery")
	if err != nil {
		t.Fatalf("unexpected error unlocking: %v", err)
	}
	defer unlocked.Close()
	if unlocked.Open() == "" {
		t.Error("expected a non-empty unlocked private key")
	}
}

func TestPassphraseKeyServiceCreateRejectsWeakPassphrase(t *testing.T) {
	svc := newTestService(t)
	label, _ := domain.NewLabel("weak")

	if _, err := svc.Create(label, "short1"); err == nil {
		t.Error("expected an error for a too-short passphrase")
	}
}

func TestPassphraseKeyServiceUnlockWrongPassphrase(t *testing.T) {
	svc := newTestService(t)
	label, _ := domain.NewLabel("recovery-key")

	entry, err := svc.Create(label, "correcthorse1battery")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Unlock(entry.KeyId, "wrongpassphrase1234"); err == nil {
		t.Error("expected an error unlocking with the wrong passphrase")
	}
}

func TestPassphraseKeyServiceExport(t *testing.T) {
	svc := newTestService(t)
	label, _ := domain.NewLabel("exportable")

	entry, err := svc.Create(label, "correcthorse1battery")
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "exported.agekey")
	if err := svc.Export(entry.KeyId, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
