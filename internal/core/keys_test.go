package core

import "testing"

func TestDeactivateRestoreDeleteKeyLifecycle(t *testing.T) {
	c := newTestCore(t)
	summary, err := c.CreateVault("V", nil)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := c.AddPassphraseKeyToVault(summary.VaultId, "K1", "CorrectHorseBattery9!")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteKey(ref.KeyId, "no longer needed"); err == nil {
		t.Fatal("expected DeleteKey on an Active key to be rejected")
	}

	if err := c.DeactivateKey(ref.KeyId, "rotating"); err != nil {
		t.Fatalf("DeactivateKey: %v", err)
	}
	if err := c.RestoreKey(ref.KeyId); err != nil {
		t.Fatalf("RestoreKey: %v", err)
	}
	if err := c.DeactivateKey(ref.KeyId, "rotating"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteKey(ref.KeyId, "rotating"); err != nil {
		t.Fatalf("DeleteKey after deactivation: %v", err)
	}

	entry, err := c.Registry.Get(ref.KeyId)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Lifecycle != "Destroyed" {
		t.Errorf("expected Destroyed, got %s", entry.Lifecycle)
	}
}

func TestUpdateGlobalKeyLabelRejectsWhileActive(t *testing.T) {
	c := newTestCore(t)
	summary, err := c.CreateVault("V", nil)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := c.AddPassphraseKeyToVault(summary.VaultId, "K1", "CorrectHorseBattery9!")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.UpdateGlobalKeyLabel(ref.KeyId, "K2"); err == nil {
		t.Fatal("expected rename of an Active key to be rejected")
	}

	if err := c.DeactivateKey(ref.KeyId, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateGlobalKeyLabel(ref.KeyId, "K2"); err != nil {
		t.Fatalf("expected rename of a Suspended/Deactivated key to succeed: %v", err)
	}
}

func TestAddRecipientAndAttachToVault(t *testing.T) {
	c := newTestCore(t)
	summary, err := c.CreateVault("V", nil)
	if err != nil {
		t.Fatal(err)
	}
	recipient := "age1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"

	ref, err := c.AddRecipient("friend", recipient)
	if err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}

	if err := c.AttachKeyToVault(summary.VaultId, ref.KeyId); err != nil {
		t.Fatalf("AttachKeyToVault: %v", err)
	}
	record, err := c.Vaults.Get(summary.VaultId)
	if err != nil {
		t.Fatal(err)
	}
	if len(record.KeyIds) != 1 || record.KeyIds[0] != ref.KeyId {
		t.Fatalf("expected the recipient to be attached, got %+v", record.KeyIds)
	}

	if err := c.DetachKeyFromVault(summary.VaultId, ref.KeyId); err != nil {
		t.Fatalf("DetachKeyFromVault: %v", err)
	}
	record, err = c.Vaults.Get(summary.VaultId)
	if err != nil {
		t.Fatal(err)
	}
	if len(record.KeyIds) != 0 {
		t.Errorf("expected no attached keys after detach, got %+v", record.KeyIds)
	}
}

func TestValidatePassphraseStrength(t *testing.T) {
	if r := ValidatePassphraseStrength("short1a"); r.Valid {
		t.Error("expected a too-short passphrase to be invalid")
	}
	if r := ValidatePassphraseStrength("alllowercaseletters"); r.Valid {
		t.Error("expected a passphrase with no digit to fail the component policy")
	}
	if r := ValidatePassphraseStrength("CorrectHorseBattery9!"); !r.Valid {
		t.Error("expected a long mixed-class passphrase to be valid")
	}
}

func TestExportImportKeyRoundTrip(t *testing.T) {
	c := newTestCore(t)
	summary, err := c.CreateVault("V", nil)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := c.AddPassphraseKeyToVault(summary.VaultId, "K1", "CorrectHorseBattery9!")
	if err != nil {
		t.Fatal(err)
	}

	destPath := t.TempDir() + "/exported.agekey"
	if err := c.ExportKey(ref.KeyId, destPath); err != nil {
		t.Fatalf("ExportKey: %v", err)
	}

	passphrase := "CorrectHorseBattery9!"
	result, err := c.ImportKeyFile(destPath, &passphrase, nil, nil, true)
	if err != nil {
		t.Fatalf("ImportKeyFile (validate only): %v", err)
	}
	if !result.Valid || result.PublicRecipient != ref.PublicRecipient {
		t.Errorf("expected validate-only import to report the same recipient, got %+v", result)
	}

	imported, err := c.ImportKeyFile(destPath, &passphrase, nil, nil, false)
	if err != nil {
		t.Fatalf("ImportKeyFile: %v", err)
	}
	if imported.KeyId == ref.KeyId {
		t.Error("expected the import to register a new key id, not reuse the original")
	}
}
