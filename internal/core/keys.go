package core

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"

	"github.com/barqly/barqly-vault/internal/ageio"
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/secret"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// touchPolicyAlways is the default PIV touch policy for newly generated
// token identities: every decrypt requires a physical touch, matching the
// spec's threat model of a token that can't sign/decrypt unattended.
const touchPolicyAlways = "always"

// AddPassphraseKeyToVault creates a new passphrase-protected key and
// attaches it to vaultID.
func (c *Core) AddPassphraseKeyToVault(vaultID domain.VaultId, labelRaw, passphrase string) (*KeyRef, error) {
	if _, err := c.Vaults.Get(vaultID); err != nil {
		return nil, err
	}
	label, err := domain.NewLabel(labelRaw)
	if err != nil {
		return nil, err
	}

	entry, err := c.Passphrase.Create(label, passphrase)
	if err != nil {
		return nil, err
	}
	if err := c.Vaults.AddKeyId(vaultID, entry.KeyId); err != nil {
		return nil, err
	}
	return keyRefFromEntry(entry), nil
}

// AddTokenKeyToVault attaches a hardware-token-resident identity to
// vaultID: if the token already carries a provisioned identity and the
// registry holds an entry for its serial, that entry is attached to vaultID;
// otherwise a fresh identity slot is generated on the token.
func (c *Core) AddTokenKeyToVault(ctx context.Context, vaultID domain.VaultId, serialRaw, pinRaw, labelRaw string) (*KeyRef, error) {
	if c.TokenSession == nil {
		return nil, vaulterr.ErrTokenNotFound
	}
	if _, err := c.Vaults.Get(vaultID); err != nil {
		return nil, err
	}
	serial, err := domain.NewSerial(serialRaw)
	if err != nil {
		return nil, err
	}
	pin, err := domain.NewPin(pinRaw)
	if err != nil {
		return nil, err
	}
	label, err := domain.NewLabel(labelRaw)
	if err != nil {
		return nil, err
	}

	tag, ok, err := c.TokenSession.GetIdentityForSerial(ctx, serial)
	if err != nil {
		return nil, err
	}

	var recipient domain.Recipient
	if ok {
		// Reusing an already-provisioned identity: its recipient isn't
		// returned by the lookup, so reuse the registry entry a prior
		// installation already recorded for this serial.
		if existing := c.Registry.FindBySerial(serial); len(existing) > 0 {
			if err := c.Vaults.AddKeyId(vaultID, existing[0].KeyId); err != nil {
				return nil, err
			}
			return keyRefFromEntry(existing[0]), nil
		} else {
			recipient, tag, err = c.TokenSession.GenerateIdentity(ctx, serial, pin, touchPolicyAlways, label.String())
			if err != nil {
				return nil, err
			}
		}
	} else {
		recipient, tag, err = c.TokenSession.GenerateIdentity(ctx, serial, pin, touchPolicyAlways, label.String())
		if err != nil {
			return nil, err
		}
	}

	entry := &registry.KeyEntry{
		KeyId:           domain.NewKeyId(),
		Type:            registry.KeyTypeToken,
		Label:           label,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		Lifecycle:       domain.Active,
		PublicRecipient: recipient,
		Serial:          serial,
		IdentityTag:     tag,
	}
	if err := c.Registry.Register(entry); err != nil {
		return nil, err
	}
	if err := c.Vaults.AddKeyId(vaultID, entry.KeyId); err != nil {
		return nil, err
	}
	return keyRefFromEntry(entry), nil
}

// AddRecipient registers a third-party, public-key-only recipient: no
// private key material is ever held for this entry. It is not attached to
// any vault by this call; use AttachKeyToVault to add it to one, the same
// way a freshly created passphrase or token key is attached.
func (c *Core) AddRecipient(labelRaw, publicRecipientRaw string) (*KeyRef, error) {
	label, err := domain.NewLabel(labelRaw)
	if err != nil {
		return nil, err
	}
	recipient, err := domain.NewRecipient(publicRecipientRaw)
	if err != nil {
		return nil, err
	}

	entry := &registry.KeyEntry{
		KeyId:           domain.NewKeyId(),
		Type:            registry.KeyTypeRecipient,
		Label:           label,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		Lifecycle:       domain.Active,
		PublicRecipient: recipient,
	}
	if err := c.Registry.Register(entry); err != nil {
		return nil, err
	}
	return keyRefFromEntry(entry), nil
}

// AttachKeyToVault adds an already-registered key id (typically a
// recipient-only key registered via AddRecipient) to a vault's intended
// recipient list.
func (c *Core) AttachKeyToVault(vaultID domain.VaultId, keyID domain.KeyId) error {
	if _, err := c.Registry.Get(keyID); err != nil {
		return err
	}
	return c.Vaults.AddKeyId(vaultID, keyID)
}

// DetachKeyFromVault removes a key id from a vault's intended recipient
// list without affecting the key's registry entry.
func (c *Core) DetachKeyFromVault(vaultID domain.VaultId, keyID domain.KeyId) error {
	return c.Vaults.RemoveKeyId(vaultID, keyID)
}

// ImportKeyFile imports either a previously exported encrypted passphrase
// blob (passphrase required, to prove the caller actually holds it) or a
// bare third-party public recipient string (no passphrase). validateOnly
// checks the file without registering anything.
func (c *Core) ImportKeyFile(path string, passphrase *string, overrideLabel *string, attachToVault *domain.VaultId, validateOnly bool) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("read", path, err)
	}

	label, err := domain.NewLabel(defaultImportLabel(path))
	if err != nil {
		return nil, err
	}
	if overrideLabel != nil {
		l, err := domain.NewLabel(*overrideLabel)
		if err != nil {
			return nil, err
		}
		label = l
	}

	if passphrase != nil {
		privateKey, err := ageio.UnlockPrivateKey(data, *passphrase)
		if err != nil {
			return nil, err
		}
		defer privateKey.Close()
		identity, err := age.ParseX25519Identity(privateKey.Open())
		if err != nil {
			return nil, vaulterr.NewValidationError("file", "not a valid encrypted key blob", vaulterr.ErrArchiveCorrupted)
		}
		recipient, err := domain.NewRecipient(identity.Recipient().String())
		if err != nil {
			return nil, err
		}
		if validateOnly {
			return &ImportResult{Valid: true, Label: label, Type: registry.KeyTypePassphrase, PublicRecipient: recipient}, nil
		}

		filename := pathio.SanitizeName(label.String()) + ".agekey"
		keysDir, err := pathio.KeysDir()
		if err != nil {
			return nil, vaulterr.NewPersistenceError("keys-dir", "", err)
		}
		if err := pathio.WriteFileAtomic(keysDir+"/"+filename, data, 0600); err != nil {
			return nil, vaulterr.NewPersistenceError("write-blob", filename, err)
		}

		entry := &registry.KeyEntry{
			KeyId:                 domain.NewKeyId(),
			Type:                  registry.KeyTypePassphrase,
			Label:                 label,
			CreatedAt:             time.Now().UTC().Format(time.RFC3339),
			Lifecycle:             domain.Active,
			PublicRecipient:       recipient,
			EncryptedBlobFilename: filename,
		}
		if err := c.Registry.Register(entry); err != nil {
			return nil, err
		}
		if attachToVault != nil {
			if err := c.Vaults.AddKeyId(*attachToVault, entry.KeyId); err != nil {
				return nil, err
			}
		}
		return &ImportResult{Valid: true, KeyId: entry.KeyId, Label: label, Type: registry.KeyTypePassphrase, PublicRecipient: recipient}, nil
	}

	raw := trimTrailingNewline(string(data))
	recipient, err := domain.NewRecipient(raw)
	if err != nil {
		return nil, vaulterr.NewValidationError("file", "expected a bare age1... recipient without a passphrase", vaulterr.ErrInvalidRecipient)
	}
	if validateOnly {
		return &ImportResult{Valid: true, Label: label, Type: registry.KeyTypeRecipient, PublicRecipient: recipient}, nil
	}
	ref, err := c.AddRecipient(label.String(), recipient.Raw())
	if err != nil {
		return nil, err
	}
	if attachToVault != nil {
		if err := c.Vaults.AddKeyId(*attachToVault, ref.KeyId); err != nil {
			return nil, err
		}
	}
	return &ImportResult{Valid: true, KeyId: ref.KeyId, Label: label, Type: registry.KeyTypeRecipient, PublicRecipient: recipient}, nil
}

// ExportKey writes a passphrase key's encrypted blob to destPath.
func (c *Core) ExportKey(keyID domain.KeyId, destPath string) error {
	return c.Passphrase.Export(keyID, destPath)
}

// DeactivateKey transitions a key to Deactivated. The key stays attached to
// its vaults and later encryptions still include it as a recipient, since
// recipient resolution does not consult lifecycle state; existing
// ciphertext it can decrypt is unaffected.
func (c *Core) DeactivateKey(keyID domain.KeyId, reason string) error {
	return c.Registry.Transition(keyID, domain.Deactivated, reason, "user", time.Now())
}

// RestoreKey transitions a Deactivated key back to Active.
func (c *Core) RestoreKey(keyID domain.KeyId) error {
	return c.Registry.Transition(keyID, domain.Active, "", "user", time.Now())
}

// DeleteKey transitions a key to Destroyed (terminal) and removes any
// on-disk blob it owned. Per the lifecycle table, a key must already be
// Deactivated, Compromised, or PreActivation; an Active key is rejected
// with InvalidKeyState and must be deactivated first.
func (c *Core) DeleteKey(keyID domain.KeyId, reason string) error {
	if err := c.Registry.Transition(keyID, domain.Destroyed, reason, "user", time.Now()); err != nil {
		return err
	}
	return c.Registry.DeleteBlobOnDestroy(keyID)
}

// UpdateGlobalKeyLabel renames a key, rejected while its lifecycle is
// Active.
func (c *Core) UpdateGlobalKeyLabel(keyID domain.KeyId, newLabelRaw string) error {
	label, err := domain.NewLabel(newLabelRaw)
	if err != nil {
		return err
	}
	return c.Registry.UpdateLabel(keyID, label)
}

// ValidatePassphraseStrength scores a candidate passphrase and folds in
// the component-boundary minimum-acceptability policy (length, letter,
// digit) that internal/secret's scoring alone does not enforce.
func ValidatePassphraseStrength(passphrase string) PassphraseStrengthResult {
	check := secret.CheckPassphraseStrength(passphrase)
	result := PassphraseStrengthResult{
		Valid:    check.Valid,
		Strength: check.Strength,
		Score:    check.Score,
		Feedback: check.Feedback,
	}
	if err := ageio.ValidatePassphrasePolicy(passphrase); err != nil {
		result.Valid = false
		if check.Valid {
			result.Feedback = append(result.Feedback, "passphrase must contain at least one letter and one digit")
		}
	}
	return result
}

func keyRefFromEntry(e *registry.KeyEntry) *KeyRef {
	return &KeyRef{KeyId: e.KeyId, Label: e.Label, Type: e.Type, PublicRecipient: e.PublicRecipient}
}

// defaultImportLabel derives a label candidate from a file's base name
// (extension stripped, sanitized, truncated) when the caller doesn't
// supply an override.
func defaultImportLabel(path string) string {
	base := filepath.Base(path)
	base = base[:len(base)-len(filepath.Ext(base))]
	sanitized := pathio.SanitizeName(base)
	if len(sanitized) > domain.MaxLabelLength {
		sanitized = sanitized[:domain.MaxLabelLength]
	}
	return sanitized
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
