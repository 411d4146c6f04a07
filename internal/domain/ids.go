// Package domain holds strongly validated identity and recipient primitives:
// Serial, Pin, Recipient, IdentityTag, KeyId, VaultId. Each type validates on
// construction and redacts itself on display so a stray %v or log line never
// leaks the sensitive form.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// KeyId uniquely identifies a registry entry. Generated once, never reused.
type KeyId string

// NewKeyId generates a fresh random key identifier.
func NewKeyId() KeyId {
	return KeyId("key-" + uuid.NewString())
}

func (k KeyId) String() string { return string(k) }

// VaultId uniquely identifies a vault.
type VaultId string

// NewVaultId generates a fresh random vault identifier.
func NewVaultId() VaultId {
	return VaultId("vault-" + uuid.NewString())
}

func (v VaultId) String() string { return string(v) }

// MachineId identifies one installation. Generated once at bootstrap and
// persisted in device.json.
type MachineId string

// NewMachineId generates a fresh v4 UUID machine identifier.
func NewMachineId() MachineId {
	return MachineId(uuid.NewString())
}

func (m MachineId) String() string { return string(m) }

const (
	// MaxLabelLength is the maximum length of a sanitized key or vault label.
	MaxLabelLength = 24
)

// Label is a sanitized, filesystem-safe, human-chosen name for a key or
// vault. Construction enforces length and character-set rules; the original
// user input is not retained by this type (callers keep that separately as
// a display label where the spec calls for one).
type Label string

var labelForbidden = "/\\:*?\"<>|"

// NewLabel validates and returns a Label, or a ValidationError.
func NewLabel(raw string) (Label, error) {
	if raw == "" {
		return "", vaulterr.NewValidationError("label", "must not be empty", vaulterr.ErrEmptyLabel)
	}
	if len([]rune(raw)) > MaxLabelLength {
		return "", vaulterr.NewValidationError("label", fmt.Sprintf("must be %d characters or fewer", MaxLabelLength), vaulterr.ErrLabelTooLong)
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return "", vaulterr.NewValidationError("label", "contains control characters", vaulterr.ErrLabelInvalidChars)
		}
		if containsRune(labelForbidden, r) {
			return "", vaulterr.NewValidationError("label", fmt.Sprintf("must not contain %q", labelForbidden), vaulterr.ErrLabelInvalidChars)
		}
	}
	return Label(raw), nil
}

func (l Label) String() string { return string(l) }

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
