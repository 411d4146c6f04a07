// Package registry implements the durable catalog of every key the user
// owns: passphrase-protected keys, hardware-token-bound keys, and
// recipient-only (third-party public key) entries, each carrying its own
// lifecycle state.
package registry

import (
	"github.com/barqly/barqly-vault/internal/domain"
)

// KeyType discriminates the three KeyEntry variants.
type KeyType string

const (
	KeyTypePassphrase KeyType = "passphrase"
	KeyTypeToken      KeyType = "token"
	KeyTypeRecipient  KeyType = "recipient"
)

// KeyEntry is one registry record. The JSON shape matches spec section 6.2:
// a `type` discriminator plus common fields plus variant-specific fields,
// all on one struct with `omitempty` rather than a tagged union, since that
// is what a single JSON object with optional fields naturally decodes into.
type KeyEntry struct {
	KeyId     domain.KeyId           `json:"key_id"`
	Type      KeyType                `json:"type"`
	Label     domain.Label           `json:"label"`
	CreatedAt string                 `json:"created_at"`
	LastUsed  *string                `json:"last_used,omitempty"`
	Lifecycle domain.LifecycleState  `json:"lifecycle"`
	History   []domain.StatusEvent   `json:"status_history"`

	PublicRecipient domain.Recipient `json:"public_key"`

	// Passphrase-variant fields.
	EncryptedBlobFilename string `json:"encrypted_blob_filename,omitempty"`

	// Token-variant fields.
	Serial            domain.Serial      `json:"serial,omitempty"`
	LogicalSlot       int                `json:"logical_slot,omitempty"`
	HardwareSlot      int                `json:"hardware_slot,omitempty"`
	IdentityTag       domain.IdentityTag `json:"identity_tag,omitempty"`
	Model             string             `json:"model,omitempty"`
	FirmwareVersion   string             `json:"firmware_version,omitempty"`
	RecoveryCodeHash  string             `json:"recovery_code_hash,omitempty"`

	// Recipient-only variant fields.
	VaultAssociations []domain.VaultId `json:"vault_associations,omitempty"`
}

// OwnsBlob reports whether this entry must have a corresponding on-disk
// encrypted blob file while its lifecycle is not Destroyed.
func (e *KeyEntry) OwnsBlob() bool {
	return e.Type == KeyTypePassphrase
}

// Document is the on-disk shape of the registry: a single JSON object
// mapping key id to entry.
type Document struct {
	Keys map[domain.KeyId]*KeyEntry `json:"keys"`
}
