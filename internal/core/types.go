package core

import (
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/secret"
)

// VaultSummary is the create_vault/list_vaults response shape.
type VaultSummary struct {
	VaultId            domain.VaultId         `json:"vault_id"`
	Label              string                 `json:"label"`
	SanitizedName      string                 `json:"sanitized_name"`
	Description        *string                `json:"description"`
	CreatedAt          string                 `json:"created_at"`
	SelectionType      manifest.SelectionType `json:"selection_type"`
	BasePath           *string                `json:"base_path"`
	KeyIds             []domain.KeyId         `json:"key_ids"`
	EncryptionRevision int                    `json:"encryption_revision"`
}

// KeyRef is the response shape shared by every operation that creates or
// registers a key: add_passphrase_key_to_vault, add_token_key_to_vault,
// add_recipient.
type KeyRef struct {
	KeyId           domain.KeyId       `json:"key_id"`
	Label           domain.Label       `json:"label"`
	Type            registry.KeyType   `json:"type"`
	PublicRecipient domain.Recipient   `json:"public_recipient"`
}

// ImportResult is import_key_file's response shape.
type ImportResult struct {
	Valid           bool             `json:"valid"`
	KeyId           domain.KeyId     `json:"key_id,omitempty"`
	Label           domain.Label     `json:"label,omitempty"`
	Type            registry.KeyType `json:"type,omitempty"`
	PublicRecipient domain.Recipient `json:"public_recipient,omitempty"`
}

// PassphraseStrengthResult is validate_passphrase_strength's response
// shape, combining the component-boundary minimum-acceptability policy
// with internal/secret's richer scoring.
type PassphraseStrengthResult struct {
	Valid    bool              `json:"valid"`
	Strength secret.Strength   `json:"strength"`
	Score    int               `json:"score"`
	Feedback []string          `json:"feedback"`
}

// EncryptSelection describes what encrypt(vault_id, selection) should
// stage: either an explicit list of files, or a folder walked recursively.
// It is persisted onto the vault record so a later re-encrypt can be
// triggered (e.g. after adding a key) without the caller re-specifying it.
type EncryptSelection struct {
	SelectionType manifest.SelectionType
	Files         []string
	Folder        string
	BasePath      *string
}

// TokenState is a hardware token's provisioning/registration state as seen
// from this installation, per spec.md §4.L's list_tokens.
type TokenState string

const (
	TokenStateNew        TokenState = "New"
	TokenStateReused     TokenState = "Reused"
	TokenStateRegistered TokenState = "Registered"
	TokenStateOrphaned   TokenState = "Orphaned"
)

// TokenSummary is one entry in list_tokens' response.
type TokenSummary struct {
	Serial domain.Serial `json:"serial"`
	Model  string        `json:"model,omitempty"`
	State  TokenState    `json:"state"`
}

// InitializeTokenResult is initialize_token's response shape. RecoveryCode
// is returned exactly once: only its hash is persisted.
type InitializeTokenResult struct {
	Serial      domain.Serial      `json:"serial"`
	Slot        int                `json:"slot"`
	Recipient   domain.Recipient   `json:"recipient"`
	IdentityTag domain.IdentityTag `json:"identity_tag"`
	RecoveryCode string            `json:"recovery_code"`
}
