// Package manifest implements the per-vault manifest document: recipients,
// staged file list, encryption revision, and device provenance. A manifest
// is persisted in three places that must agree byte-for-byte after a
// successful encryption: the app-private manifest root, embedded inside the
// encrypted archive, and as a plaintext sidecar next to the ciphertext.
package manifest

import (
	"encoding/json"
	"os"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// SelectionType is how the user chose what to encrypt.
type SelectionType string

const (
	SelectionFiles  SelectionType = "Files"
	SelectionFolder SelectionType = "Folder"
)

// DeviceProvenance stamps which installation last wrote a manifest.
type DeviceProvenance struct {
	MachineId    domain.MachineId `json:"machine_id"`
	MachineLabel string           `json:"machine_label"`
	AppVersion   string           `json:"app_version"`
}

// RecipientSnapshot is a denormalized copy of a registry entry, captured at
// encryption time so the manifest alone is sufficient to decrypt on a
// machine where the registry is absent.
type RecipientSnapshot struct {
	KeyId           domain.KeyId     `json:"key_id"`
	RecipientType   string           `json:"recipient_type"` // "Passphrase" | "Token"
	PublicRecipient domain.Recipient `json:"public_recipient"`
	Label           domain.Label     `json:"label"`
	CreatedAt       string           `json:"created_at"`

	// Token snapshot fields.
	Serial          domain.Serial      `json:"serial,omitempty"`
	LogicalSlot     int                `json:"logical_slot,omitempty"`
	HardwareSlot    int                `json:"hardware_slot,omitempty"`
	Model           string             `json:"model,omitempty"`
	IdentityTag     domain.IdentityTag `json:"identity_tag,omitempty"`
	FirmwareVersion string             `json:"firmware_version,omitempty"`

	// Passphrase snapshot fields.
	EncryptedBlobFilename string `json:"encrypted_blob_filename,omitempty"`
}

// FileEntry records one staged file's identity for later integrity
// verification on extraction.
type FileEntry struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"` // sha256-hex
	Modified string `json:"modified"`
	Mode     uint32 `json:"mode,omitempty"`
}

// Manifest is the full per-vault document, spec.md section 6.3.
type Manifest struct {
	VaultId             domain.VaultId      `json:"vault_id"`
	Label               string              `json:"label"`
	SanitizedName       string              `json:"sanitized_name"`
	Description         *string             `json:"description"`
	CreatedAt           string              `json:"created_at"`
	EncryptionRevision  int                 `json:"encryption_revision"`
	DeviceProvenance    DeviceProvenance    `json:"device_provenance"`
	SelectionType       SelectionType       `json:"selection_type"`
	BasePath            *string             `json:"base_path"`
	Recipients          []RecipientSnapshot `json:"recipients"`
	FileEntries         []FileEntry         `json:"file_entries"`
	FileCount           int                 `json:"file_count"`
	TotalSize           int64               `json:"total_size"`
}

// Validate checks the schema-conformance invariants from spec.md §4.D.
func (m *Manifest) Validate() error {
	for _, r := range m.Recipients {
		if r.PublicRecipient == "" {
			return vaulterr.NewValidationError("recipients", "every recipient must have a public_recipient", vaulterr.ErrManifestCorrupted)
		}
	}
	if m.EncryptionRevision < 0 {
		return vaulterr.NewValidationError("encryption_revision", "must be >= 0", vaulterr.ErrManifestCorrupted)
	}
	if m.FileCount != len(m.FileEntries) {
		return vaulterr.NewValidationError("file_count", "must equal len(file_entries)", vaulterr.ErrManifestCorrupted)
	}
	var sum int64
	for _, f := range m.FileEntries {
		sum += f.Size
	}
	if sum != m.TotalSize {
		return vaulterr.NewValidationError("total_size", "must equal sum of file entry sizes", vaulterr.ErrManifestCorrupted)
	}
	return nil
}

// FileName returns the canonical manifest filename for this vault.
func (m *Manifest) FileName() string {
	return m.SanitizedName + ".manifest"
}

// Load reads and validates a manifest document from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("load", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrManifestCorrupted)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadOrCreate loads an existing manifest at path, or returns a fresh
// zero-revision manifest for vaultID if none exists yet.
func LoadOrCreate(path string, vaultID domain.VaultId) (*Manifest, error) {
	m, err := Load(path)
	if err == nil {
		return m, nil
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return &Manifest{VaultId: vaultID, EncryptionRevision: 0}, nil
	}
	return nil, err
}

// Save writes the manifest to the app-private manifest root atomically.
func (m *Manifest) Save() error {
	root, err := pathio.ManifestRoot()
	if err != nil {
		return err
	}
	return m.SaveTo(root + "/" + m.FileName())
}

// SaveTo writes the manifest to an explicit path, used both for the
// app-private copy and the plaintext sidecar next to the ciphertext.
func (m *Manifest) SaveTo(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return vaulterr.NewPersistenceError("encode", path, err)
	}
	return pathio.WriteFileAtomic(path, data, 0600)
}

// IncrementRevisionAndSave bumps EncryptionRevision and persists the
// manifest to its canonical app-private location.
func (m *Manifest) IncrementRevisionAndSave() error {
	m.EncryptionRevision++
	return m.Save()
}
