// Package core implements Component L: the External Operation Contract
// surfaced to callers (GUI, CLI). It composes the registry, the vault
// index, the passphrase/token key services, the recipient resolver, and
// the stage/archive encryptor into the one-shot operation set spec.md
// §4.L names, and is the only layer callers outside this module should
// import.
package core

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// VaultRecord is the app-private record of a vault's identity, selection,
// and intended key list. It exists separately from manifest.Manifest
// because a vault can have keys attached — and be renamed, have keys
// added or removed — before it has ever been encrypted once, at which
// point no manifest exists yet to hold that state.
type VaultRecord struct {
	VaultId       domain.VaultId        `json:"vault_id"`
	Label         string                `json:"label"`
	SanitizedName string                `json:"sanitized_name"`
	Description   *string               `json:"description"`
	CreatedAt     string                `json:"created_at"`
	SelectionType manifest.SelectionType `json:"selection_type"`
	Files         []string              `json:"files,omitempty"`
	Folder        string                `json:"folder,omitempty"`
	BasePath      *string               `json:"base_path"`
	KeyIds        []domain.KeyId        `json:"key_ids"`
	EncryptionRevision int              `json:"encryption_revision"`
}

type vaultIndexDocument struct {
	Vaults map[domain.VaultId]*VaultRecord `json:"vaults"`
}

// VaultStore is the durable, atomically updated catalog of vault records.
type VaultStore struct {
	mu   sync.Mutex
	path string
	doc  vaultIndexDocument
}

// LoadVaultStore reads the vault index from its canonical path. A missing
// file is not an error: it returns an empty store.
func LoadVaultStore() (*VaultStore, error) {
	path, err := pathio.VaultIndexPath()
	if err != nil {
		return nil, err
	}
	return loadVaultStoreFrom(path)
}

func loadVaultStoreFrom(path string) (*VaultStore, error) {
	s := &VaultStore{path: path, doc: vaultIndexDocument{Vaults: map[domain.VaultId]*VaultRecord{}}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, vaulterr.NewPersistenceError("load", path, err)
	}

	var doc vaultIndexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, vaulterr.NewValidationError("vault_index", "could not parse vault index", vaulterr.ErrRegistryCorrupted)
	}
	if doc.Vaults == nil {
		doc.Vaults = map[domain.VaultId]*VaultRecord{}
	}
	s.doc = doc
	return s, nil
}

func (s *VaultStore) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return vaulterr.NewPersistenceError("encode", s.path, err)
	}
	return pathio.WriteFileAtomic(s.path, data, 0600)
}

// Register inserts a new vault record. Fails with ErrVaultAlreadyExists if
// the vault id or sanitized name is already present.
func (s *VaultStore) Register(v *VaultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Vaults[v.VaultId]; exists {
		return vaulterr.NewValidationError("vault_id", "already registered", vaulterr.ErrVaultAlreadyExists)
	}
	for _, existing := range s.doc.Vaults {
		if existing.SanitizedName == v.SanitizedName {
			return vaulterr.NewValidationError("sanitized_name", "a vault with this name already exists", vaulterr.ErrVaultAlreadyExists)
		}
	}
	s.doc.Vaults[v.VaultId] = v
	return s.saveLocked()
}

// Get returns the record for id, or ErrVaultNotFound.
func (s *VaultStore) Get(id domain.VaultId) (*VaultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.doc.Vaults[id]
	if !ok {
		return nil, vaulterr.ErrVaultNotFound
	}
	return v, nil
}

// All returns every vault record.
func (s *VaultStore) All() []*VaultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*VaultRecord, 0, len(s.doc.Vaults))
	for _, v := range s.doc.Vaults {
		out = append(out, v)
	}
	return out
}

// Delete removes a vault record.
func (s *VaultStore) Delete(id domain.VaultId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Vaults[id]; !ok {
		return vaulterr.ErrVaultNotFound
	}
	delete(s.doc.Vaults, id)
	return s.saveLocked()
}

// AddKeyId appends a key id to a vault's intended recipient list, unless
// it is already present.
func (s *VaultStore) AddKeyId(vaultID domain.VaultId, keyID domain.KeyId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.doc.Vaults[vaultID]
	if !ok {
		return vaulterr.ErrVaultNotFound
	}
	for _, id := range v.KeyIds {
		if id == keyID {
			return vaulterr.NewValidationError("key_id", "already attached to this vault", vaulterr.ErrKeyAlreadyAttached)
		}
	}
	v.KeyIds = append(v.KeyIds, keyID)
	return s.saveLocked()
}

// RemoveKeyId removes a key id from a vault's intended recipient list, a
// no-op if it was not present.
func (s *VaultStore) RemoveKeyId(vaultID domain.VaultId, keyID domain.KeyId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.doc.Vaults[vaultID]
	if !ok {
		return vaulterr.ErrVaultNotFound
	}
	out := v.KeyIds[:0]
	for _, id := range v.KeyIds {
		if id != keyID {
			out = append(out, id)
		}
	}
	v.KeyIds = out
	return s.saveLocked()
}

// SetEncryptionRevision stamps the revision most recently written to the
// vault's manifest.
func (s *VaultStore) SetEncryptionRevision(vaultID domain.VaultId, revision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.doc.Vaults[vaultID]
	if !ok {
		return vaulterr.ErrVaultNotFound
	}
	v.EncryptionRevision = revision
	return s.saveLocked()
}

// newVaultRecord builds a fresh VaultRecord with a generated id and
// current timestamp.
func newVaultRecord(label, sanitizedName string, description *string) *VaultRecord {
	return &VaultRecord{
		VaultId:       domain.NewVaultId(),
		Label:         label,
		SanitizedName: sanitizedName,
		Description:   description,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}
