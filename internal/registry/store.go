package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/log"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// Store is the durable, atomically updated key registry. A zero-value
// Store is not usable; construct one with Load.
type Store struct {
	mu   sync.Mutex
	path string
	doc  Document
}

// Load reads the registry document from its canonical path. A missing file
// is not an error: Load returns an empty registry, matching spec section
// 4.C's "if absent, returns empty".
func Load() (*Store, error) {
	path, err := pathio.RegistryPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the registry document from an explicit path, primarily for
// tests.
func LoadFrom(path string) (*Store, error) {
	s := &Store{path: path, doc: Document{Keys: map[domain.KeyId]*KeyEntry{}}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, vaulterr.NewPersistenceError("load", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, vaulterr.Wrap(vaulterr.ErrRegistryCorrupted)
	}
	if doc.Keys == nil {
		doc.Keys = map[domain.KeyId]*KeyEntry{}
	}
	s.doc = doc
	return s, nil
}

// Save writes the registry document atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return vaulterr.NewPersistenceError("encode", s.path, err)
	}
	if err := pathio.WriteFileAtomic(s.path, data, 0600); err != nil {
		return vaulterr.NewPersistenceError("save", s.path, err)
	}
	return nil
}

// Register adds a new entry. Fails with ErrDuplicateKey if the key id or
// public recipient is already present.
func (s *Store) Register(entry *KeyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Keys[entry.KeyId]; exists {
		return vaulterr.NewValidationError("key_id", "already registered", vaulterr.ErrDuplicateKey)
	}
	if entry.PublicRecipient != "" {
		for _, e := range s.doc.Keys {
			if e.PublicRecipient == entry.PublicRecipient {
				return vaulterr.NewValidationError("public_recipient", "already registered", vaulterr.ErrDuplicateKey)
			}
		}
	}

	s.doc.Keys[entry.KeyId] = entry
	log.Info("registry: key registered", log.String("key_id", entry.KeyId.String()), log.String("type", string(entry.Type)))
	return s.saveLocked()
}

// Get returns the entry for id, or ErrKeyNotFound.
func (s *Store) Get(id domain.KeyId) (*KeyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Keys[id]
	if !ok {
		return nil, vaulterr.ErrKeyNotFound
	}
	return e, nil
}

// FindByPublicRecipient returns the entry whose public recipient matches,
// or ErrKeyNotFound.
func (s *Store) FindByPublicRecipient(recipient domain.Recipient) (*KeyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.doc.Keys {
		if e.PublicRecipient == recipient {
			return e, nil
		}
	}
	return nil, vaulterr.ErrKeyNotFound
}

// FindBySerial returns every token-bound entry for the given device serial
// (a device may have more than one slot registered over its lifetime).
func (s *Store) FindBySerial(serial domain.Serial) []*KeyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*KeyEntry
	for _, e := range s.doc.Keys {
		if e.Type == KeyTypeToken && e.Serial == serial {
			out = append(out, e)
		}
	}
	return out
}

// ListByLifecycle returns every entry currently in the given state.
func (s *Store) ListByLifecycle(state domain.LifecycleState) []*KeyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*KeyEntry
	for _, e := range s.doc.Keys {
		if e.Lifecycle == state {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in the registry. Callers must not mutate the
// returned entries directly; go through Transition/Save.
func (s *Store) All() []*KeyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*KeyEntry, 0, len(s.doc.Keys))
	for _, e := range s.doc.Keys {
		out = append(out, e)
	}
	return out
}

// Transition validates and applies a lifecycle transition, appends a
// status_history entry, and persists the change.
func (s *Store) Transition(id domain.KeyId, to domain.LifecycleState, reason, actor string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Keys[id]
	if !ok {
		return vaulterr.ErrKeyNotFound
	}
	if err := domain.ValidateTransition(string(id), e.Lifecycle, to); err != nil {
		return err
	}

	e.Lifecycle = to
	e.History = append(e.History, domain.StatusEvent{
		NewState:  to,
		Reason:    reason,
		Actor:     actor,
		Timestamp: now.UTC().Format(time.RFC3339),
	})

	return s.saveLocked()
}

// UpdateLabel renames an entry. Per spec section 3.2, a key's label may be
// changed only while its lifecycle is not Active.
func (s *Store) UpdateLabel(id domain.KeyId, label domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Keys[id]
	if !ok {
		return vaulterr.ErrKeyNotFound
	}
	if e.Lifecycle == domain.Active {
		return vaulterr.NewValidationError("label", "cannot rename a key while it is Active", vaulterr.ErrInvalidKeyState)
	}
	e.Label = label
	return s.saveLocked()
}

// DeleteBlobOnDestroy removes a passphrase key's on-disk blob file once its
// lifecycle has reached Destroyed, so no private key material outlives the
// registry entry that governs it.
func (s *Store) DeleteBlobOnDestroy(id domain.KeyId) error {
	s.mu.Lock()
	e, ok := s.doc.Keys[id]
	s.mu.Unlock()
	if !ok {
		return vaulterr.ErrKeyNotFound
	}
	if !e.OwnsBlob() || e.Lifecycle != domain.Destroyed || e.EncryptedBlobFilename == "" {
		return nil
	}
	keysDir, err := pathio.KeysDir()
	if err != nil {
		return err
	}
	path := filepath.Join(keysDir, e.EncryptedBlobFilename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return vaulterr.NewPersistenceError("remove-blob", path, err)
	}
	return nil
}

// TouchLastUsed stamps last_used on an entry and persists it.
func (s *Store) TouchLastUsed(id domain.KeyId, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Keys[id]
	if !ok {
		return vaulterr.ErrKeyNotFound
	}
	ts := now.UTC().Format(time.RFC3339)
	e.LastUsed = &ts
	return s.saveLocked()
}
