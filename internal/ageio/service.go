package ageio

import (
	"os"
	"path/filepath"
	"time"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/secret"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// PassphraseKeyService composes Generate/Protect/Unlock with the Registry
// Store and the key-blob-file writer, per spec section 4.G: "persist the
// resulting opaque blob through the Registry Store and Key-Blob-File
// writer."
type PassphraseKeyService struct {
	Store *registry.Store
}

// NewPassphraseKeyService builds a service bound to store.
func NewPassphraseKeyService(store *registry.Store) *PassphraseKeyService {
	return &PassphraseKeyService{Store: store}
}

// blobFilename derives a filesystem-safe blob name from a label, matching
// spec section 4.G: "derived from the key label (sanitized) + a suffix."
func blobFilename(label domain.Label) string {
	return pathio.SanitizeName(label.String()) + ".agekey"
}

// Create generates a new passphrase-protected key, writes its blob under
// the keys directory, and registers it. The returned KeyEntry's Lifecycle
// is Active.
func (s *PassphraseKeyService) Create(label domain.Label, passphrase string) (*registry.KeyEntry, error) {
	if err := ValidatePassphrasePolicy(passphrase); err != nil {
		return nil, err
	}

	recipient, privateKey, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	defer privateKey.Close()

	blob, err := ProtectPrivateKey(privateKey.Open(), passphrase)
	if err != nil {
		return nil, err
	}

	filename := blobFilename(label)
	keysDir, err := pathio.KeysDir()
	if err != nil {
		return nil, vaulterr.NewPersistenceError("keys-dir", "", err)
	}
	blobPath := filepath.Join(keysDir, filename)
	if err := pathio.WriteFileAtomic(blobPath, blob, 0600); err != nil {
		return nil, vaulterr.NewPersistenceError("write-blob", blobPath, err)
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
	if err := s.Store.Register(entry); err != nil {
		_ = os.Remove(blobPath)
		return nil, err
	}
	return entry, nil
}

// Unlock loads a key's blob from disk and unwraps it with passphrase.
func (s *PassphraseKeyService) Unlock(keyID domain.KeyId, passphrase string) (*secret.String, error) {
	entry, err := s.Store.Get(keyID)
	if err != nil {
		return nil, err
	}
	if entry.Type != registry.KeyTypePassphrase || entry.EncryptedBlobFilename == "" {
		return nil, vaulterr.ErrNoMatchingIdentity
	}

	blob, err := s.readBlob(entry.EncryptedBlobFilename)
	if err != nil {
		return nil, err
	}
	return UnlockPrivateKey(blob, passphrase)
}

// Export copies a key's raw encrypted blob to destPath, for the
// export_key(key_id, destination_path) operation (passphrase-variant
// only).
func (s *PassphraseKeyService) Export(keyID domain.KeyId, destPath string) error {
	entry, err := s.Store.Get(keyID)
	if err != nil {
		return err
	}
	if !entry.OwnsBlob() || entry.EncryptedBlobFilename == "" {
		return vaulterr.NewValidationError("key_id", "key has no exportable blob", vaulterr.ErrNoMatchingIdentity)
	}

	blob, err := s.readBlob(entry.EncryptedBlobFilename)
	if err != nil {
		return err
	}
	return pathio.WriteFileAtomic(destPath, blob, 0600)
}

func (s *PassphraseKeyService) readBlob(filename string) ([]byte, error) {
	keysDir, err := pathio.KeysDir()
	if err != nil {
		return nil, vaulterr.NewPersistenceError("keys-dir", "", err)
	}
	path := filepath.Join(keysDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("read-blob", path, err)
	}
	return data, nil
}
