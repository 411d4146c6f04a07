package ageio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
	"filippo.io/age/plugin"
	"github.com/google/uuid"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/progress"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/resolver"
	"github.com/barqly/barqly-vault/internal/stage"
	"github.com/barqly/barqly-vault/internal/token"
	"github.com/barqly/barqly-vault/internal/tokenplugin"
	"github.com/barqly/barqly-vault/internal/util"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// Encryptor implements Component J: it composes the Recipient Resolver
// (H), Staging & Archiver (I), and the Registry/Manifest stores to carry
// out the full encrypt/decrypt round trip.
type Encryptor struct {
	Store             *registry.Store
	PassphraseService *PassphraseKeyService
	// TokenSession is nil when no hardware token is configured; Decrypt
	// returns ErrTokenNotFound for a Token unlock request in that case.
	TokenSession *token.Session
}

// NewEncryptor builds an Encryptor bound to store. tokenSession may be nil.
func NewEncryptor(store *registry.Store, tokenSession *token.Session) *Encryptor {
	return &Encryptor{Store: store, PassphraseService: NewPassphraseKeyService(store), TokenSession: tokenSession}
}

// EncryptRequest describes one encrypt(vault_id, selection) call.
type EncryptRequest struct {
	VaultId       domain.VaultId
	Label         string
	SanitizedName string
	Description   *string
	SelectionType manifest.SelectionType
	Files         []string // SelectionFiles
	Folder        string   // SelectionFolder
	BasePath      *string
	KeyIds        []domain.KeyId
	Provenance    manifest.DeviceProvenance
	// PriorRevision is the vault's encryption_revision before this call;
	// the result manifest's revision is PriorRevision+1.
	PriorRevision int
}

// EncryptResult is what encrypt(vault_id, selection) returns.
type EncryptResult struct {
	CiphertextPath string
	ManifestPath   string
	Manifest       *manifest.Manifest
	ArchiveHash    string
	Warnings       []resolver.Warning
}

// Encrypt performs spec section 4.J's Encrypt(selection, vault) steps.
// reporter receives byte-level progress while the selection is archived;
// it may be nil.
func (e *Encryptor) Encrypt(req EncryptRequest, reporter progress.Reporter) (*EncryptResult, error) {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	res := resolver.Resolve(req.KeyIds, e.Store)
	if len(res.Recipients) == 0 {
		return nil, vaulterr.ErrNoRecipients
	}

	root, err := stage.New()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	var staged []stage.FileEntry
	switch req.SelectionType {
	case manifest.SelectionFolder:
		staged, err = root.CopyFolder(req.Folder)
	default:
		staged, err = root.CopyFiles(req.Files)
	}
	if err != nil {
		return nil, err
	}

	m := manifest.BuildFromVaultAndRegistry(
		req.VaultId, req.Label, req.SanitizedName, req.Description,
		req.SelectionType, req.BasePath, req.KeyIds, e.Store, req.Provenance,
	)
	m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.EncryptionRevision = req.PriorRevision + 1

	var totalSize int64
	for _, f := range staged {
		m.FileEntries = append(m.FileEntries, manifest.FileEntry{
			Path:     f.Path,
			Size:     f.Size,
			Hash:     f.Hash,
			Modified: f.ModTime.UTC().Format(time.RFC3339),
			Mode:     f.Mode,
		})
		totalSize += f.Size
	}
	m.FileCount = len(m.FileEntries)
	m.TotalSize = totalSize

	if err := e.embedManifestAndRecovery(root, m); err != nil {
		return nil, err
	}

	archivePath := filepath.Join(os.TempDir(), req.SanitizedName+"-"+uuid.NewString()+".tar.gz")
	buildStart := time.Now()
	buildResult, err := root.Build(archivePath, totalSize, func(done, total int64) {
		frac, _, eta := util.Statify(done, total, buildStart)
		reporter.SetProgress(0.3+frac*0.3, eta)
		reporter.Update()
	})
	if err != nil {
		return nil, err
	}
	defer os.Remove(archivePath)

	recipients, err := resolveAgeRecipients(res.Recipients)
	if err != nil {
		return nil, err
	}

	vaultsDir, err := pathio.VaultsDir()
	if err != nil {
		return nil, vaulterr.NewPersistenceError("vaults-dir", "", err)
	}
	ciphertextTmp := filepath.Join(vaultsDir, req.SanitizedName+".age.incomplete")
	ciphertextPath := filepath.Join(vaultsDir, req.SanitizedName+".age")

	if err := encryptFileToRecipients(archivePath, ciphertextTmp, recipients); err != nil {
		_ = os.Remove(ciphertextTmp)
		return nil, err
	}
	if err := os.Rename(ciphertextTmp, ciphertextPath); err != nil {
		_ = os.Remove(ciphertextTmp)
		return nil, vaulterr.NewPersistenceError("rename", ciphertextPath, err)
	}

	sidecarPath := filepath.Join(vaultsDir, m.FileName())
	if err := m.SaveTo(sidecarPath); err != nil {
		return nil, err
	}
	if err := m.Save(); err != nil {
		return nil, err
	}

	return &EncryptResult{
		CiphertextPath: ciphertextPath,
		ManifestPath:   sidecarPath,
		Manifest:       m,
		ArchiveHash:    buildResult.Hash,
		Warnings:       res.Warnings,
	}, nil
}

// embedManifestAndRecovery writes the manifest document, every passphrase
// recipient's blob file, and RECOVERY.txt into the staging root, per spec
// section 4.I steps 4-6.
func (e *Encryptor) embedManifestAndRecovery(root *stage.Root, m *manifest.Manifest) error {
	data, err := manifestJSON(m)
	if err != nil {
		return err
	}
	if err := root.WriteFile(m.FileName(), data); err != nil {
		return err
	}

	keysDir, err := pathio.KeysDir()
	if err != nil {
		return vaulterr.NewPersistenceError("keys-dir", "", err)
	}

	var passphraseCount, tokenCount int
	for _, r := range m.Recipients {
		if r.RecipientType == "Token" {
			tokenCount++
			continue
		}
		passphraseCount++
		if r.EncryptedBlobFilename == "" {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(keysDir, r.EncryptedBlobFilename))
		if err != nil {
			return vaulterr.NewPersistenceError("read-blob", r.EncryptedBlobFilename, err)
		}
		if err := root.WriteFile(r.EncryptedBlobFilename, blob); err != nil {
			return err
		}
	}

	recovery := stage.BuildRecoveryText(stage.RecoveryTextParams{
		VaultLabel:    m.Label,
		CreatedAt:     m.CreatedAt,
		FileCount:     m.FileCount,
		PassphraseKey: passphraseCount > 0,
		TokenKeys:     tokenCount,
	})
	return root.WriteFile("RECOVERY.txt", recovery)
}

func manifestJSON(m *manifest.Manifest) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// DecryptRequest describes one decrypt(ciphertext_path, unlock, output_dir)
// call.
type DecryptRequest struct {
	CiphertextPath string
	Unlock         UnlockMethod
	OutputDir      string
	// SidecarManifestPath, if set, is verified against the extracted
	// files after a successful decrypt.
	SidecarManifestPath string
}

// UnlockMethod discriminates the two ways spec section 4.J allows a
// ciphertext to be decrypted.
type UnlockMethod interface {
	isUnlockMethod()
}

// PassphraseUnlock decrypts using a passphrase-protected registry key.
type PassphraseUnlock struct {
	KeyId      domain.KeyId
	Passphrase string
}

func (PassphraseUnlock) isUnlockMethod() {}

// TokenUnlock decrypts using a hardware token's plugin-mediated identity.
type TokenUnlock struct {
	Serial domain.Serial
	Pin    domain.Pin
}

func (TokenUnlock) isUnlockMethod() {}

// DecryptResult is what decrypt(ciphertext_path, unlock, output_dir)
// returns.
type DecryptResult struct {
	ExtractedFiles []stage.ExtractedFile
	VerifyResults  []stage.VerifyResult
}

// Decrypt performs spec section 4.J's Decrypt(ciphertext_path,
// unlock_method, output_dir) steps. reporter receives byte-level progress
// while the archive is extracted; it may be nil.
func (e *Encryptor) Decrypt(ctx context.Context, req DecryptRequest, reporter progress.Reporter) (*DecryptResult, error) {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	identities, err := e.identitiesFor(ctx, req.Unlock)
	if err != nil {
		return nil, err
	}

	ciphertext, err := os.Open(req.CiphertextPath)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("open", req.CiphertextPath, err)
	}
	defer ciphertext.Close()

	r, err := age.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, classifyDecryptError(err, req.Unlock)
	}

	plaintextPath := filepath.Join(os.TempDir(), "barqly-decrypt-"+uuid.NewString()+".tar.gz")
	plaintext, err := os.OpenFile(plaintextPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("create", plaintextPath, err)
	}
	_, copyErr := io.Copy(plaintext, r)
	closeErr := plaintext.Close()
	defer os.Remove(plaintextPath)
	if copyErr != nil {
		return nil, vaulterr.NewValidationError("archive", "failed streaming decrypted plaintext", vaulterr.ErrArchiveCorrupted)
	}
	if closeErr != nil {
		return nil, vaulterr.NewPersistenceError("close", plaintextPath, closeErr)
	}

	archive, err := os.Open(plaintextPath)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("open", plaintextPath, err)
	}
	defer archive.Close()

	var archiveSize int64
	if info, statErr := archive.Stat(); statErr == nil {
		archiveSize = info.Size()
	}
	extractStart := time.Now()
	extracted, err := stage.Extract(archive, req.OutputDir, archiveSize, func(done, total int64) {
		frac, _, eta := util.Statify(done, total, extractStart)
		reporter.SetProgress(0.3+frac*0.6, eta)
		reporter.Update()
	})
	if err != nil {
		return nil, err
	}

	result := &DecryptResult{ExtractedFiles: extracted}
	if req.SidecarManifestPath != "" {
		if mf, err := manifest.Load(req.SidecarManifestPath); err == nil {
			hashes := make(map[string]string, len(mf.FileEntries))
			for _, fe := range mf.FileEntries {
				hashes[fe.Path] = fe.Hash
			}
			result.VerifyResults = stage.VerifyAgainstManifest(extracted, hashes)
		}
	}
	return result, nil
}

// identitiesFor materializes the age.Identity set for one unlock request.
func (e *Encryptor) identitiesFor(ctx context.Context, unlock UnlockMethod) ([]age.Identity, error) {
	switch m := unlock.(type) {
	case PassphraseUnlock:
		privateKey, err := e.PassphraseService.Unlock(m.KeyId, m.Passphrase)
		if err != nil {
			return nil, err
		}
		defer privateKey.Close()
		identity, err := age.ParseX25519Identity(privateKey.Open())
		if err != nil {
			return nil, vaulterr.ErrWrongPassphrase
		}
		return []age.Identity{identity}, nil

	case TokenUnlock:
		if e.TokenSession == nil {
			return nil, vaulterr.ErrTokenNotFound
		}
		tag, ok, err := e.TokenSession.GetIdentityForSerial(ctx, m.Serial)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, vaulterr.ErrNoMatchingIdentity
		}
		if err := tokenplugin.EnsureOnPath(e.TokenSession.PluginPath()); err != nil {
			return nil, vaulterr.NewTokenError("decrypt", m.Serial.Raw(), err)
		}

		pin := m.Pin.Raw()
		ui := &plugin.ClientUI{
			RequestValue: func(name, message string, secretValue bool) (string, error) {
				if secretValue {
					return pin, nil
				}
				return "", nil
			},
			DisplayMessage: func(name, message string) error { return nil },
			Confirm:        func(name, message, yes, no string) (bool, error) { return true, nil },
			WaitTimer:      func(name string) {},
		}
		identity, err := plugin.NewIdentity(tag.Raw(), ui)
		if err != nil {
			return nil, vaulterr.NewTokenError("decrypt", m.Serial.Raw(), err)
		}
		return []age.Identity{identity}, nil
	}
	return nil, vaulterr.ErrUnexpected
}

// classifyDecryptError maps an age.Decrypt failure to the spec section
// 4.J failure taxonomy, which depends on which unlock method was in play:
// a passphrase identity that fails to match is always WrongPassphrase
// (never Corrupted), while a token identity failure is inspected for
// PIN/touch wording the plugin CLI reports.
func classifyDecryptError(err error, unlock UnlockMethod) error {
	switch unlock.(type) {
	case PassphraseUnlock:
		return vaulterr.ErrWrongPassphrase
	case TokenUnlock:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "blocked") || strings.Contains(msg, "locked"):
			return vaulterr.ErrPinBlocked
		case strings.Contains(msg, "pin"):
			return vaulterr.ErrPinIncorrect
		case strings.Contains(msg, "touch") || strings.Contains(msg, "timeout"):
			return vaulterr.ErrTouchTimeout
		default:
			return vaulterr.ErrNoMatchingIdentity
		}
	}
	return vaulterr.ErrNoMatchingIdentity
}

// resolveAgeRecipients converts resolved registry recipient strings into
// age.Recipient values, using the plugin package for plugin-mediated
// (hardware-token) recipients and the bare X25519 parser otherwise.
func resolveAgeRecipients(recipients []domain.Recipient) ([]age.Recipient, error) {
	out := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.IsPluginMediated() {
			rec, err := plugin.NewRecipient(r.Raw(), &plugin.ClientUI{})
			if err != nil {
				return nil, vaulterr.NewTokenError("encrypt", "", fmt.Errorf("resolve plugin recipient: %w", err))
			}
			out = append(out, rec)
			continue
		}
		rec, err := age.ParseX25519Recipient(r.Raw())
		if err != nil {
			return nil, vaulterr.NewValidationError("recipient", "not a valid age1 recipient", vaulterr.ErrInvalidRecipient)
		}
		out = append(out, rec)
	}
	return out, nil
}

// encryptFileToRecipients streams srcPath through age.Encrypt to every
// recipient in a single pass, writing the ciphertext to destPath.
func encryptFileToRecipients(srcPath, destPath string, recipients []age.Recipient) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return vaulterr.NewPersistenceError("open", srcPath, err)
	}
	defer src.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return vaulterr.NewPersistenceError("create", destPath, err)
	}

	w, err := age.Encrypt(dest, recipients...)
	if err != nil {
		dest.Close()
		return vaulterr.NewPersistenceError("encrypt", destPath, err)
	}
	_, copyErr := io.Copy(w, src)
	closeErr := w.Close()
	destCloseErr := dest.Close()

	if copyErr != nil {
		return vaulterr.NewPersistenceError("encrypt", destPath, copyErr)
	}
	if closeErr != nil {
		return vaulterr.NewPersistenceError("encrypt", destPath, closeErr)
	}
	if destCloseErr != nil {
		return vaulterr.NewPersistenceError("close", destPath, destCloseErr)
	}
	return nil
}
