// Package bootstrap implements Component K: the startup reconciler that
// makes the key registry convergent with whatever vault manifests are on
// disk, so losing the registry file is never fatal as long as the user's
// vault files survive.
package bootstrap

import (
	"path/filepath"
	"time"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/log"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/registry"
)

// Result reports what Reconcile did, for startup logging/telemetry.
type Result struct {
	Device          pathio.DeviceIdentity
	Store           *registry.Store
	ManifestsSeen   int
	ManifestsFailed int
	KeysInserted    int
}

// Reconcile performs spec section 4.K's startup sequence in order:
// load-or-create the device identity, load the registry (empty if
// absent), walk every manifest under the manifest root, and additively
// insert any recipient it names that the registry doesn't already have.
// Existing entries are never deleted or overwritten.
func Reconcile(defaultMachineLabel string) (*Result, error) {
	device, err := pathio.LoadOrCreateDeviceIdentity(defaultMachineLabel)
	if err != nil {
		return nil, err
	}

	store, err := registry.Load()
	if err != nil {
		return nil, err
	}

	manifestRoot, err := pathio.ManifestRoot()
	if err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(manifestRoot, "*.manifest"))
	if err != nil {
		return nil, err
	}

	result := &Result{Device: device, Store: store}
	changed := false

	for _, p := range paths {
		result.ManifestsSeen++
		m, err := manifest.Load(p)
		if err != nil {
			result.ManifestsFailed++
			log.Warn("bootstrap: skipping unparsable manifest", log.String("path", p), log.String("error", err.Error()))
			continue
		}

		for _, r := range m.Recipients {
			if r.KeyId == "" {
				continue
			}
			if _, err := store.Get(r.KeyId); err == nil {
				continue // already registered, never overwrite
			}
			if err := store.Register(entryFromSnapshot(r)); err != nil {
				log.Warn("bootstrap: could not insert recovered key entry", log.String("key_id", r.KeyId.String()), log.String("error", err.Error()))
				continue
			}
			result.KeysInserted++
			changed = true
		}
	}

	if changed {
		log.Info("bootstrap: registry reconciled from vault manifests", log.Int("keys_inserted", result.KeysInserted))
	}

	return result, nil
}

// entryFromSnapshot derives a KeyEntry from a manifest's denormalized
// recipient snapshot: Passphrase-variant if the snapshot carries a blob
// filename, Token-variant otherwise, per spec section 4.K step 4.
func entryFromSnapshot(r manifest.RecipientSnapshot) *registry.KeyEntry {
	e := &registry.KeyEntry{
		KeyId:           r.KeyId,
		Label:           r.Label,
		CreatedAt:       r.CreatedAt,
		Lifecycle:       domain.Active,
		PublicRecipient: r.PublicRecipient,
	}
	if r.EncryptedBlobFilename != "" {
		e.Type = registry.KeyTypePassphrase
		e.EncryptedBlobFilename = r.EncryptedBlobFilename
	} else {
		e.Type = registry.KeyTypeToken
		e.Serial = r.Serial
		e.LogicalSlot = r.LogicalSlot
		e.HardwareSlot = r.HardwareSlot
		e.IdentityTag = r.IdentityTag
		e.Model = r.Model
		e.FirmwareVersion = r.FirmwareVersion
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return e
}
