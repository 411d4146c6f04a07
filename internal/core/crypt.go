package core

import (
	"context"
	"time"

	"github.com/barqly/barqly-vault/internal/ageio"
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/progress"
)

// AppVersion is stamped into every manifest's device_provenance. Set by
// the cmd entrypoint at build/link time; "dev" otherwise.
var AppVersion = "dev"

// Encrypt performs encrypt(vault_id, selection): it persists the
// selection onto the vault record, resolves recipients from the vault's
// attached key ids, stages and archives the selection, and encrypts it to
// every resolved recipient, per spec.md §4.J. reporter may be nil; the
// staging/archiving stage reports byte-level progress (fraction, speed,
// ETA) computed by internal/util.Statify, debounced along with the coarser
// stage-boundary events.
func (c *Core) Encrypt(vaultID domain.VaultId, selection EncryptSelection, reporter progress.Reporter) (*ageio.EncryptResult, error) {
	rep := progress.NewDebounced(reporter)
	rep.SetStatus("resolving recipients")
	rep.SetProgress(0, "starting")
	rep.Update()

	record, err := c.Vaults.Get(vaultID)
	if err != nil {
		return nil, err
	}

	record.SelectionType = selection.SelectionType
	record.Files = selection.Files
	record.Folder = selection.Folder
	record.BasePath = selection.BasePath

	rep.SetStatus("staging and archiving selection")
	rep.SetProgress(0.3, "staging")
	rep.Update()

	req := ageio.EncryptRequest{
		VaultId:       record.VaultId,
		Label:         record.Label,
		SanitizedName: record.SanitizedName,
		Description:   record.Description,
		SelectionType: selection.SelectionType,
		Files:         selection.Files,
		Folder:        selection.Folder,
		BasePath:      selection.BasePath,
		KeyIds:        record.KeyIds,
		Provenance: manifest.DeviceProvenance{
			MachineId:    c.Bootstrap.Device.MachineId,
			MachineLabel: c.Bootstrap.Device.MachineLabel,
			AppVersion:   AppVersion,
		},
		PriorRevision: record.EncryptionRevision,
	}

	result, err := c.Encryptor.Encrypt(req, rep)
	if err != nil {
		return nil, err
	}

	if err := c.Vaults.SetEncryptionRevision(vaultID, result.Manifest.EncryptionRevision); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, id := range record.KeyIds {
		_ = c.Registry.TouchLastUsed(id, now)
	}

	rep.SetStatus("done")
	rep.SetProgress(1, "encrypted")
	rep.Update()
	return result, nil
}

// Decrypt performs decrypt(ciphertext_path, unlock, output_dir) and
// stamps last_used on whichever registry key actually unlocked the
// archive. reporter may be nil; the extraction stage reports byte-level
// progress computed by internal/util.Statify against the ciphertext's
// on-disk size.
func (c *Core) Decrypt(ctx context.Context, req ageio.DecryptRequest, reporter progress.Reporter) (*ageio.DecryptResult, error) {
	rep := progress.NewDebounced(reporter)
	rep.SetStatus("unlocking")
	rep.SetProgress(0, "starting")
	rep.Update()

	result, err := c.Encryptor.Decrypt(ctx, req, rep)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch m := req.Unlock.(type) {
	case ageio.PassphraseUnlock:
		_ = c.Registry.TouchLastUsed(m.KeyId, now)
	case ageio.TokenUnlock:
		for _, entry := range c.Registry.FindBySerial(m.Serial) {
			_ = c.Registry.TouchLastUsed(entry.KeyId, now)
		}
	}

	rep.SetStatus("done")
	rep.SetProgress(1, "decrypted")
	rep.Update()
	return result, nil
}
