package core

import (
	"os"
	"path/filepath"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/pathio"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// CreateVault registers a new, as-yet-unencrypted vault record. The
// sanitized name is derived from the display label the same way a
// passphrase key's blob filename is: spec.md is silent on how vault
// filenames are derived, and reusing the key-blob convention keeps the
// two naming schemes consistent.
func (c *Core) CreateVault(name string, description *string) (*VaultSummary, error) {
	label, err := domain.NewLabel(name)
	if err != nil {
		return nil, err
	}
	sanitized := pathio.SanitizeName(label.String())

	record := newVaultRecord(name, sanitized, description)
	if err := c.Vaults.Register(record); err != nil {
		return nil, err
	}
	return summaryFromRecord(record), nil
}

// ListVaults returns every known vault record.
func (c *Core) ListVaults() ([]VaultSummary, error) {
	records := c.Vaults.All()
	out := make([]VaultSummary, 0, len(records))
	for _, r := range records {
		out = append(out, *summaryFromRecord(r))
	}
	return out, nil
}

// DeleteVault removes a vault's app-private record and its app-private
// manifest copy. It never touches the user-visible ciphertext or sidecar
// manifest under VaultsDir: those are the user's backup and deleting the
// vault from this installation's catalog must not destroy data that may
// be the only surviving copy. force bypasses the guard against deleting a
// vault that has already been encrypted at least once, since that is the
// case most likely to be a mistake.
func (c *Core) DeleteVault(vaultID domain.VaultId, force bool) error {
	record, err := c.Vaults.Get(vaultID)
	if err != nil {
		return err
	}
	if record.EncryptionRevision > 0 && !force {
		return vaulterr.NewValidationError("vault_id", "vault has already been encrypted; pass force to delete its local record anyway", vaulterr.ErrVaultAlreadyExists)
	}

	manifestRoot, err := pathio.ManifestRoot()
	if err == nil {
		_ = os.Remove(filepath.Join(manifestRoot, record.SanitizedName+".manifest"))
	}

	return c.Vaults.Delete(vaultID)
}

func summaryFromRecord(r *VaultRecord) *VaultSummary {
	return &VaultSummary{
		VaultId:            r.VaultId,
		Label:              r.Label,
		SanitizedName:      r.SanitizedName,
		Description:        r.Description,
		CreatedAt:          r.CreatedAt,
		SelectionType:      r.SelectionType,
		BasePath:           r.BasePath,
		KeyIds:             r.KeyIds,
		EncryptionRevision: r.EncryptionRevision,
	}
}
