package manifest

import (
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/registry"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// BuildFromVaultAndRegistry produces a fresh manifest by resolving each key
// id against the registry and denormalizing it into a RecipientSnapshot.
// Unresolvable key ids are skipped (degraded mode), matching the Recipient
// Resolver's tolerance in spec.md §4.H; the caller decides whether zero
// resolved recipients is fatal.
func BuildFromVaultAndRegistry(
	vaultID domain.VaultId,
	label, sanitizedName string,
	description *string,
	selectionType SelectionType,
	basePath *string,
	keyIDs []domain.KeyId,
	store *registry.Store,
	provenance DeviceProvenance,
) *Manifest {
	m := &Manifest{
		VaultId:          vaultID,
		Label:            label,
		SanitizedName:    sanitizedName,
		Description:      description,
		EncryptionRevision: 0,
		DeviceProvenance: provenance,
		SelectionType:    selectionType,
		BasePath:         basePath,
	}

	for _, id := range keyIDs {
		entry, err := store.Get(id)
		if err != nil {
			continue
		}
		m.Recipients = append(m.Recipients, snapshotFromEntry(entry))
	}

	return m
}

func snapshotFromEntry(e *registry.KeyEntry) RecipientSnapshot {
	s := RecipientSnapshot{
		KeyId:           e.KeyId,
		PublicRecipient: e.PublicRecipient,
		Label:           e.Label,
		CreatedAt:       e.CreatedAt,
	}
	switch e.Type {
	case registry.KeyTypeToken:
		s.RecipientType = "Token"
		s.Serial = e.Serial
		s.LogicalSlot = e.LogicalSlot
		s.HardwareSlot = e.HardwareSlot
		s.Model = e.Model
		s.IdentityTag = e.IdentityTag
		s.FirmwareVersion = e.FirmwareVersion
	default:
		s.RecipientType = "Passphrase"
		s.EncryptedBlobFilename = e.EncryptedBlobFilename
	}
	return s
}

// ResolvedRecipients returns the public recipient strings for every
// snapshot, in stored order, erroring with ErrNoRecipients if none exist.
func (m *Manifest) ResolvedRecipients() ([]domain.Recipient, error) {
	if len(m.Recipients) == 0 {
		return nil, vaulterr.ErrNoRecipients
	}
	out := make([]domain.Recipient, 0, len(m.Recipients))
	for _, r := range m.Recipients {
		out = append(out, r.PublicRecipient)
	}
	return out, nil
}
