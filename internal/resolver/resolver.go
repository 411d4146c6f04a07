// Package resolver implements Component H: turning a vault's ordered list
// of key ids into the ordered list of age recipient strings actually used
// for encryption, tolerating registry entries that have gone missing.
package resolver

import (
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/log"
	"github.com/barqly/barqly-vault/internal/registry"
)

// Warning describes one key id that could not be resolved.
type Warning struct {
	KeyId  domain.KeyId
	Reason string
}

// Result is the resolver's output: the ordered recipients that did
// resolve, plus any warnings for ids that did not.
type Result struct {
	Recipients []domain.Recipient
	Warnings   []Warning
}

// Resolve walks keyIDs in order, looking each up in store, and returns the
// ordered list of public recipients for the ones that resolve. An id
// absent from the registry is skipped and recorded as a warning rather
// than failing the whole resolution (degraded mode): a vault is still
// usable as long as at least one recipient resolves.
func Resolve(keyIDs []domain.KeyId, store *registry.Store) Result {
	result := Result{Recipients: make([]domain.Recipient, 0, len(keyIDs))}

	for _, id := range keyIDs {
		entry, err := store.Get(id)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{KeyId: id, Reason: "key id not found in registry"})
			log.Warn("resolver: skipping unresolvable key", log.String("key_id", string(id)))
			continue
		}
		if entry.PublicRecipient == "" {
			result.Warnings = append(result.Warnings, Warning{KeyId: id, Reason: "registry entry has no public recipient"})
			continue
		}
		result.Recipients = append(result.Recipients, entry.PublicRecipient)
	}

	return result
}
