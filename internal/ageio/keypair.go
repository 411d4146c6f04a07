// Package ageio implements Components G and J: age-backed passphrase key
// generation/protection/unlock, and the archive Encryptor/Decryptor that
// streams a staged vault through age to every resolved recipient.
package ageio

import (
	"filippo.io/age"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/secret"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// GenerateKeypair produces a fresh age X25519 keypair: Component G's
// "Generate" operation. The private key is returned in its textual
// identity form ("AGE-SECRET-KEY-1...") inside a zeroize-on-close
// container; callers must Close it once it has been protected or used.
func GenerateKeypair() (domain.Recipient, *secret.String, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", nil, vaulterr.NewPersistenceError("generate-keypair", "", err)
	}
	recipient, err := domain.NewRecipient(identity.Recipient().String())
	if err != nil {
		return "", nil, err
	}
	return recipient, secret.NewString(identity.String()), nil
}
