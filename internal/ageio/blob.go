package ageio

import (
	"bytes"
	"io"

	"filippo.io/age"

	"github.com/barqly/barqly-vault/internal/secret"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// MinPassphraseLength mirrors the component boundary rule from spec section
// 4.G: below this, a passphrase is rejected before it ever reaches the age
// library. internal/secret's richer strength scoring is advisory on top of
// this, not a replacement for it.
const MinPassphraseLength = 12

// ValidatePassphrasePolicy enforces the minimum bar for a passphrase used
// to protect a private key: at least 12 characters, at least one letter,
// at least one digit.
func ValidatePassphrasePolicy(passphrase string) error {
	if len([]rune(passphrase)) < MinPassphraseLength {
		return vaulterr.NewValidationError("passphrase", "must be at least 12 characters", vaulterr.ErrWeakPassphrase)
	}
	var hasLetter, hasDigit bool
	for _, r := range passphrase {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return vaulterr.NewValidationError("passphrase", "must contain at least one letter and one digit", vaulterr.ErrWeakPassphrase)
	}
	return nil
}

// ProtectPrivateKey wraps privateKey (an age identity's textual form) in an
// opaque age-passphrase-encrypted blob: Component G's "Protect" operation.
func ProtectPrivateKey(privateKey, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("protect-key", "", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, vaulterr.NewPersistenceError("protect-key", "", err)
	}
	if _, err := io.WriteString(w, privateKey); err != nil {
		return nil, vaulterr.NewPersistenceError("protect-key", "", err)
	}
	if err := w.Close(); err != nil {
		return nil, vaulterr.NewPersistenceError("protect-key", "", err)
	}
	return buf.Bytes(), nil
}

// UnlockPrivateKey unwraps a blob produced by ProtectPrivateKey: Component
// G's "Unlock" operation. Any failure here — wrong passphrase or a
// corrupted blob — is reported as ErrWrongPassphrase, since a scrypt
// identity that fails to unwrap its only stanza is indistinguishable from
// a wrong passphrase and spec section 4.J is explicit that this path must
// never be reported as corruption.
func UnlockPrivateKey(blob []byte, passphrase string) (*secret.String, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, vaulterr.ErrWrongPassphrase
	}

	r, err := age.Decrypt(bytes.NewReader(blob), identity)
	if err != nil {
		return nil, vaulterr.ErrWrongPassphrase
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, vaulterr.ErrWrongPassphrase
	}
	return secret.NewString(string(data)), nil
}
