package domain

import (
	"strings"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// Recipient is a public age recipient string: either a plain X25519
// recipient ("age1...") or a plugin-mediated recipient
// ("age1yubikey1...", "age1<plugin-name>1...").
type Recipient string

// recipientMinLength is the shortest a standard X25519 recipient can be:
// "age1" plus 58 bech32 data characters.
const recipientMinLength = 62

// recipientMaxLength allows for plugin-mediated recipients, which embed a
// plugin name before their own payload (e.g. "age1yubikey1..." is 71 chars);
// 128 gives headroom for any plugin name without accepting arbitrary junk.
const recipientMaxLength = 128

// NewRecipient validates that raw looks like a well-formed age recipient:
// the "age1" prefix, an overall length of 62-128 characters, and a payload
// restricted to lowercase letters and digits (the bech32 data charset; a
// plugin's HRP may contain letters outside the strict bech32 alphabet, so
// any lowercase letter is accepted rather than just the bech32 subset). It
// does not attempt to fully validate the bech32 checksum; that is the age
// library's job when the recipient is actually used.
func NewRecipient(raw string) (Recipient, error) {
	if !strings.HasPrefix(raw, "age1") {
		return "", vaulterr.NewValidationError("recipient", "must be an age1... recipient string", vaulterr.ErrInvalidRecipient)
	}
	if len(raw) < recipientMinLength || len(raw) > recipientMaxLength {
		return "", vaulterr.NewValidationError("recipient", "must be 62-128 characters", vaulterr.ErrInvalidRecipient)
	}
	payload := raw[len("age1"):]
	for _, r := range payload {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return "", vaulterr.NewValidationError("recipient", "must contain only lowercase letters and digits after the age1 prefix", vaulterr.ErrInvalidRecipient)
		}
	}
	return Recipient(raw), nil
}

// Raw returns the recipient string as age expects it.
func (r Recipient) Raw() string { return string(r) }

// IsPluginMediated reports whether this recipient names a plugin (e.g. the
// YubiKey plugin) rather than a bare X25519 recipient.
func (r Recipient) IsPluginMediated() bool {
	rest := strings.TrimPrefix(string(r), "age1")
	return strings.Contains(rest, "1") // plugin recipients embed a second "1" separator before the plugin name payload
}

// String truncates to a fixed prefix/suffix: full recipients are public
// keys, but truncating keeps logs from becoming a second enumeration
// channel for a user's recipient set.
func (r Recipient) String() string {
	s := string(r)
	if len(s) <= 16 {
		return s
	}
	return s[:10] + "..." + s[len(s)-4:]
}

// IdentityTag is the plugin-specific identity line emitted by a hardware
// token plugin (e.g. "AGE-PLUGIN-YUBIKEY-..."), used to materialize a
// decrypt-time identity file without ever touching the token's private key
// bytes directly.
type IdentityTag string

// NewIdentityTag validates the AGE-PLUGIN-<NAME>- prefix convention.
func NewIdentityTag(raw string) (IdentityTag, error) {
	if !strings.HasPrefix(raw, "AGE-PLUGIN-") {
		return "", vaulterr.NewValidationError("identity_tag", "must start with AGE-PLUGIN-", vaulterr.ErrInvalidRecipient)
	}
	return IdentityTag(raw), nil
}

func (t IdentityTag) Raw() string { return string(t) }

// String truncates for display, mirroring Recipient.
func (t IdentityTag) String() string {
	s := string(t)
	if len(s) <= 20 {
		return s
	}
	return s[:16] + "..." + s[len(s)-4:]
}
