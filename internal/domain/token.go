package domain

import (
	"regexp"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// Serial is a hardware token's device serial number. Display redacts all
// but the last four characters so a terminal transcript or log is not a
// second channel for enumerating which tokens a user owns.
type Serial string

var serialPattern = regexp.MustCompile(`^[0-9]{4,16}$`)

// NewSerial validates a device serial number.
func NewSerial(raw string) (Serial, error) {
	if !serialPattern.MatchString(raw) {
		return "", vaulterr.NewValidationError("serial", "must be 4-16 digits", vaulterr.ErrInvalidRecipient)
	}
	return Serial(raw), nil
}

// Raw returns the underlying serial value, for passing to vendor CLIs.
func (s Serial) Raw() string { return string(s) }

// String redacts all but the trailing four characters.
func (s Serial) String() string {
	return redactTail(string(s), 4)
}

// Pin is a token PIN. It is never displayed, logged, or serialized: String
// always returns a fixed placeholder regardless of the held value.
type Pin struct {
	value string
}

var weakPins = map[string]bool{
	"123456": true, "000000": true, "111111": true, "12345678": true,
	"87654321": true, "11223344": true,
}

// NewPin validates a 6-8 digit PIN and rejects a short list of known-weak
// patterns. The actual decrypt/PTY flow is the real gate against a weak PIN
// (the token itself enforces length); this is a fast client-side check.
func NewPin(raw string) (Pin, error) {
	if len(raw) < 6 || len(raw) > 8 {
		return Pin{}, vaulterr.NewValidationError("pin", "must be 6-8 digits", vaulterr.ErrInvalidPin)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return Pin{}, vaulterr.NewValidationError("pin", "must be numeric", vaulterr.ErrInvalidPin)
		}
	}
	if weakPins[raw] {
		return Pin{}, vaulterr.NewValidationError("pin", "matches a known weak pattern", vaulterr.ErrWeakPin)
	}
	return Pin{value: raw}, nil
}

// Raw returns the PIN digits, for passing to the PTY driver. Callers must
// not log or persist the result.
func (p Pin) Raw() string { return p.value }

// FactoryDefaultPin wraps a known factory-default PIN/PUK (e.g. the PIV
// applet's "123456"/"12345678") without running it through the weak-pattern
// check, since that check exists to stop a user from choosing one of these
// values, not to stop code from recognizing the token's own shipped
// default during provisioning.
func FactoryDefaultPin(raw string) Pin {
	return Pin{value: raw}
}

// String never reveals the PIN.
func (p Pin) String() string { return "Pin{REDACTED}" }

func (p Pin) MarshalJSON() ([]byte, error) {
	return nil, vaulterr.NewValidationError("pin", "refusing to serialize", vaulterr.ErrInvalidPin)
}

// redactTail keeps only the last n characters of s, masking the rest.
func redactTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	masked := make([]byte, len(s)-n)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + s[len(s)-n:]
}
