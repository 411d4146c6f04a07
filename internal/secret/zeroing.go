// Package secret holds in-memory secret material — PINs, passphrases,
// symmetric keys, and decrypted private key bytes — in buffers that are
// zeroed on release and refuse to serialize.
package secret

import (
	"crypto/subtle"
	"fmt"
)

// Zero overwrites b with zeros using a constant-time copy so the compiler
// cannot optimize the write away.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroAll zeros every slice given.
func ZeroAll(slices ...[]byte) {
	for _, s := range slices {
		Zero(s)
	}
}

// Bytes wraps secret byte data with zeroing on Close and a MarshalJSON that
// always fails, so a Bytes value accidentally embedded in a struct cannot
// leak into a JSON-encoded log or response.
type Bytes struct {
	data   []byte
	closed bool
}

// NewBytes copies data into a new Bytes, taking ownership of the copy.
func NewBytes(data []byte) *Bytes {
	if data == nil {
		return &Bytes{}
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &Bytes{data: copied}
}

// Open returns the underlying data, or nil once closed.
func (b *Bytes) Open() []byte {
	if b.closed {
		return nil
	}
	return b.data
}

// Len reports the length of the held data, or 0 once closed.
func (b *Bytes) Len() int {
	if b.closed || b.data == nil {
		return 0
	}
	return len(b.data)
}

// Close zeros the held data. Idempotent.
func (b *Bytes) Close() {
	if b.closed || b.data == nil {
		b.closed = true
		return
	}
	Zero(b.data)
	b.data = nil
	b.closed = true
}

// IsClosed reports whether Close has been called.
func (b *Bytes) IsClosed() bool { return b.closed }

// MarshalJSON always fails. Secret material has no business being encoded.
func (b *Bytes) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("secret: refusing to marshal secret.Bytes")
}

// String never reveals the contents, even under fmt's %v/%s verbs.
func (b *Bytes) String() string {
	return "secret.Bytes{REDACTED}"
}

// String wraps a secret string (a PIN or passphrase) with the same
// zeroing-on-close and non-serializable behavior as Bytes.
type String struct {
	inner *Bytes
}

// NewString copies s into a new String.
func NewString(s string) *String {
	return &String{inner: NewBytes([]byte(s))}
}

// Open returns the plaintext string, or "" once closed.
func (s *String) Open() string {
	b := s.inner.Open()
	if b == nil {
		return ""
	}
	return string(b)
}

// Close zeros the underlying bytes.
func (s *String) Close() { s.inner.Close() }

// IsClosed reports whether Close has been called.
func (s *String) IsClosed() bool { return s.inner.IsClosed() }

func (s *String) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("secret: refusing to marshal secret.String")
}

func (s *String) FormatString() string { return "secret.String{REDACTED}" }

// Context bundles the sensitive material live during a single key or vault
// operation so one Close call releases everything at once, mirroring how a
// short-lived crypto operation should clean up regardless of which branch
// returned.
type Context struct {
	DEK          *Bytes // data encryption key, derived per-archive
	UnwrappedKey *Bytes // decrypted private key bytes, identity-file form
	Passphrase   *String
	Pin          *String
	closed       bool
}

// Close releases every held secret. Safe to call multiple times and safe to
// call on a zero-value Context.
func (c *Context) Close() {
	if c.closed {
		return
	}
	if c.DEK != nil {
		c.DEK.Close()
	}
	if c.UnwrappedKey != nil {
		c.UnwrappedKey.Close()
	}
	if c.Passphrase != nil {
		c.Passphrase.Close()
	}
	if c.Pin != nil {
		c.Pin.Close()
	}
	c.closed = true
}
