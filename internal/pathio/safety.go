package pathio

import (
	"strings"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// vaultNameForbidden are characters disallowed in a sanitized vault name,
// matching what every major filesystem this tool targets forbids.
const vaultNameForbidden = "/\\:*?\"<>|"

// ValidatePathSafe rejects a relative path component that could escape a
// staging or extraction root: parent-directory traversal, an embedded NUL,
// or a leading path separator where a relative name is expected.
func ValidatePathSafe(name string) error {
	if name == "" {
		return vaulterr.NewValidationError("path", "must not be empty", vaulterr.ErrPathUnsafe)
	}
	if strings.Contains(name, "..") {
		return vaulterr.NewValidationError("path", "must not contain '..'", vaulterr.ErrPathUnsafe)
	}
	if strings.ContainsRune(name, 0) {
		return vaulterr.NewValidationError("path", "must not contain a NUL byte", vaulterr.ErrPathUnsafe)
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return vaulterr.NewValidationError("path", "must be relative", vaulterr.ErrPathUnsafe)
	}
	return nil
}

// ValidateVaultName rejects a vault name containing characters unsafe for a
// filesystem entry.
func ValidateVaultName(name string) error {
	if err := ValidatePathSafe(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, vaultNameForbidden) {
		return vaulterr.NewValidationError("name", "must not contain "+vaultNameForbidden, vaulterr.ErrPathUnsafe)
	}
	return nil
}

// SanitizeName converts a free-form display label into a filesystem-safe
// name: forbidden characters are replaced with '-', and the result is
// trimmed of leading/trailing dots and spaces so it can't be misread as a
// hidden file or collide with '.'/'..' on extraction.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(vaultNameForbidden, r) || r < 0x20 {
			b.WriteRune('-')
			continue
		}
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), ". ")
	if s == "" {
		s = "vault"
	}
	return s
}
