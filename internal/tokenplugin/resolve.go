// Package tokenplugin locates and parses output from the two vendor
// binaries a hardware token depends on: a management CLI (device listing,
// PIN/PUK/management-key changes) and an age-plugin CLI (identity
// generation, identity lookup). It owns binary resolution and output
// parsing only; invocation over a PTY is internal/ptydriver's job.
package tokenplugin

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/barqly/barqly-vault/internal/vaulterr"
)

const (
	// ManagementCLIName is the vendor CLI for device/PIV administration.
	ManagementCLIName = "ykman"
	// PluginCLIName is the age plugin CLI for identity generation and lookup.
	PluginCLIName = "age-plugin-yubikey"

	resourcesSubdir = "resources"
)

// ResolveBinary locates a vendor binary by name, trying, in order: the
// application's bundled resources directory, the directory the running
// executable lives in, then the user's PATH (a development fallback for
// when the binary is installed system-wide rather than bundled).
func ResolveBinary(name string) (string, error) {
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Dir(exe)

		candidate := filepath.Join(dir, resourcesSubdir, binaryFileName(name))
		if fileExists(candidate) {
			return candidate, nil
		}

		candidate = filepath.Join(dir, binaryFileName(name))
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", vaulterr.NewTokenError("resolve-binary", "", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureOnPath prepends binaryPath's directory to the process's PATH if it
// is not already present, so library code that locates a plugin by
// exec.LookPath-ing its conventional name (filippo.io/age/plugin's
// NewIdentity/NewRecipient) finds our resolved, possibly app-bundled,
// binary instead of failing when nothing is installed system-wide.
func EnsureOnPath(binaryPath string) error {
	dir := filepath.Dir(binaryPath)
	current := os.Getenv("PATH")
	for _, p := range filepath.SplitList(current) {
		if p == dir {
			return nil
		}
	}
	return os.Setenv("PATH", dir+string(os.PathListSeparator)+current)
}
