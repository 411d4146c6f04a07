// Package pathio provides platform-specific directory resolution and
// atomic, permission-restricted file I/O for every durable artifact the
// vault manager writes (registry, manifests, device identity, key blobs).
package pathio

import (
	"os"
	"path/filepath"
)

const appDirName = "Barqly-Vault"

// AppRoot returns the app-private root directory for this installation,
// creating it with owner-only permissions if absent.
func AppRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	root := filepath.Join(base, appDirName)
	if err := os.MkdirAll(root, 0700); err != nil {
		return "", err
	}
	return root, nil
}

// KeysDir returns <app-root>/keys, the directory holding encrypted
// passphrase key blobs.
func KeysDir() (string, error) {
	return appSubdir("keys")
}

// LogsDir returns <app-root>/logs.
func LogsDir() (string, error) {
	return appSubdir("logs")
}

// ManifestRoot returns <app-root>/vaults-manifest, the app-private mirror of
// the user-visible vaults directory.
func ManifestRoot() (string, error) {
	return appSubdir("vaults-manifest")
}

func appSubdir(name string) (string, error) {
	root, err := AppRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// RegistryPath returns the path to the key registry document.
func RegistryPath() (string, error) {
	root, err := AppRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "barqly-vault-key-registry.json"), nil
}

// DeviceIdentityPath returns the path to the device identity document.
func DeviceIdentityPath() (string, error) {
	root, err := AppRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "device.json"), nil
}

// VaultIndexPath returns the path to the app-private vault index: the
// record of each vault's display label, selection, and intended key id
// list that exists independently of whether the vault has been encrypted
// yet (a fresh vault with keys attached but never encrypted has no
// manifest at all).
func VaultIndexPath() (string, error) {
	root, err := AppRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "barqly-vault-index.json"), nil
}

// VaultsDir returns the user-visible directory where vault ciphertext and
// sidecar manifests live, typically under the user's documents folder.
func VaultsDir() (string, error) {
	return userVisibleSubdir("Barqly-Vaults")
}

// RecoveryDir returns the user-visible directory decrypted archives are
// extracted into.
func RecoveryDir() (string, error) {
	return userVisibleSubdir("Barqly-Recovery")
}

func userVisibleSubdir(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	docs := filepath.Join(home, "Documents")
	if info, err := os.Stat(docs); err != nil || !info.IsDir() {
		docs = home
	}
	dir := filepath.Join(docs, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
