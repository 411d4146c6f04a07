package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barqly/barqly-vault/internal/ageio"
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/pathio"
)

func TestReporter(t *testing.T) {
	t.Run("NewReporter", func(t *testing.T) {
		r := NewReporter(false)
		require.NotNil(t, r)
		assert.False(t, r.quiet)

		r = NewReporter(true)
		assert.True(t, r.quiet)
	})

	t.Run("SetStatus", func(t *testing.T) {
		r := NewReporter(false)
		r.SetStatus("test status")
		assert.Equal(t, "test status", r.status)
	})

	t.Run("SetProgress", func(t *testing.T) {
		r := NewReporter(false)
		r.SetProgress(0.5, "50%")
		assert.Equal(t, float32(0.5), r.progress)
		assert.Equal(t, "50%", r.info)
	})

	t.Run("Cancel", func(t *testing.T) {
		r := NewReporter(false)
		assert.False(t, r.IsCancelled())
		r.Cancel()
		assert.True(t, r.IsCancelled())
	})

	t.Run("SetCanCancel is a no-op that never panics", func(t *testing.T) {
		r := NewReporter(false)
		assert.NotPanics(t, func() { r.SetCanCancel(true) })
	})
}

// runCLI sets rootCmd's args and executes it directly, bypassing Execute's
// os.Args-based gate, which is irrelevant once we already know we want CLI
// mode.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// withIsolatedHome points every app-private path under a fresh temp dir for
// the duration of one test, the same isolation internal/core's own tests use.
func withIsolatedHome(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
}

func TestVaultCreateListDelete(t *testing.T) {
	withIsolatedHome(t)

	require.NoError(t, runCLI(t, "vault", "create", "My Vault"))

	c, err := openCore()
	require.NoError(t, err)
	vaults, err := c.ListVaults()
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, "My Vault", vaults[0].Label)

	require.NoError(t, runCLI(t, "vault", "list"))

	require.NoError(t, runCLI(t, "vault", "delete", string(vaults[0].VaultId)))

	// Each CLI command opens its own Core; reopen to see what it persisted.
	c, err = openCore()
	require.NoError(t, err)
	vaults, err = c.ListVaults()
	require.NoError(t, err)
	assert.Empty(t, vaults)
}

func TestAddPassphraseKeyThroughCLI(t *testing.T) {
	withIsolatedHome(t)

	require.NoError(t, runCLI(t, "vault", "create", "KeyHolder"))

	c, err := openCore()
	require.NoError(t, err)
	vaults, err := c.ListVaults()
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	vaultID := string(vaults[0].VaultId)

	require.NoError(t, runCLI(t, "key", "add-passphrase",
		"--vault-id", vaultID,
		"--label", "K1",
		"--passphrase", "CorrectHorseBattery9!",
	))

	c, err = openCore()
	require.NoError(t, err)
	record, err := c.Vaults.Get(vaults[0].VaultId)
	require.NoError(t, err)
	require.Len(t, record.KeyIds, 1)

	entry, err := c.Registry.Get(record.KeyIds[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Label("K1"), entry.Label)
}

func TestEncryptDecryptRoundTripThroughCLI(t *testing.T) {
	withIsolatedHome(t)

	require.NoError(t, runCLI(t, "vault", "create", "RoundTrip"))

	c, err := openCore()
	require.NoError(t, err)
	vaults, err := c.ListVaults()
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	vaultID := vaults[0].VaultId

	require.NoError(t, runCLI(t, "key", "add-passphrase",
		"--vault-id", string(vaultID),
		"--label", "K1",
		"--passphrase", "CorrectHorseBattery9!",
	))

	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "hello.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello\n"), 0600))

	require.NoError(t, runCLI(t, "encrypt",
		"--vault-id", string(vaultID),
		"--file", filePath,
		"--quiet",
	))

	c, err = openCore()
	require.NoError(t, err)
	record, err := c.Vaults.Get(vaultID)
	require.NoError(t, err)
	require.Equal(t, 1, record.EncryptionRevision)
	require.Len(t, record.KeyIds, 1)

	vaultsDir, err := pathio.VaultsDir()
	require.NoError(t, err)
	ciphertextPath := filepath.Join(vaultsDir, record.SanitizedName+".age")
	_, err = os.Stat(ciphertextPath)
	require.NoError(t, err, "encrypt should have written a ciphertext under VaultsDir")

	outDir := t.TempDir()
	result, err := c.Decrypt(context.Background(), ageio.DecryptRequest{
		CiphertextPath: ciphertextPath,
		OutputDir:      outDir,
		Unlock:         ageio.PassphraseUnlock{KeyId: record.KeyIds[0], Passphrase: "CorrectHorseBattery9!"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.ExtractedFiles, 1)

	got, err := os.ReadFile(filepath.Join(outDir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}
