package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/barqly/barqly-vault/internal/core"
	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/manifest"
	"github.com/barqly/barqly-vault/internal/util"
)

func init() {
	encryptCmd.SilenceErrors = true
	encryptCmd.SilenceUsage = true
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a vault's selection to every attached recipient",
	Long: `Encrypt stages the given files or folder, archives the selection,
and encrypts it to every key currently attached to the vault, writing a
plaintext manifest alongside the ciphertext.

Examples:
  barqlyvault encrypt --vault-id vault-... --file report.pdf --file notes.txt
  barqlyvault encrypt --vault-id vault-... --folder ./backups`,
	RunE: runEncrypt,
}

var (
	encVaultID  string
	encFiles    []string
	encFolder   string
	encBasePath string
	encQuiet    bool
)

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.Flags().StringVar(&encVaultID, "vault-id", "", "Vault to encrypt")
	encryptCmd.Flags().StringArrayVar(&encFiles, "file", nil, "A file to include (repeatable)")
	encryptCmd.Flags().StringVar(&encFolder, "folder", "", "A folder to include, walked recursively")
	encryptCmd.Flags().StringVar(&encBasePath, "base-path", "", "Base path recorded in the manifest for relative display")
	encryptCmd.Flags().BoolVarP(&encQuiet, "quiet", "q", false, "Suppress progress output")
	_ = encryptCmd.MarkFlagRequired("vault-id")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	if len(encFiles) == 0 && encFolder == "" {
		return fmt.Errorf("at least one of --file or --folder is required")
	}

	selectionType := manifest.SelectionFiles
	if encFolder != "" {
		selectionType = manifest.SelectionFolder
	}

	var basePath *string
	if encBasePath != "" {
		abs, err := filepath.Abs(encBasePath)
		if err != nil {
			return fmt.Errorf("resolving --base-path: %w", err)
		}
		basePath = &abs
	}

	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	reporter := NewReporter(encQuiet)
	globalReporter = reporter

	selection := core.EncryptSelection{
		SelectionType: selectionType,
		Files:         encFiles,
		Folder:        encFolder,
		BasePath:      basePath,
	}

	result, err := c.Encrypt(domain.VaultId(encVaultID), selection, reporter)
	reporter.Finish()
	if err != nil {
		printErr(err)
		return err
	}

	if !encQuiet {
		fmt.Fprintln(os.Stderr)
	}
	reporter.PrintSuccess("Encrypted %s to %s (manifest %s, revision %d)",
		util.Sizeify(result.Manifest.TotalSize), result.CiphertextPath, result.ManifestPath, result.Manifest.EncryptionRevision)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: key %s: %s\n", w.KeyId, w.Reason)
	}
	return nil
}
