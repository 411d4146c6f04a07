package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barqly/barqly-vault/internal/core"
	"github.com/barqly/barqly-vault/internal/domain"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Add, import, export, and manage a vault's keys",
}

func init() {
	rootCmd.AddCommand(keyCmd)
}

// --- add-passphrase ---

var (
	addPassVaultID     string
	addPassLabel       string
	addPassPassphrase  string
	addPassStdin       bool
)

var keyAddPassphraseCmd = &cobra.Command{
	Use:   "add-passphrase",
	Short: "Create a passphrase-protected key and attach it to a vault",
	Args:  cobra.NoArgs,
	RunE:  runKeyAddPassphrase,
}

func init() {
	keyCmd.AddCommand(keyAddPassphraseCmd)
	keyAddPassphraseCmd.Flags().StringVar(&addPassVaultID, "vault-id", "", "Vault to attach the new key to")
	keyAddPassphraseCmd.Flags().StringVar(&addPassLabel, "label", "", "Display label for the new key")
	keyAddPassphraseCmd.Flags().StringVar(&addPassPassphrase, "passphrase", "", "Passphrase (omit to be prompted interactively)")
	keyAddPassphraseCmd.Flags().BoolVarP(&addPassStdin, "stdin", "P", false, "Read the passphrase from stdin")
	_ = keyAddPassphraseCmd.MarkFlagRequired("vault-id")
	_ = keyAddPassphraseCmd.MarkFlagRequired("label")
}

func runKeyAddPassphrase(cmd *cobra.Command, args []string) error {
	passphrase := addPassPassphrase
	if passphrase == "" {
		var err error
		if addPassStdin {
			passphrase, err = ReadPassphraseFromStdin()
		} else {
			passphrase, err = ReadPassphraseInteractive(true)
		}
		if err != nil {
			printErr(err)
			return err
		}
	}

	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	ref, err := c.AddPassphraseKeyToVault(domain.VaultId(addPassVaultID), addPassLabel, passphrase)
	if err != nil {
		printErr(err)
		return err
	}

	fmt.Printf("Added passphrase key %q (id %s, recipient %s)\n", ref.Label, ref.KeyId, ref.PublicRecipient)
	return nil
}

// --- add-token ---

var (
	addTokVaultID string
	addTokSerial  string
	addTokPin     string
	addTokLabel   string
)

var keyAddTokenCmd = &cobra.Command{
	Use:   "add-token",
	Short: "Attach a hardware token's identity to a vault",
	Args:  cobra.NoArgs,
	RunE:  runKeyAddToken,
}

func init() {
	keyCmd.AddCommand(keyAddTokenCmd)
	keyAddTokenCmd.Flags().StringVar(&addTokVaultID, "vault-id", "", "Vault to attach the token identity to")
	keyAddTokenCmd.Flags().StringVar(&addTokSerial, "serial", "", "Token device serial number")
	keyAddTokenCmd.Flags().StringVar(&addTokPin, "pin", "", "Token PIN (omit to be prompted)")
	keyAddTokenCmd.Flags().StringVar(&addTokLabel, "label", "", "Display label for the new key")
	_ = keyAddTokenCmd.MarkFlagRequired("vault-id")
	_ = keyAddTokenCmd.MarkFlagRequired("serial")
	_ = keyAddTokenCmd.MarkFlagRequired("label")
}

func runKeyAddToken(cmd *cobra.Command, args []string) error {
	pin := addTokPin
	if pin == "" {
		var err error
		pin, err = ReadPINInteractive("Token PIN: ")
		if err != nil {
			printErr(err)
			return err
		}
	}

	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	ref, err := c.AddTokenKeyToVault(context.Background(), domain.VaultId(addTokVaultID), addTokSerial, pin, addTokLabel)
	if err != nil {
		printErr(err)
		return err
	}

	fmt.Printf("Added token key %q (id %s, recipient %s)\n", ref.Label, ref.KeyId, ref.PublicRecipient)
	return nil
}

// --- add-recipient ---

var (
	addRecipLabel string
	addRecipValue string
)

var keyAddRecipientCmd = &cobra.Command{
	Use:   "add-recipient",
	Short: "Register a third party's public recipient (no private key material)",
	Args:  cobra.NoArgs,
	RunE:  runKeyAddRecipient,
}

func init() {
	keyCmd.AddCommand(keyAddRecipientCmd)
	keyAddRecipientCmd.Flags().StringVar(&addRecipLabel, "label", "", "Display label for this recipient")
	keyAddRecipientCmd.Flags().StringVar(&addRecipValue, "recipient", "", "The bare age1... public recipient string")
	_ = keyAddRecipientCmd.MarkFlagRequired("label")
	_ = keyAddRecipientCmd.MarkFlagRequired("recipient")
}

func runKeyAddRecipient(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	ref, err := c.AddRecipient(addRecipLabel, addRecipValue)
	if err != nil {
		printErr(err)
		return err
	}

	fmt.Printf("Registered recipient %q (id %s). Attach it to a vault with: barqlyvault key attach --vault-id <id> --key-id %s\n", ref.Label, ref.KeyId, ref.KeyId)
	return nil
}

// --- attach / detach ---

var (
	attachVaultID string
	attachKeyID   string
)

var keyAttachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach an already-registered key to a vault",
	Args:  cobra.NoArgs,
	RunE:  runKeyAttach,
}

var keyDetachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Detach a key from a vault's intended recipient list",
	Args:  cobra.NoArgs,
	RunE:  runKeyDetach,
}

func init() {
	keyCmd.AddCommand(keyAttachCmd)
	keyCmd.AddCommand(keyDetachCmd)
	for _, c := range []*cobra.Command{keyAttachCmd, keyDetachCmd} {
		c.Flags().StringVar(&attachVaultID, "vault-id", "", "Vault id")
		c.Flags().StringVar(&attachKeyID, "key-id", "", "Key id")
		_ = c.MarkFlagRequired("vault-id")
		_ = c.MarkFlagRequired("key-id")
	}
}

func runKeyAttach(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}
	if err := c.AttachKeyToVault(domain.VaultId(attachVaultID), domain.KeyId(attachKeyID)); err != nil {
		printErr(err)
		return err
	}
	fmt.Println("Attached.")
	return nil
}

func runKeyDetach(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}
	if err := c.DetachKeyFromVault(domain.VaultId(attachVaultID), domain.KeyId(attachKeyID)); err != nil {
		printErr(err)
		return err
	}
	fmt.Println("Detached.")
	return nil
}

// --- import / export ---

var (
	importPath          string
	importPassphrase    string
	importHasPassphrase bool
	importLabel         string
	importVaultID       string
	importValidateOnly  bool
)

var keyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an exported key blob or a bare public recipient",
	Args:  cobra.NoArgs,
	RunE:  runKeyImport,
}

func init() {
	keyCmd.AddCommand(keyImportCmd)
	keyImportCmd.Flags().StringVar(&importPath, "path", "", "Path to the file to import")
	keyImportCmd.Flags().StringVar(&importPassphrase, "passphrase", "", "Passphrase proving possession of an exported blob")
	keyImportCmd.Flags().BoolVar(&importHasPassphrase, "encrypted", false, "Treat --path as a passphrase-protected blob (prompts if --passphrase is omitted)")
	keyImportCmd.Flags().StringVar(&importLabel, "label", "", "Override the default label derived from the filename")
	keyImportCmd.Flags().StringVar(&importVaultID, "vault-id", "", "Attach the imported key to this vault")
	keyImportCmd.Flags().BoolVar(&importValidateOnly, "validate-only", false, "Validate the file without registering anything")
	_ = keyImportCmd.MarkFlagRequired("path")
}

func runKeyImport(cmd *cobra.Command, args []string) error {
	var passphrase *string
	if importHasPassphrase {
		p := importPassphrase
		if p == "" {
			var err error
			p, err = ReadPassphraseInteractive(false)
			if err != nil {
				printErr(err)
				return err
			}
		}
		passphrase = &p
	}

	var label *string
	if importLabel != "" {
		label = &importLabel
	}

	var vaultID *domain.VaultId
	if importVaultID != "" {
		id := domain.VaultId(importVaultID)
		vaultID = &id
	}

	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	result, err := c.ImportKeyFile(importPath, passphrase, label, vaultID, importValidateOnly)
	if err != nil {
		printErr(err)
		return err
	}

	if importValidateOnly {
		fmt.Printf("Valid: recipient %s\n", result.PublicRecipient)
		return nil
	}
	fmt.Printf("Imported key %q (id %s, recipient %s)\n", result.Label, result.KeyId, result.PublicRecipient)
	return nil
}

var (
	exportKeyID string
	exportOut   string
)

var keyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a passphrase key's encrypted blob to a file",
	Args:  cobra.NoArgs,
	RunE:  runKeyExport,
}

func init() {
	keyCmd.AddCommand(keyExportCmd)
	keyExportCmd.Flags().StringVar(&exportKeyID, "key-id", "", "Key to export")
	keyExportCmd.Flags().StringVar(&exportOut, "out", "", "Destination path")
	_ = keyExportCmd.MarkFlagRequired("key-id")
	_ = keyExportCmd.MarkFlagRequired("out")
}

func runKeyExport(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}
	if err := c.ExportKey(domain.KeyId(exportKeyID), exportOut); err != nil {
		printErr(err)
		return err
	}
	fmt.Printf("Exported key %s to %s\n", exportKeyID, exportOut)
	return nil
}

// --- lifecycle: deactivate / restore / delete / rename ---

var lifecycleKeyID, lifecycleReason, lifecycleNewLabel string

func newLifecycleCmd(use, short string, run func(string, string) error) *cobra.Command {
	c := &cobra.Command{Use: use, Short: short, Args: cobra.NoArgs}
	c.Flags().StringVar(&lifecycleKeyID, "key-id", "", "Key id")
	_ = c.MarkFlagRequired("key-id")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		if err := run(lifecycleKeyID, lifecycleReason); err != nil {
			printErr(err)
			return err
		}
		return nil
	}
	return c
}

func init() {
	deactivate := newLifecycleCmd("deactivate", "Deactivate a key (it stays attached to its vaults until detached)", func(id, reason string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		if err := c.DeactivateKey(domain.KeyId(id), reason); err != nil {
			return err
		}
		fmt.Println("Deactivated.")
		return nil
	})
	deactivate.Flags().StringVar(&lifecycleReason, "reason", "", "Free-text reason recorded in the key's status history")
	keyCmd.AddCommand(deactivate)

	restore := newLifecycleCmd("restore", "Restore a deactivated key back to Active", func(id, _ string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		if err := c.RestoreKey(domain.KeyId(id)); err != nil {
			return err
		}
		fmt.Println("Restored.")
		return nil
	})
	keyCmd.AddCommand(restore)

	del := newLifecycleCmd("delete", "Destroy a key permanently (must be deactivated first)", func(id, reason string) error {
		c, err := openCore()
		if err != nil {
			return err
		}
		if err := c.DeleteKey(domain.KeyId(id), reason); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	})
	del.Flags().StringVar(&lifecycleReason, "reason", "", "Free-text reason recorded in the key's status history")
	keyCmd.AddCommand(del)

	rename := &cobra.Command{
		Use:   "rename",
		Short: "Rename a key (only while it is not Active)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore()
			if err != nil {
				printErr(err)
				return err
			}
			if err := c.UpdateGlobalKeyLabel(domain.KeyId(lifecycleKeyID), lifecycleNewLabel); err != nil {
				printErr(err)
				return err
			}
			fmt.Println("Renamed.")
			return nil
		},
	}
	rename.Flags().StringVar(&lifecycleKeyID, "key-id", "", "Key id")
	rename.Flags().StringVar(&lifecycleNewLabel, "label", "", "New display label")
	_ = rename.MarkFlagRequired("key-id")
	_ = rename.MarkFlagRequired("label")
	keyCmd.AddCommand(rename)
}

// --- check-passphrase ---

var checkPassphraseValue string

var keyCheckPassphraseCmd = &cobra.Command{
	Use:   "check-passphrase",
	Short: "Score a candidate passphrase without creating a key",
	Args:  cobra.NoArgs,
	RunE:  runKeyCheckPassphrase,
}

func init() {
	keyCmd.AddCommand(keyCheckPassphraseCmd)
	keyCheckPassphraseCmd.Flags().StringVar(&checkPassphraseValue, "passphrase", "", "Passphrase to score (omit to be prompted)")
}

func runKeyCheckPassphrase(cmd *cobra.Command, args []string) error {
	passphrase := checkPassphraseValue
	if passphrase == "" {
		var err error
		passphrase, err = ReadPassphraseInteractive(false)
		if err != nil {
			printErr(err)
			return err
		}
	}

	result := core.ValidatePassphraseStrength(passphrase)
	fmt.Printf("valid=%v strength=%s score=%d\n", result.Valid, result.Strength, result.Score)
	for _, f := range result.Feedback {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}
