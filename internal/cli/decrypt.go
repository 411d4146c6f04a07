package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barqly/barqly-vault/internal/ageio"
	"github.com/barqly/barqly-vault/internal/domain"
)

func init() {
	decryptCmd.SilenceErrors = true
	decryptCmd.SilenceUsage = true
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a ciphertext back to its original files",
	Long: `Decrypt unlocks a vault's ciphertext with either a passphrase-protected
key or a hardware token's PIN, extracts every file, and verifies each one
against the sidecar manifest if present.

Examples:
  barqlyvault decrypt --ciphertext backup.age --output-dir ./restored --key-id key-...
  barqlyvault decrypt --ciphertext backup.age --output-dir ./restored --serial 12345678`,
	RunE: runDecrypt,
}

var (
	decCiphertext string
	decManifest   string
	decOutputDir  string
	decKeyID      string
	decPassphrase string
	decSerial     string
	decPin        string
	decQuiet      bool
)

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVar(&decCiphertext, "ciphertext", "", "Path to the .age ciphertext")
	decryptCmd.Flags().StringVar(&decManifest, "manifest", "", "Path to the sidecar manifest, for post-extraction verification")
	decryptCmd.Flags().StringVar(&decOutputDir, "output-dir", "", "Directory to extract into")
	decryptCmd.Flags().StringVar(&decKeyID, "key-id", "", "Unlock with this passphrase-protected registry key")
	decryptCmd.Flags().StringVar(&decPassphrase, "passphrase", "", "Passphrase for --key-id (omit to be prompted)")
	decryptCmd.Flags().StringVar(&decSerial, "serial", "", "Unlock with this hardware token's serial")
	decryptCmd.Flags().StringVar(&decPin, "pin", "", "PIN for --serial (omit to be prompted)")
	decryptCmd.Flags().BoolVarP(&decQuiet, "quiet", "q", false, "Suppress progress output")
	_ = decryptCmd.MarkFlagRequired("ciphertext")
	_ = decryptCmd.MarkFlagRequired("output-dir")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	var unlock ageio.UnlockMethod
	switch {
	case decKeyID != "":
		passphrase := decPassphrase
		if passphrase == "" {
			var err error
			passphrase, err = ReadPassphraseInteractive(false)
			if err != nil {
				printErr(err)
				return err
			}
		}
		unlock = ageio.PassphraseUnlock{KeyId: domain.KeyId(decKeyID), Passphrase: passphrase}
	case decSerial != "":
		pin := decPin
		if pin == "" {
			var err error
			pin, err = ReadPINInteractive("Token PIN: ")
			if err != nil {
				printErr(err)
				return err
			}
		}
		p, err := domain.NewPin(pin)
		if err != nil {
			printErr(err)
			return err
		}
		serial, err := domain.NewSerial(decSerial)
		if err != nil {
			printErr(err)
			return err
		}
		unlock = ageio.TokenUnlock{Serial: serial, Pin: p}
	default:
		err := fmt.Errorf("one of --key-id or --serial is required")
		printErr(err)
		return err
	}

	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	reporter := NewReporter(decQuiet)
	globalReporter = reporter

	result, err := c.Decrypt(context.Background(), ageio.DecryptRequest{
		CiphertextPath:      decCiphertext,
		OutputDir:           decOutputDir,
		SidecarManifestPath: decManifest,
		Unlock:              unlock,
	}, reporter)
	reporter.Finish()
	if err != nil {
		printErr(err)
		return err
	}

	if !decQuiet {
		fmt.Fprintln(os.Stderr)
	}
	reporter.PrintSuccess("Extracted %d file(s) to %s", len(result.ExtractedFiles), decOutputDir)
	for _, v := range result.VerifyResults {
		if !v.Matched {
			fmt.Fprintf(os.Stderr, "warning: %s did not verify against the manifest\n", v.Path)
		}
	}
	return nil
}
