package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by main.go.
var Version = "dev"

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "barqlyvault",
	Short: "A local-first vault manager for age-encrypted backups",
	Long: `barqlyvault manages vaults of age-encrypted files: it stages and
archives a file or folder selection, encrypts it to one or more recipients
(a passphrase-protected key, a hardware security token, or a third party's
public key), and writes a plaintext manifest alongside the ciphertext so a
later decrypt can verify every extracted file.

This binary is the reference driver for the operation contract a GUI or IPC
shell would otherwise consume: every vault/key/token/encrypt/decrypt
operation it can perform is reachable from a subcommand here.`,
	Version: Version,
}

// globalReporter lets the interrupt handler below cancel whatever operation
// is in flight.
var globalReporter *Reporter

// Execute runs the CLI application. Returns true if CLI mode was
// activated (a recognized subcommand or help/version flag was the first
// argument); false if the caller should fall back to some other entry
// point.
func Execute(version string) bool {
	Version = version
	rootCmd.Version = version

	if len(os.Args) < 2 {
		return false
	}

	switch os.Args[1] {
	case "vault", "key", "encrypt", "decrypt", "token",
		"help", "--help", "-h", "version", "--version", "-v":
	default:
		return false
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
			fmt.Fprintln(os.Stderr, "\nCancelling operation...")
		} else {
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	return true
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
