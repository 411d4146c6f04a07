package main

import (
	"fmt"
	"os"

	"github.com/barqly/barqly-vault/internal/cli"
	"github.com/barqly/barqly-vault/internal/core"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	core.AppVersion = version

	if !cli.Execute(version) {
		fmt.Fprintf(os.Stderr, "barqlyvault %s\n\n", version)
		fmt.Fprintln(os.Stderr, "Usage: barqlyvault <command> [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  vault      Create, list, and delete vaults")
		fmt.Fprintln(os.Stderr, "  key        Manage passphrase keys, tokens, and recipients")
		fmt.Fprintln(os.Stderr, "  encrypt    Encrypt a vault's selection")
		fmt.Fprintln(os.Stderr, "  decrypt    Decrypt a ciphertext back to its original files")
		fmt.Fprintln(os.Stderr, "  token      List and provision hardware tokens")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run 'barqlyvault <command> --help' for more information.")
		os.Exit(0)
	}
}
