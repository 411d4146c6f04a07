package cli

import (
	"fmt"
	"os"

	"github.com/barqly/barqly-vault/internal/core"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// openCore runs Component K's bootstrap sequence and wires Component L.
// The host name seeds a fresh device identity's label the first time this
// installation runs; it is never used again once device.json exists.
func openCore() (*core.Core, error) {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "barqly-vault"
	}
	return core.Open(hostname)
}

// printErr formats err as the CLI-facing boundary translates every
// internal error: classified into an OperationError with its machine
// hint surfaced alongside the message.
func printErr(err error) {
	opErr := vaulterr.Wrap(err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", opErr.Message)
	if opErr.RecoveryHint != "" {
		fmt.Fprintf(os.Stderr, "  hint: %s\n", opErr.RecoveryHint)
	}
}
