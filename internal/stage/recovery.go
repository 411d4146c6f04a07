package stage

import (
	"fmt"
	"strings"
)

// RecoveryTextParams is the data RECOVERY.txt is rendered from.
type RecoveryTextParams struct {
	VaultLabel    string
	CreatedAt     string
	FileCount     int
	PassphraseKey bool
	TokenKeys     int
}

// BuildRecoveryText renders the plain-prose RECOVERY.txt placed at the
// staging root, describing what the archive contains and how to open it.
func BuildRecoveryText(p RecoveryTextParams) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Barqly Vault recovery archive: %s\n", p.VaultLabel)
	fmt.Fprintf(&b, "Created: %s\n", p.CreatedAt)
	fmt.Fprintf(&b, "Files: %d\n\n", p.FileCount)

	b.WriteString("This archive was produced by Barqly Vault. It contains your encrypted\n")
	b.WriteString("files, a manifest describing them, and any passphrase-protected key\n")
	b.WriteString("blobs needed to recover access on another machine.\n\n")

	b.WriteString("To decrypt this vault you need one of the following:\n")
	if p.PassphraseKey {
		b.WriteString(" - The passphrase for one of the included key blobs.\n")
	}
	if p.TokenKeys > 0 {
		fmt.Fprintf(&b, " - One of %d registered hardware tokens and its PIN.\n", p.TokenKeys)
	}
	b.WriteString("\nOpen this file with Barqly Vault's decrypt operation, pointing it at\n")
	b.WriteString("the accompanying .age ciphertext file.\n")

	return []byte(b.String())
}
