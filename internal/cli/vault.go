package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barqly/barqly-vault/internal/domain"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Create, list, and delete vaults",
}

func init() {
	rootCmd.AddCommand(vaultCmd)
}

var (
	vaultCreateDescription string
)

var vaultCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new, as-yet-unencrypted vault",
	Args:  cobra.ExactArgs(1),
	RunE:  runVaultCreate,
}

func init() {
	vaultCmd.AddCommand(vaultCreateCmd)
	vaultCreateCmd.Flags().StringVar(&vaultCreateDescription, "description", "", "Optional free-text description")
}

func runVaultCreate(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	var description *string
	if vaultCreateDescription != "" {
		description = &vaultCreateDescription
	}

	summary, err := c.CreateVault(args[0], description)
	if err != nil {
		printErr(err)
		return err
	}

	fmt.Printf("Created vault %q (id %s)\n", summary.Label, summary.VaultId)
	return nil
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known vault",
	Args:  cobra.NoArgs,
	RunE:  runVaultList,
}

func init() {
	vaultCmd.AddCommand(vaultListCmd)
}

func runVaultList(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	vaults, err := c.ListVaults()
	if err != nil {
		printErr(err)
		return err
	}

	if len(vaults) == 0 {
		fmt.Println("No vaults yet. Create one with: barqlyvault vault create <name>")
		return nil
	}
	for _, v := range vaults {
		fmt.Printf("%s\t%s\tkeys=%d\trevision=%d\n", v.VaultId, v.Label, len(v.KeyIds), v.EncryptionRevision)
	}
	return nil
}

var (
	vaultDeleteForce bool
)

var vaultDeleteCmd = &cobra.Command{
	Use:   "delete <vault-id>",
	Short: "Remove a vault's local record",
	Args:  cobra.ExactArgs(1),
	RunE:  runVaultDelete,
}

func init() {
	vaultCmd.AddCommand(vaultDeleteCmd)
	vaultDeleteCmd.Flags().BoolVar(&vaultDeleteForce, "force", false, "Delete even if the vault has already been encrypted")
}

func runVaultDelete(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	if err := c.DeleteVault(domain.VaultId(args[0]), vaultDeleteForce); err != nil {
		printErr(err)
		return err
	}

	fmt.Fprintf(os.Stdout, "Deleted vault %s\n", args[0])
	return nil
}
