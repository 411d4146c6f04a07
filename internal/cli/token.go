package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "List attached hardware tokens and provision new ones",
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "Report every attached token's provisioning state",
	Args:  cobra.NoArgs,
	RunE:  runTokenList,
}

func init() {
	tokenCmd.AddCommand(tokenListCmd)
}

func runTokenList(cmd *cobra.Command, args []string) error {
	c, err := openCore()
	if err != nil {
		printErr(err)
		return err
	}

	tokens, err := c.ListTokens(context.Background())
	if err != nil {
		printErr(err)
		return err
	}

	if len(tokens) == 0 {
		fmt.Println("No tokens attached and none registered.")
		return nil
	}
	for _, t := range tokens {
		fmt.Printf("%s\t%s\t%s\n", t.Serial, t.Model, t.State)
	}
	return nil
}

var (
	tokenInitSerial string
	tokenInitPin    string
	tokenInitLabel  string
)

var tokenInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Provision a fresh token and generate its first identity",
	Long: `Init changes a token's PIN, PUK, and management key away from their
PIV factory defaults, then generates its first age identity slot. A
recovery code is printed exactly once: only its hash is kept, so write it
down now.`,
	Args: cobra.NoArgs,
	RunE: runTokenInit,
}

func init() {
	tokenCmd.AddCommand(tokenInitCmd)
	tokenInitCmd.Flags().StringVar(&tokenInitSerial, "serial", "", "Token device serial number")
	tokenInitCmd.Flags().StringVar(&tokenInitPin, "pin", "", "New PIN to set (omit to be prompted)")
	tokenInitCmd.Flags().StringVar(&tokenInitLabel, "label", "", "Display label for the first identity")
	_ = tokenInitCmd.MarkFlagRequired("serial")
	_ = tokenInitCmd.MarkFlagRequired("label")
}

func runTokenInit(cmd *cobra.Command, args []string) error {
	pin := tokenInitPin
	if pin == "" {
		var err error
		pin, err = ReadPINInteractive("New token PIN: ")
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

	result, err := c.InitializeToken(context.Background(), tokenInitSerial, pin, tokenInitLabel)
	if err != nil {
		printErr(err)
		return err
	}

	fmt.Printf("Initialized token %s, slot %d, recipient %s\n", result.Serial, result.Slot, result.Recipient)
	fmt.Printf("Recovery code (shown once, write it down): %s\n", result.RecoveryCode)
	return nil
}
