package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

var (
	ErrPasswordMismatch = errors.New("passphrases do not match")
	ErrPasswordEmpty    = errors.New("passphrase cannot be empty")
)

// isTerminal returns true if stdin is a terminal (not piped/redirected).
func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// readHiddenLine reads one line from stdin without echoing it to the
// terminal. Falls back to a plain buffered read if stdin is not a
// terminal (piped input, e.g. in a script or test).
func readHiddenLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !isTerminal() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	line, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(line), nil
}

// ReadPassphraseInteractive prompts for a passphrase. If confirm is true,
// it is asked for twice and must match (for creating a new key).
func ReadPassphraseInteractive(confirm bool) (string, error) {
	passphrase, err := readHiddenLine("Passphrase: ")
	if err != nil {
		return "", err
	}
	if passphrase == "" {
		return "", ErrPasswordEmpty
	}
	if confirm {
		again, err := readHiddenLine("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if passphrase != again {
			return "", ErrPasswordMismatch
		}
	}
	return passphrase, nil
}

// ReadPINInteractive prompts for a token PIN without echoing it.
func ReadPINInteractive(prompt string) (string, error) {
	pin, err := readHiddenLine(prompt)
	if err != nil {
		return "", err
	}
	if pin == "" {
		return "", ErrPasswordEmpty
	}
	return pin, nil
}

// ReadPassphraseFromStdin reads a single line from stdin (for -P/--stdin
// scripted invocations, e.g. `echo "..." | barqlyvault key add-passphrase -P`).
func ReadPassphraseFromStdin() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
