package tokenplugin

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/ptydriver"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

var (
	recipientPattern   = regexp.MustCompile(`age1yubikey1[0-9a-z]+`)
	identityTagPattern = regexp.MustCompile(`AGE-PLUGIN-YUBIKEY-[0-9A-Z]+`)
)

// GenerateIdentity invokes the plugin CLI's generate subcommand over a PTY,
// since the CLI prompts for PIN and touch confirmation interactively, and
// extracts the resulting recipient and identity tag from its output.
func GenerateIdentity(ctx context.Context, pluginPath string, serial domain.Serial, pin domain.Pin, touchPolicy, label string) (domain.Recipient, domain.IdentityTag, error) {
	rawPin := pin.Raw()
	args := []string{
		"generate",
		"--serial", serial.Raw(),
		"--slot", "1",
		"--touch-policy", touchPolicy,
		"--name", label,
	}

	result, err := ptydriver.Run(ctx, ptydriver.Options{
		Path: pluginPath,
		Args: args,
		Pin:  &rawPin,
	})
	if err != nil {
		return "", "", err
	}

	recipientRaw := recipientPattern.FindString(result.Output)
	if recipientRaw == "" {
		return "", "", vaulterr.NewTokenError("generate-identity", serial.Raw(), vaulterr.ErrUnexpected)
	}
	recipient, err := domain.NewRecipient(recipientRaw)
	if err != nil {
		return "", "", err
	}

	identityTag := domain.IdentityTag("")
	if tagRaw := identityTagPattern.FindString(result.Output); tagRaw != "" {
		tag, err := domain.NewIdentityTag(tagRaw)
		if err == nil {
			identityTag = tag
		}
	}

	return recipient, identityTag, nil
}

// GetIdentityForSerial invokes the plugin CLI's identity lookup in
// non-interactive mode (no PTY: the CLI does not prompt in this mode) and
// parses the identity tag line from its output. A missing identity is not
// an error: it is reported as ok=false.
func GetIdentityForSerial(ctx context.Context, pluginPath string, serial domain.Serial) (domain.IdentityTag, bool, error) {
	cmd := exec.CommandContext(ctx, pluginPath, "--identity", "--serial", serial.Raw())
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			return "", false, nil
		}
		return "", false, vaulterr.NewTokenError("get-identity", serial.Raw(), err)
	}

	tagRaw := identityTagPattern.FindString(string(out))
	if tagRaw == "" {
		return "", false, nil
	}
	tag, err := domain.NewIdentityTag(tagRaw)
	if err != nil {
		return "", false, err
	}
	return tag, true, nil
}

// ContainsAll reports whether output contains every given substring, used
// for the management CLI's conjunction-style output parsing (for example
// detecting a protected TDES management key).
func ContainsAll(output string, substrings ...string) bool {
	for _, s := range substrings {
		if !strings.Contains(output, s) {
			return false
		}
	}
	return true
}
