package token

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/barqly/barqly-vault/internal/domain"
	"github.com/barqly/barqly-vault/internal/tokenplugin"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

var serialLinePattern = regexp.MustCompile(`(?i)serial(?: number)?:\s*([0-9]{4,16})`)

// DeviceInfo is one entry from ListDevices.
type DeviceInfo struct {
	Serial domain.Serial
	Model  string
}

// PivInfo summarizes a single piv info invocation's parsed output.
type PivInfo struct {
	FirmwareVersion string
	Raw             string
}

// classifyCLIFailure maps known management-CLI failure text to a specific
// sentinel so callers get PinBlocked/PinIncorrect rather than Unexpected.
func classifyCLIFailure(output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "blocked") || strings.Contains(lower, "locked"):
		return vaulterr.ErrPinBlocked
	case strings.Contains(lower, "wrong pin") || strings.Contains(lower, "incorrect pin") || strings.Contains(lower, "invalid pin"):
		return vaulterr.ErrPinIncorrect
	default:
		return vaulterr.ErrUnexpected
	}
}

func (s *Session) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, s.managementPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			sentinel := classifyCLIFailure(string(out))
			return string(out), vaulterr.NewTokenError(strings.Join(args, " "), "", fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), sentinel))
		}
		return "", vaulterr.NewTokenError(strings.Join(args, " "), "", err)
	}
	return string(out), nil
}

// ListDevices parses the management CLI's device listing output.
func (s *Session) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := withSession(func() error {
		out, err := s.run(ctx, "list")
		if err != nil {
			return err
		}
		for _, line := range strings.Split(out, "\n") {
			m := serialLinePattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			serial, err := domain.NewSerial(m[1])
			if err != nil {
				continue
			}
			devices = append(devices, DeviceInfo{Serial: serial, Model: strings.TrimSpace(line)})
		}
		return nil
	})
	return devices, err
}

// GetSerial returns the serial of the sole attached device, failing if
// zero or more than one is attached (ambiguous target).
func (s *Session) GetSerial(ctx context.Context) (domain.Serial, error) {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) != 1 {
		return "", vaulterr.NewTokenError("get-serial", "", vaulterr.ErrTokenNotFound)
	}
	return devices[0].Serial, nil
}

// GetFirmwareVersion runs the management CLI's info subcommand against a
// given serial and extracts the firmware version line.
func (s *Session) GetFirmwareVersion(ctx context.Context, serial domain.Serial, pin domain.Pin) (string, error) {
	var version string
	err := withSession(func() error {
		out, err := s.run(ctx, "--device", serial.Raw(), "info", "--pin", pin.Raw())
		if err != nil {
			return err
		}
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(strings.ToLower(line), "firmware") {
				version = strings.TrimSpace(line)
				return nil
			}
		}
		return vaulterr.NewTokenError("get-firmware-version", serial.Raw(), vaulterr.ErrUnexpected)
	})
	return version, err
}

func (s *Session) rawPivInfo(ctx context.Context, serial domain.Serial, pin domain.Pin) (PivInfo, error) {
	var info PivInfo
	out, err := s.run(ctx, "--device", serial.Raw(), "piv", "info", "--pin", pin.Raw())
	if err != nil {
		return info, err
	}
	info.Raw = out
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToLower(line), "firmware") {
			info.FirmwareVersion = strings.TrimSpace(line)
		}
	}
	return info, nil
}

// GetPivInfo runs `piv info` with the given PIN and returns the raw output
// alongside the parsed firmware version, for callers that need the full
// text (has_default_pin / has_protected_mgmt_key parse it further).
func (s *Session) GetPivInfo(ctx context.Context, serial domain.Serial, pin domain.Pin) (PivInfo, error) {
	var info PivInfo
	err := withSession(func() error {
		var err error
		info, err = s.rawPivInfo(ctx, serial, pin)
		return err
	})
	return info, err
}

// HasDefaultPin runs piv info without authentication and reports whether
// the output carries the CLI's default-PIN warning.
func (s *Session) HasDefaultPin(ctx context.Context, serial domain.Serial) (bool, error) {
	var result bool
	err := withSession(func() error {
		out, err := s.run(ctx, "--device", serial.Raw(), "piv", "info")
		if err != nil {
			return err
		}
		result = strings.Contains(strings.ToLower(out), "using the default pin")
		return nil
	})
	return result, err
}

// HasProtectedMgmtKey reports whether the output shows a management key
// stored on-device as protected TDES, per spec's conjunction rule.
func (s *Session) HasProtectedMgmtKey(ctx context.Context, serial domain.Serial, pin domain.Pin) (bool, error) {
	var result bool
	err := withSession(func() error {
		info, err := s.rawPivInfo(ctx, serial, pin)
		if err != nil {
			return err
		}
		result = tokenplugin.ContainsAll(info.Raw, "algorithm TDES", "stored on device, protected by PIN")
		return nil
	})
	return result, err
}
