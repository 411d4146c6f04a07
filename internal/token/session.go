// Package token implements Component F: thin, serial-parameterized
// wrappers over the management and age-plugin CLIs that talk to a
// hardware token. Operations needing touch confirmation or PIN entry go
// through internal/ptydriver; everything else shells out directly and
// parses CombinedOutput.
package token

import (
	"github.com/barqly/barqly-vault/internal/tokenplugin"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

// sem is the process-wide single-session guard: the hardware token can
// only run one operation at a time, and a caller that finds it held
// should see TokenBusy rather than queue.
var sem = make(chan struct{}, 1)

func acquire() error {
	select {
	case sem <- struct{}{}:
		return nil
	default:
		return vaulterr.NewTokenError("session", "", vaulterr.ErrTokenBusy)
	}
}

func release() {
	<-sem
}

// Session resolves the two vendor binaries once and exposes the full
// Component F operation set against them.
type Session struct {
	managementPath string
	pluginPath     string
}

// NewSession resolves both vendor binaries via the platform-aware
// resolver (application resources, executable-adjacent, PATH).
func NewSession() (*Session, error) {
	mgmt, err := tokenplugin.ResolveBinary(tokenplugin.ManagementCLIName)
	if err != nil {
		return nil, err
	}
	plugin, err := tokenplugin.ResolveBinary(tokenplugin.PluginCLIName)
	if err != nil {
		return nil, err
	}
	return &Session{managementPath: mgmt, pluginPath: plugin}, nil
}

// PluginPath returns the resolved age-plugin CLI path, for callers (the
// decrypt path) that need to hand it to filippo.io/age/plugin rather than
// to ptydriver.
func (s *Session) PluginPath() string { return s.pluginPath }

// withSession serializes access to the single hardware token across the
// whole process for the duration of fn.
func withSession(fn func() error) error {
	if err := acquire(); err != nil {
		return err
	}
	defer release()
	return fn()
}
