package ptydriver

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/barqly/barqly-vault/internal/log"
	"github.com/barqly/barqly-vault/internal/vaulterr"
)

const (
	// OverallTimeout is the hard deadline for an entire PTY-driven
	// operation, from spawn to completion.
	OverallTimeout = 60 * time.Second
	// TouchTimeout is the deadline once the driver observes a touch
	// prompt, measured from entering WaitingForTouch.
	TouchTimeout = 30 * time.Second
	// pinSettleDelay is how long the controller waits after seeing
	// GeneratingKey/WaitingForPin before writing the PIN, because some
	// vendor CLIs print the prompt before they are actually ready to
	// read from the TTY.
	pinSettleDelay = 300 * time.Millisecond

	ptyRows        = 24
	ptyColsDefault = 80
	// ptyColsWindows is wider because Windows ConPTY hard-wraps long
	// prompt lines, which would otherwise split a pattern across two
	// scanned lines and break classification.
	ptyColsWindows = 240
)

// Options configures one PTY-driven invocation.
type Options struct {
	Path          string
	Args          []string
	Pin           *string // injected once, at most
	TouchExpected bool
	// OnState, if set, is invoked on every state transition so a caller
	// can surface progress (in particular "touch required") upstream.
	OnState func(State)
}

// Result is what a completed invocation returns.
type Result struct {
	Output     string
	FinalState State
}

// Run spawns Options.Path on a pseudo-terminal, classifies its output
// line-by-line, injects the PIN once the CLI is ready for it, and enforces
// the overall and touch timeouts. ctx is honored for external cancellation
// in addition to the built-in timeouts.
func Run(ctx context.Context, opts Options) (Result, error) {
	cmd := exec.Command(opts.Path, opts.Args...)

	cols := ptyColsDefault
	if runtime.GOOS == "windows" {
		cols = ptyColsWindows
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: uint16(cols)})
	if err != nil {
		return Result{}, vaulterr.NewTokenError("pty-spawn", "", err)
	}
	defer ptmx.Close()

	events := make(chan event, 16)
	done := make(chan error, 1)

	go readLines(ptmx, events)
	go func() { done <- cmd.Wait() }()

	overall := time.NewTimer(OverallTimeout)
	defer overall.Stop()

	var touchTimer *time.Timer
	var touchCh <-chan time.Time

	var pinTimer *time.Timer
	var pinCh <-chan time.Time
	pinSent := false

	var output strings.Builder
	state := Idle

	setState := func(s State) {
		state = s
		if opts.OnState != nil {
			opts.OnState(s)
		}
	}

	kill := func() {
		_ = cmd.Process.Kill()
	}

	for {
		select {
		case <-ctx.Done():
			kill()
			return Result{Output: output.String(), FinalState: state}, vaulterr.NewTokenError("pty-wait", "", ctx.Err())

		case <-overall.C:
			kill()
			return Result{Output: output.String(), FinalState: state}, vaulterr.NewTokenError("pty-wait", "", vaulterr.ErrPtyTimeout)

		case <-touchCh:
			kill()
			return Result{Output: output.String(), FinalState: state}, vaulterr.NewTokenError("pty-wait", "", vaulterr.ErrTouchTimeout)

		case <-pinCh:
			if !pinSent && opts.Pin != nil {
				pinSent = true
				log.Debug("ptydriver: injecting pin")
				_, _ = ptmx.Write([]byte(*opts.Pin + "\n"))
			}

		case ev, ok := <-events:
			if !ok {
				continue
			}
			output.WriteString(ev.line)
			output.WriteString("\n")
			setState(ev.state)

			switch ev.state {
			case GeneratingKey, WaitingForPin:
				if opts.Pin != nil && !pinSent && pinCh == nil {
					pinTimer = time.NewTimer(pinSettleDelay)
					pinCh = pinTimer.C
				}
			case WaitingForTouch:
				if touchTimer == nil {
					touchTimer = time.NewTimer(TouchTimeout)
					touchCh = touchTimer.C
				}
			case Complete:
				kill()
				drainTimers(pinTimer, touchTimer)
				return Result{Output: output.String(), FinalState: Complete}, nil
			case Failed:
				kill()
				drainTimers(pinTimer, touchTimer)
				return Result{Output: output.String(), FinalState: Failed}, vaulterr.NewTokenError("pty-operation", "", vaulterr.ErrUnexpected)
			}

		case waitErr := <-done:
			drainTimers(pinTimer, touchTimer)
			if waitErr == nil && state != Failed {
				setState(Complete)
				return Result{Output: output.String(), FinalState: Complete}, nil
			}
			if waitErr != nil {
				return Result{Output: output.String(), FinalState: Failed}, vaulterr.NewTokenError("pty-wait", "", waitErr)
			}
			return Result{Output: output.String(), FinalState: Failed}, vaulterr.NewTokenError("pty-operation", "", vaulterr.ErrUnexpected)
		}
	}
}

func drainTimers(timers ...*time.Timer) {
	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
}

func readLines(r io.Reader, events chan<- event) {
	defer close(events)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if state, ok := classifyLine(line); ok {
			events <- event{state: state, line: line}
		} else if line != "" {
			events <- event{state: Idle, line: line}
		}
	}
}
