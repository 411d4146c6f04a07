// Package progress provides a debounced progress-reporting sink for
// long-running operations (encrypt, decrypt, token initialize).
package progress

import "sync"

// Reporter is the upcall interface a long-running operation drives.
// Implementations decide how updates reach the caller (CLI line, IPC event,
// log line); this package's Debounced wraps any Reporter to enforce the
// coalescing policy.
type Reporter interface {
	SetStatus(text string)
	SetProgress(fraction float32, info string)
	SetCanCancel(can bool)
	Update()
	IsCancelled() bool
}

// Sink is the plain function form most callers implement: one callback per
// progress event, given a fraction in [0,1] and a short status string.
type Sink func(fraction float32, info string)

// NullReporter discards every update. Used when a caller has no progress UI.
type NullReporter struct{}

func (NullReporter) SetStatus(string)           {}
func (NullReporter) SetProgress(float32, string) {}
func (NullReporter) SetCanCancel(bool)          {}
func (NullReporter) Update()                    {}
func (NullReporter) IsCancelled() bool          { return false }

// CallbackReporter bridges a set of plain callbacks into a Reporter, mirroring
// the teacher's UIReporter: every hook is optional, nil hooks are silently
// skipped, and cancellation state is goroutine-safe.
type CallbackReporter struct {
	mu sync.RWMutex

	OnStatus    func(text string)
	OnProgress  func(fraction float32, info string)
	OnCanCancel func(can bool)
	OnUpdate    func()
	CheckCancel func() bool

	cancelled bool
}

// NewCallbackReporter creates a CallbackReporter from the given hooks. Any
// hook may be nil.
func NewCallbackReporter(
	onStatus func(string),
	onProgress func(float32, string),
	onCanCancel func(bool),
	onUpdate func(),
	checkCancel func() bool,
) *CallbackReporter {
	return &CallbackReporter{
		OnStatus:    onStatus,
		OnProgress:  onProgress,
		OnCanCancel: onCanCancel,
		OnUpdate:    onUpdate,
		CheckCancel: checkCancel,
	}
}

func (r *CallbackReporter) SetStatus(text string) {
	if r.OnStatus != nil {
		r.OnStatus(text)
	}
}

func (r *CallbackReporter) SetProgress(fraction float32, info string) {
	if r.OnProgress != nil {
		r.OnProgress(fraction, info)
	}
}

func (r *CallbackReporter) SetCanCancel(can bool) {
	if r.OnCanCancel != nil {
		r.OnCanCancel(can)
	}
}

func (r *CallbackReporter) Update() {
	if r.OnUpdate != nil {
		r.OnUpdate()
	}
}

func (r *CallbackReporter) IsCancelled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cancelled {
		return true
	}
	if r.CheckCancel != nil {
		return r.CheckCancel()
	}
	return false
}

// Cancel marks the operation as cancelled.
func (r *CallbackReporter) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

// Reset clears the cancelled flag, allowing the reporter to be reused.
func (r *CallbackReporter) Reset() {
	r.mu.Lock()
	r.cancelled = false
	r.mu.Unlock()
}
