package progress

import "sync"

// minStep is the minimum fractional delta between two coalesced
// SetProgress calls. 0.1 caps emitted intermediate events at roughly nine,
// plus the always-emitted 0% and 100% bookends, matching the
// fewer-than-roughly-ten-events policy.
const minStep = 0.1

// Debounced wraps a Reporter so that SetProgress calls are coalesced: 0%
// and 100% always pass through, everything else is dropped unless it has
// advanced by at least minStep since the last emitted value.
type Debounced struct {
	inner Reporter

	mu       sync.Mutex
	lastSent float32
	sentAny  bool
}

// NewDebounced wraps inner with the coalescing policy. SetStatus,
// SetCanCancel, Update, and IsCancelled pass through unchanged; only
// SetProgress is debounced.
func NewDebounced(inner Reporter) *Debounced {
	if inner == nil {
		inner = NullReporter{}
	}
	return &Debounced{inner: inner}
}

func (d *Debounced) SetStatus(text string) { d.inner.SetStatus(text) }

func (d *Debounced) SetProgress(fraction float32, info string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	d.mu.Lock()
	emit := !d.sentAny || fraction <= 0 || fraction >= 1 || fraction-d.lastSent >= minStep
	if emit {
		d.lastSent = fraction
		d.sentAny = true
	}
	d.mu.Unlock()

	if emit {
		d.inner.SetProgress(fraction, info)
	}
}

func (d *Debounced) SetCanCancel(can bool) { d.inner.SetCanCancel(can) }
func (d *Debounced) Update()               { d.inner.Update() }
func (d *Debounced) IsCancelled() bool     { return d.inner.IsCancelled() }

// Reset clears debounce state, letting the next SetProgress call through
// regardless of the last emitted fraction. Used when a Debounced is reused
// across operations.
func (d *Debounced) Reset() {
	d.mu.Lock()
	d.lastSent = 0
	d.sentAny = false
	d.mu.Unlock()
}
