package progress

import (
	"sync"
	"testing"
)

func TestNewCallbackReporter(t *testing.T) {
	var statusCalled, progressCalled, canCancelCalled, updateCalled, checkCancelCalled bool

	reporter := NewCallbackReporter(
		func(text string) { statusCalled = true },
		func(fraction float32, info string) { progressCalled = true },
		func(can bool) { canCancelCalled = true },
		func() { updateCalled = true },
		func() bool { checkCancelCalled = true; return false },
	)

	if reporter == nil {
		t.Fatal("NewCallbackReporter returned nil")
	}

	reporter.SetStatus("test")
	reporter.SetProgress(0.5, "50%")
	reporter.SetCanCancel(true)
	reporter.Update()
	_ = reporter.IsCancelled()

	if !statusCalled || !progressCalled || !canCancelCalled || !updateCalled || !checkCancelCalled {
		t.Error("not all hooks were invoked")
	}
}

func TestCallbackReporterNilHooks(t *testing.T) {
	reporter := NewCallbackReporter(nil, nil, nil, nil, nil)

	reporter.SetStatus("test")
	reporter.SetProgress(0.5, "info")
	reporter.SetCanCancel(true)
	reporter.Update()

	if reporter.IsCancelled() {
		t.Error("IsCancelled should be false with nil CheckCancel and no Cancel()")
	}
}

func TestCallbackReporterCancelReset(t *testing.T) {
	reporter := NewCallbackReporter(nil, nil, nil, nil, nil)

	if reporter.IsCancelled() {
		t.Error("should not be cancelled initially")
	}

	reporter.Cancel()
	if !reporter.IsCancelled() {
		t.Error("should be cancelled after Cancel()")
	}

	reporter.Reset()
	if reporter.IsCancelled() {
		t.Error("should not be cancelled after Reset()")
	}
}

func TestCallbackReporterCheckCancelOverride(t *testing.T) {
	result := false
	reporter := NewCallbackReporter(nil, nil, nil, nil, func() bool { return result })

	if reporter.IsCancelled() {
		t.Error("should not be cancelled when CheckCancel returns false")
	}

	result = true
	if !reporter.IsCancelled() {
		t.Error("should be cancelled when CheckCancel returns true")
	}

	reporter.Cancel()
	result = false
	if !reporter.IsCancelled() {
		t.Error("Cancel() should take precedence over CheckCancel")
	}
}

func TestCallbackReporterConcurrency(t *testing.T) {
	reporter := NewCallbackReporter(nil, nil, nil, nil, nil)

	var wg sync.WaitGroup
	iterations := 100
	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func() {
			defer wg.Done()
			reporter.Cancel()
		}()
		go func() {
			defer wg.Done()
			reporter.Reset()
		}()
		go func() {
			defer wg.Done()
			_ = reporter.IsCancelled()
		}()
	}
	wg.Wait()
}

func TestNullReporter(t *testing.T) {
	var r Reporter = NullReporter{}
	r.SetStatus("x")
	r.SetProgress(0.5, "x")
	r.SetCanCancel(true)
	r.Update()
	if r.IsCancelled() {
		t.Error("NullReporter should never report cancelled")
	}
}
