package monitoring

import (
	"context"
	"testing"
	"time"
)

func TestCheckerStopsOnCancel(t *testing.T) {
	checker := NewChecker(NewCollector(&fakeStore{}), time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	// Let a few ticks fire before stopping.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after cancellation")
	}
}
