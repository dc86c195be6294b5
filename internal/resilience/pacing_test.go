package resilience

import (
	"context"
	"testing"
	"time"
)

func TestPacerFixedCadence(t *testing.T) {
	p := Pacer{Interval: 3 * time.Second}

	for _, streak := range []int{0, 1, 5, 50} {
		if got := p.Delay(streak); got != 3*time.Second {
			t.Errorf("Delay(%d) = %v, want 3s with backoff disabled", streak, got)
		}
	}
}

func TestPacerDefaultInterval(t *testing.T) {
	var p Pacer
	if got := p.Delay(0); got != 3*time.Second {
		t.Errorf("zero-value Delay(0) = %v, want 3s", got)
	}
}

func TestPacerBackoffGrowth(t *testing.T) {
	p := Pacer{
		Interval:   time.Second,
		Backoff:    true,
		Multiplier: 2.0,
		MaxDelay:   10 * time.Second,
	}

	tests := []struct {
		streak int
		want   time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.streak); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.streak, got, tt.want)
		}
	}
}

func TestPacerJitterBounds(t *testing.T) {
	p := Pacer{Interval: time.Second, JitterFraction: 0.5}

	for i := 0; i < 100; i++ {
		d := p.Delay(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [500ms, 1500ms]", d)
		}
	}
}

func TestWaitReturnsAfterDelay(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait returned after %v, want >= 10ms", elapsed)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Wait(ctx, time.Hour)
	if err != context.Canceled {
		t.Fatalf("Wait returned %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Wait took %v", elapsed)
	}
}
