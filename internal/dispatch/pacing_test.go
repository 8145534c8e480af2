package dispatch

import (
	"testing"
	"time"
)

func TestPacingDefaults(t *testing.T) {
	p, err := NewPacing(0, 0)
	if err != nil {
		t.Fatalf("defaults must be accepted: %v", err)
	}
	min, max := p.Interval()
	if min != DefaultMinDelay || max != DefaultMaxDelay {
		t.Fatalf("interval = [%s, %s]", min, max)
	}
}

func TestPacingRejectsEmptyInterval(t *testing.T) {
	if _, err := NewPacing(10*time.Second, 10*time.Second); err == nil {
		t.Fatalf("min == max must be rejected")
	}
	if _, err := NewPacing(10*time.Second, 5*time.Second); err == nil {
		t.Fatalf("max < min must be rejected")
	}
	if _, err := NewPacing(-time.Second, 5*time.Second); err == nil {
		t.Fatalf("negative min must be rejected")
	}
}

func TestPacingDelaysStayInBounds(t *testing.T) {
	const min, max = 30 * time.Millisecond, 90 * time.Millisecond
	p, err := NewPacing(min, max)
	if err != nil {
		t.Fatalf("NewPacing: %v", err)
	}

	seen := map[time.Duration]bool{}
	for i := 0; i < 1000; i++ {
		d := p.NextDelay()
		if d < min || d > max {
			t.Fatalf("delay %s outside [%s, %s]", d, min, max)
		}
		seen[d] = true
	}
	// A pacing policy that always returns the same delay is broken.
	if len(seen) < 2 {
		t.Fatalf("expected varied delays, got %d distinct values", len(seen))
	}
}
