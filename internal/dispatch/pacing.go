package dispatch

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Pacing defaults: the delay window the original automation used between
// recipients to stay under abuse-detection thresholds.
const (
	DefaultMinDelay = 30 * time.Second
	DefaultMaxDelay = 90 * time.Second
)

// Pacing draws the inter-delivery delay uniformly from a closed interval.
//
// A fixed delay is a correctness bug here (a constant cadence is exactly
// what rate-based abuse detection keys on), so NewPacing rejects an empty
// interval. The only state carried between calls is the RNG.
type Pacing struct {
	min, max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPacing(min, max time.Duration) (*Pacing, error) {
	if min <= 0 && max <= 0 {
		min, max = DefaultMinDelay, DefaultMaxDelay
	}
	if min < 0 {
		return nil, fmt.Errorf("pacing: min_delay must be >= 0, got %s", min)
	}
	if max <= min {
		return nil, fmt.Errorf("pacing: max_delay (%s) must be greater than min_delay (%s)", max, min)
	}
	return &Pacing{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// NextDelay returns a duration in [min, max].
func (p *Pacing) NextDelay() time.Duration {
	span := int64(p.max - p.min)
	p.mu.Lock()
	n := p.rng.Int63n(span + 1)
	p.mu.Unlock()
	return p.min + time.Duration(n)
}

// Interval reports the configured closed interval.
func (p *Pacing) Interval() (min, max time.Duration) { return p.min, p.max }
