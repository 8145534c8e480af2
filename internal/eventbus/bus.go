package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event carries a run-lifecycle signal from the dispatcher to whoever cares
// (the operator notifier, mainly). Data holds the run status snapshot.
//
// Contract:
//   - Publish never blocks; a full subscriber just misses the event.
//   - Subscribers receive on buffered channels and must drain promptly.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Run lifecycle event types.
const (
	TypeRunStarted  = "run.started"
	TypeRunFinished = "run.finished"
	TypeRunAborted  = "run.aborted"
)

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. No background goroutines: delivery
// happens on the publisher's stack.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot under the read lock; the sends happen lock-free.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery; a concurrently-unsubscribed channel may be
		// closed, so recover from a possible send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
