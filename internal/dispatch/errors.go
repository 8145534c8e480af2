package dispatch

import "errors"

// ErrQueueFull rejects a submit when the run queue is at capacity. Submits
// while the service is stopped are accepted instead: the queue survives
// restarts and pending runs execute on the next Start.
var ErrQueueFull = errors.New("dispatch queue full")
