package dispatch

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func New(cfg Config, session Deliverer, pacing *Pacing, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	qs := cfg.QueueSize
	if qs <= 0 {
		qs = 16
	}
	return &Service{
		cfg:     cfg,
		session: session,
		pacing:  pacing,
		log:     log,
		bus:     bus,
		queue:   make(chan job, qs),
		status:  map[string]*RunStatus{},
	}
}

// Apply updates the pacing interval and retention bounds at runtime.
// Queue size changes require a restart.
func (s *Service) Apply(cfg Config) {
	p, err := NewPacing(cfg.MinDelay, cfg.MaxDelay)
	if err != nil {
		s.log.Warn("invalid pacing config; keeping previous", logx.Err(err))
		p = nil
	}
	s.mu.Lock()
	s.cfg = cfg
	if p != nil {
		s.pacing = p
	}
	s.mu.Unlock()
}

// Start launches the single dispatch worker. The session is an exclusive
// resource, so the worker count is not configurable.
func (s *Service) Start(ctx context.Context) {
	// If a Stop() is in progress, wait for it (prevents double workers).
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		if done == nil {
			// already running
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		select {
		case <-done:
			// loop
		case <-ctx.Done():
			return
		}
	}
	defer s.mu.Unlock()
	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	// Queue survives restarts: runs submitted while stopped stay pending.
	queue := s.queue
	stopCh := s.stopCh
	runCtx := s.runCtx

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in dispatch worker", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.worker(runCtx, stopCh, queue)
	}()

	min, max := s.pacing.Interval()
	s.log.Info("service started", logx.Duration("min_delay", min), logx.Duration("max_delay", max))
}

func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	// If a stop is already in progress, just wait for it.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	s.stopDone = done
	stopCh := s.stopCh
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}

	go func() {
		s.workerWG.Wait()
		s.mu.Lock()
		s.stopCh = nil
		s.runCtx = nil
		s.stopDone = nil
		s.mu.Unlock()
		close(done)
		s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// stop continues in background
	}
}

func (s *Service) publish(typ string, st RunStatus) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: st})
}
