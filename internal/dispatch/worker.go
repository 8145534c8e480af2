package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/automation"
	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan job) {
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case j := <-queue:
			s.execRun(ctx, stopCh, j)
		}
	}
}

func (s *Service) execRun(ctx context.Context, stopCh <-chan struct{}, j job) {
	start := time.Now()
	log := s.log.With(logx.String("run", j.id))

	if j.cleanup != nil {
		// Staged attachments are released whatever happens to the run.
		defer j.cleanup()
	}

	valid := campaign.Filter(j.recipients)
	s.setRunning(j.id)
	log.Info("run started", logx.Int("valid", len(valid)), logx.Int("skipped_invalid", len(j.recipients)-len(valid)))
	if st, ok := s.Status(j.id); ok {
		s.publish(eventbus.TypeRunStarted, st)
	}

	aborted := false
	for i, r := range valid {
		// Cooperative cancellation between recipients; a delivery in flight
		// always runs to completion or timeout.
		if cancelled(ctx, stopCh) {
			log.Info("run cancelled", logx.Int("attempted", i), logx.Int("total", len(valid)))
			break
		}
		if i > 0 {
			delay := s.nextDelay()
			log.Debug("pacing before next recipient", logx.Duration("delay", delay))
			if !sleep(ctx, stopCh, delay) {
				log.Info("run cancelled during pacing delay", logx.Int("attempted", i), logx.Int("total", len(valid)))
				break
			}
		}

		att := campaign.AttachmentFor(j.attachments, i, len(valid))
		payload := campaign.Render(r, j.template, att)

		rep, err := s.deliverOne(ctx, payload)
		switch {
		case err == nil && rep.AttachmentErr == nil:
			s.record(j.id, Outcome{ContactID: r.ContactID, Succeeded: true})
		case err == nil:
			// Degraded: text went out, attachment did not. Still a success,
			// with the failure kept visible in the outcome detail.
			s.record(j.id, Outcome{ContactID: r.ContactID, Succeeded: true, ErrorDetail: rep.AttachmentErr.Error()})
		default:
			if errors.Is(err, automation.ErrSessionClosed) {
				// The channel is gone; this recipient was never reached.
				// Record nothing for it: the run keeps only completed
				// attempts plus one fatal error, it is not a per-recipient
				// failure.
				log.Error("session closed mid-run", logx.String("contact", r.ContactID))
				s.abort(j.id, err)
				aborted = true
				break
			}
			s.record(j.id, Outcome{ContactID: r.ContactID, Succeeded: false, ErrorDetail: err.Error()})
			log.Warn("delivery failed", logx.String("contact", r.ContactID), logx.Err(err))
		}
		if aborted {
			break
		}
	}

	s.finish(j.id)

	st, ok := s.Status(j.id)
	if !ok {
		log.Info("run finished", logx.Duration("dur", time.Since(start)))
		return
	}
	fields := []logx.Field{
		logx.Int("total", st.Total),
		logx.Int("done", st.Done),
		logx.Int("failed", st.Failed),
		logx.Duration("dur", time.Since(start)),
	}
	switch {
	case aborted:
		log.Error("run aborted: session unusable", fields...)
		s.publish(eventbus.TypeRunAborted, st)
	case st.Failed > 0:
		log.Warn("run finished with failures", fields...)
		s.publish(eventbus.TypeRunFinished, st)
	default:
		log.Info("run finished", fields...)
		s.publish(eventbus.TypeRunFinished, st)
	}
}

func (s *Service) deliverOne(ctx context.Context, p campaign.Payload) (automation.Report, error) {
	// Snapshot mutable dependencies to avoid races with Apply().
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	return session.Deliver(ctx, p)
}

func (s *Service) nextDelay() time.Duration {
	s.mu.Lock()
	p := s.pacing
	s.mu.Unlock()
	return p.NextDelay()
}

func cancelled(ctx context.Context, stopCh <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stopCh:
		return true
	default:
		return false
	}
}

// sleep waits for d, reporting false if cancelled first.
func sleep(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-tmr.C:
		return true
	}
}

func (s *Service) setRunning(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.StartedAt = time.Now()
		st.Running = true
	}
}

func (s *Service) record(id string, o Outcome) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Outcomes = append(st.Outcomes, o)
		st.Done++
		if !o.Succeeded {
			st.Failed++
		}
	}
}

func (s *Service) abort(id string, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.FatalError = err.Error()
	}
}

func (s *Service) finish(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.DoneAt = time.Now()
		st.Running = false
	}
}
