package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// Submit validates the campaign and queues one run, returning its ID.
//
// cleanup (may be nil) releases run-scoped resources; the service guarantees
// it is called exactly once, whether the run executes, aborts, or never
// leaves the queue.
func (s *Service) Submit(recipients []campaign.Recipient, t campaign.Template, atts []campaign.Attachment, cleanup func()) (string, error) {
	if err := campaign.Validate(recipients, t, atts); err != nil {
		if cleanup != nil {
			cleanup()
		}
		return "", err
	}

	now := time.Now()
	id := uuid.NewString()
	valid := campaign.Filter(recipients)

	s.pruneStatus(now)
	st := &RunStatus{ID: id, Total: len(valid), CreatedAt: now}
	s.statusMu.Lock()
	s.status[id] = st
	s.statusMu.Unlock()

	j := job{id: id, recipients: recipients, template: t, attachments: atts, cleanup: cleanup}

	s.mu.Lock()
	q := s.queue
	stopped := s.stopCh == nil
	s.mu.Unlock()

	enqueueFail := func(reason error) (string, error) {
		s.statusMu.Lock()
		delete(s.status, id)
		s.statusMu.Unlock()
		if cleanup != nil {
			cleanup()
		}
		return "", reason
	}

	if stopped {
		// Accept anyway: the queue survives restarts and the run will
		// execute once Start() is called again.
		s.log.Debug("run submitted while stopped; kept pending", logx.String("run", id))
	}
	select {
	case q <- j:
		s.log.Info("run submitted",
			logx.String("run", id),
			logx.Int("recipients", len(recipients)),
			logx.Int("valid", len(valid)),
			logx.Int("attachments", len(atts)),
			logx.Int("queue_len", len(q)))
		return id, nil
	default:
		s.log.Warn("dispatch queue full; rejecting run", logx.String("run", id))
		return enqueueFail(ErrQueueFull)
	}
}

// Status returns a copy of the run's current status.
func (s *Service) Status(runID string) (RunStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[runID]
	if !ok || st == nil {
		return RunStatus{}, false
	}
	return copyStatus(st), true
}

// Runs returns copies of all retained run statuses, newest first.
func (s *Service) Runs() []RunStatus {
	s.statusMu.RLock()
	out := make([]RunStatus, 0, len(s.status))
	for _, st := range s.status {
		if st != nil {
			out = append(out, copyStatus(st))
		}
	}
	s.statusMu.RUnlock()

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func copyStatus(st *RunStatus) RunStatus {
	cp := *st
	if len(st.Outcomes) > 0 {
		cp.Outcomes = append([]Outcome(nil), st.Outcomes...)
	}
	return cp
}
