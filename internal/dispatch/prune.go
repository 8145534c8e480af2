package dispatch

import (
	"sort"
	"time"
)

const (
	// Keep run-status memory bounded; statuses only exist for polling and
	// would otherwise accumulate for the life of the process.
	defaultStatusMax = 100
	defaultStatusTTL = 24 * time.Hour
)

func (s *Service) pruneStatus(now time.Time) {
	s.mu.Lock()
	max := s.cfg.StatusMax
	ttl := s.cfg.StatusTTL
	s.mu.Unlock()
	if max <= 0 {
		max = defaultStatusMax
	}
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if len(s.status) == 0 {
		return
	}

	// 1) Drop completed runs older than TTL; stuck never-started runs too.
	for id, st := range s.status {
		if st == nil {
			delete(s.status, id)
			continue
		}
		if !st.DoneAt.IsZero() {
			if now.Sub(st.DoneAt) > ttl {
				delete(s.status, id)
			}
			continue
		}
		if !st.Running && !st.CreatedAt.IsZero() && now.Sub(st.CreatedAt) > ttl {
			delete(s.status, id)
		}
	}

	// 2) Enforce max size: evict oldest non-running runs.
	over := len(s.status) - max
	if over <= 0 {
		return
	}

	type cand struct {
		id string
		t  time.Time
	}
	cands := make([]cand, 0, len(s.status))
	for id, st := range s.status {
		if st == nil || st.Running {
			continue
		}
		key := st.DoneAt
		if key.IsZero() {
			key = st.CreatedAt
		}
		cands = append(cands, cand{id: id, t: key})
	}
	if len(cands) == 0 {
		return
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].t.IsZero() != cands[j].t.IsZero() {
			return cands[i].t.IsZero()
		}
		return cands[i].t.Before(cands[j].t)
	})

	for i := 0; i < len(cands) && over > 0; i++ {
		delete(s.status, cands[i].id)
		over--
	}
}
