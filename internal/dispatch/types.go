package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/automation"
	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

type Config struct {
	// MinDelay/MaxDelay bound the randomized pause between consecutive
	// recipients. This is the single pacing source for the whole pipeline.
	MinDelay time.Duration
	MaxDelay time.Duration

	QueueSize int

	// Status retention bounds.
	StatusMax int
	StatusTTL time.Duration
}

// Deliverer is the slice of the automation session the dispatcher needs.
type Deliverer interface {
	Deliver(ctx context.Context, p campaign.Payload) (automation.Report, error)
}

// Outcome is the per-recipient result, appended in queue order and never
// mutated afterwards.
type Outcome struct {
	ContactID   string `json:"contact_id"`
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// RunStatus is the observable state of one run.
type RunStatus struct {
	ID       string    `json:"id"`
	Total    int       `json:"total"` // valid recipients
	Done     int       `json:"done"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`

	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitzero"`
	DoneAt    time.Time `json:"done_at,omitzero"`
	Running   bool      `json:"running"`

	// FatalError is set when the session became unusable mid-run. Distinct
	// from per-recipient failures: the run aborted and Outcomes only covers
	// what was actually attempted.
	FatalError string `json:"fatal_error,omitempty"`
}

// Percent reports run progress in [0,100]; monotonically non-decreasing for
// a given run.
func (st RunStatus) Percent() float64 {
	if st.Total <= 0 {
		return 0
	}
	return float64(st.Done) / float64(st.Total) * 100
}

type job struct {
	id          string
	recipients  []campaign.Recipient
	template    campaign.Template
	attachments []campaign.Attachment

	// cleanup releases run-scoped resources (staged attachment files).
	// Called exactly once on every exit path, success or not.
	cleanup func()
}

type Service struct {
	mu sync.Mutex

	cfg     Config
	session Deliverer
	pacing  *Pacing
	log     logx.Logger
	bus     eventbus.Bus

	queue  chan job
	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; closed when the
	// worker fully exits.
	stopDone chan struct{}

	statusMu  sync.RWMutex
	status    map[string]*RunStatus
	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}
