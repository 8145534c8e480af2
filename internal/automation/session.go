package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// State of the session lifecycle. Transitions are one-way except the
// Ready<->Delivering loop; Closed is terminal.
type State int32

const (
	StateUninitialized State = iota
	StateLaunching
	StateReady
	StateDelivering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateReady:
		return "ready"
	case StateDelivering:
		return "delivering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config bounds the per-step waits of a delivery.
// Zero values fall back to the original automation's bounds.
type Config struct {
	ComposerTimeout time.Duration // message box interactive (default 15s)
	AttachTimeout   time.Duration // attach control visible (default 20s)
	SendTimeout     time.Duration // post-upload send affordance (default 10s)
}

func (c *Config) setDefaults() {
	if c.ComposerTimeout <= 0 {
		c.ComposerTimeout = 15 * time.Second
	}
	if c.AttachTimeout <= 0 {
		c.AttachTimeout = 20 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
}

// Report describes the non-fatal leftovers of a successful delivery.
type Report struct {
	// AttachmentErr is non-nil when the text went out but the attachment
	// step failed. The delivery still counts as succeeded.
	AttachmentErr error
}

// Session owns the lifecycle of the one interactive browser session.
//
// Ownership model: created at startup, handed by reference to the
// dispatcher, explicitly closed at shutdown. It never recreates its browser
// context; an unrecoverable surface means the run is over.
type Session struct {
	mu      sync.Mutex
	state   State
	cfg     Config
	surface Surface
	log     logx.Logger
}

func NewSession(cfg Config, surface Surface, log logx.Logger) *Session {
	cfg.setDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Session{
		state:   StateUninitialized,
		cfg:     cfg,
		surface: surface,
		log:     log,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the browser session and navigates to the landing page.
// The session is considered ready once the page is loaded; completing the
// QR login is an out-of-band operator step the code does not observe.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateUninitialized:
		s.state = StateLaunching
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
		s.mu.Unlock()
		return nil // already launched
	}
	s.mu.Unlock()

	if err := s.surface.Open(ctx); err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return fmt.Errorf("open landing page: %w", err)
	}

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	s.log.Info("session ready; scan the login QR code in the browser window if prompted")
	return nil
}

// Deliver runs the per-recipient automation flow.
//
// A nil error means the text message was submitted (steps 1-3). A non-nil
// Report.AttachmentErr reports a degraded delivery: the attachment step
// failed after the text went out. Errors never escape as panics; the caller
// records them as that recipient's outcome.
func (s *Session) Deliver(ctx context.Context, p campaign.Payload) (Report, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return Report{}, ErrSessionClosed
	case StateDelivering:
		s.mu.Unlock()
		return Report{}, ErrSessionBusy
	case StateReady:
		s.state = StateDelivering
	default:
		s.mu.Unlock()
		return Report{}, ErrNotReady
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == StateDelivering {
			s.state = StateReady
		}
		s.mu.Unlock()
	}()

	log := s.log.With(logx.String("contact", p.ContactID))

	if err := s.surface.Compose(ctx, p.ContactID, p.Text); err != nil {
		return Report{}, fmt.Errorf("open conversation: %w", err)
	}
	if err := s.surface.AwaitReady(ctx, s.cfg.ComposerTimeout); err != nil {
		return Report{}, readinessTimeout("composer", err)
	}
	if err := s.surface.SubmitText(ctx); err != nil {
		return Report{}, fmt.Errorf("submit text: %w", err)
	}

	if p.Attachment == nil {
		return Report{}, nil
	}

	// The text is already out; from here on failures degrade the delivery
	// instead of failing it.
	if err := s.surface.AttachFile(ctx, p.Attachment.Path, s.cfg.AttachTimeout); err != nil {
		aerr := attachmentErr("upload", err)
		log.Warn("attachment upload failed; text was sent", logx.Err(aerr), logx.String("file", p.Attachment.Name))
		return Report{AttachmentErr: aerr}, nil
	}
	if err := s.surface.ConfirmSend(ctx, s.cfg.SendTimeout); err != nil {
		aerr := attachmentErr("confirm send", err)
		log.Warn("attachment send failed; text was sent", logx.Err(aerr), logx.String("file", p.Attachment.Name))
		return Report{AttachmentErr: aerr}, nil
	}
	return Report{}, nil
}

// Close releases the browser context. Idempotent; after Close every Deliver
// fails with ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.log.Info("closing session")
	return s.surface.Close(ctx)
}
