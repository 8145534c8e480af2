package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func discardLogger() logx.Logger { return logx.Nop() }

// fakeSurface scripts per-step failures and records the call order.
type fakeSurface struct {
	calls []string

	openErr    error
	composeErr error
	readyErr   error
	submitErr  error
	attachErr  error
	confirmErr error
	closeErr   error
}

func (f *fakeSurface) Open(ctx context.Context) error {
	f.calls = append(f.calls, "open")
	return f.openErr
}

func (f *fakeSurface) Compose(ctx context.Context, contactID, text string) error {
	f.calls = append(f.calls, "compose:"+contactID)
	return f.composeErr
}

func (f *fakeSurface) AwaitReady(ctx context.Context, timeout time.Duration) error {
	f.calls = append(f.calls, "ready")
	return f.readyErr
}

func (f *fakeSurface) SubmitText(ctx context.Context) error {
	f.calls = append(f.calls, "submit")
	return f.submitErr
}

func (f *fakeSurface) AttachFile(ctx context.Context, path string, timeout time.Duration) error {
	f.calls = append(f.calls, "attach:"+path)
	return f.attachErr
}

func (f *fakeSurface) ConfirmSend(ctx context.Context, timeout time.Duration) error {
	f.calls = append(f.calls, "confirm")
	return f.confirmErr
}

func (f *fakeSurface) Close(ctx context.Context) error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func textPayload() campaign.Payload {
	return campaign.Payload{RecipientID: 1, ContactID: "+919876543210", Text: "hi"}
}

func TestSessionLifecycle(t *testing.T) {
	f := &fakeSurface{}
	s := NewSession(Config{}, f, discardLogger())

	if s.State() != StateUninitialized {
		t.Fatalf("new session state = %v", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("after start state = %v", s.State())
	}
	// second Start is a no-op
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("after close state = %v", s.State())
	}
	// Close is idempotent, Start after Close fails.
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("start after close = %v", err)
	}
}

func TestSessionStartFailureCloses(t *testing.T) {
	f := &fakeSurface{openErr: errors.New("no chrome")}
	s := NewSession(Config{}, f, discardLogger())

	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	if s.State() != StateClosed {
		t.Fatalf("failed launch must close the session, state = %v", s.State())
	}
}

func TestDeliverTextOnly(t *testing.T) {
	f := &fakeSurface{}
	s := NewSession(Config{}, f, discardLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	rep, err := s.Deliver(context.Background(), textPayload())
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if rep.AttachmentErr != nil {
		t.Fatalf("unexpected attachment error: %v", rep.AttachmentErr)
	}
	want := []string{"open", "compose:+919876543210", "ready", "submit"}
	if len(f.calls) != len(want) {
		t.Fatalf("calls = %v", f.calls)
	}
	for i, c := range want {
		if f.calls[i] != c {
			t.Fatalf("call %d = %q, want %q", i, f.calls[i], c)
		}
	}
	if s.State() != StateReady {
		t.Fatalf("session must return to ready, state = %v", s.State())
	}
}

func TestDeliverComposerTimeout(t *testing.T) {
	f := &fakeSurface{readyErr: context.DeadlineExceeded}
	s := NewSession(Config{}, f, discardLogger())
	_ = s.Start(context.Background())

	_, err := s.Deliver(context.Background(), textPayload())
	if !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("expected readiness timeout, got %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("failed delivery must not close the session, state = %v", s.State())
	}
}

func TestDeliverAttachmentFailureDegrades(t *testing.T) {
	f := &fakeSurface{attachErr: errors.New("file input never appeared")}
	s := NewSession(Config{}, f, discardLogger())
	_ = s.Start(context.Background())

	p := textPayload()
	p.Attachment = &campaign.Attachment{Name: "a.pdf", Path: "/tmp/a.pdf", Size: 1}

	rep, err := s.Deliver(context.Background(), p)
	if err != nil {
		t.Fatalf("text went out; delivery must not fail: %v", err)
	}
	if rep.AttachmentErr == nil {
		t.Fatalf("expected degraded report")
	}
	if !errors.Is(rep.AttachmentErr, ErrAttachmentUpload) {
		t.Fatalf("report error = %v", rep.AttachmentErr)
	}
}

func TestDeliverConfirmFailureDegrades(t *testing.T) {
	f := &fakeSurface{confirmErr: errors.New("send icon missing")}
	s := NewSession(Config{}, f, discardLogger())
	_ = s.Start(context.Background())

	p := textPayload()
	p.Attachment = &campaign.Attachment{Name: "a.pdf", Path: "/tmp/a.pdf", Size: 1}

	rep, err := s.Deliver(context.Background(), p)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if rep.AttachmentErr == nil {
		t.Fatalf("expected degraded report after confirm failure")
	}
}

func TestDeliverStateGuards(t *testing.T) {
	f := &fakeSurface{}
	s := NewSession(Config{}, f, discardLogger())

	if _, err := s.Deliver(context.Background(), textPayload()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("deliver before start = %v", err)
	}

	_ = s.Start(context.Background())
	_ = s.Close(context.Background())
	if _, err := s.Deliver(context.Background(), textPayload()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("deliver after close = %v", err)
	}
}
