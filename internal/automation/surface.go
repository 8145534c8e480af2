package automation

import (
	"context"
	"time"
)

// Surface is the capability interface over the third-party interactive web
// UI. There is no formal protocol: readiness is detected by bounded waits on
// CSS-selector-identified elements, which is why every step takes a timeout.
//
// Implementations must be safe for sequential use by a single caller; they
// are not required to support concurrent calls.
type Surface interface {
	// Open navigates to the application landing page. Called once at
	// session start; the operator may still need to scan a login QR code
	// before the first real delivery succeeds.
	Open(ctx context.Context) error

	// Compose navigates to the conversation for contactID with text
	// pre-filled in the message box.
	Compose(ctx context.Context, contactID, text string) error

	// AwaitReady blocks until the message-composition surface is
	// interactive, or the timeout elapses.
	AwaitReady(ctx context.Context, timeout time.Duration) error

	// SubmitText sends the pre-filled message (the "press Enter" step).
	SubmitText(ctx context.Context) error

	// AttachFile opens the attachment control and uploads the file at path.
	AttachFile(ctx context.Context, path string, timeout time.Duration) error

	// ConfirmSend triggers the send affordance that appears after an upload.
	ConfirmSend(ctx context.Context, timeout time.Duration) error

	// Close releases the underlying browser context. Terminal.
	Close(ctx context.Context) error
}
