package automation

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed means the browser session is gone for good. Fatal to
	// the remainder of a run; never retried.
	ErrSessionClosed = errors.New("automation session closed")

	// ErrSessionBusy guards the one-delivery-at-a-time invariant. Seeing it
	// means a caller other than the dispatcher invoked Deliver.
	ErrSessionBusy = errors.New("automation session busy")

	// ErrNotReady means Deliver was called before Start succeeded.
	ErrNotReady = errors.New("automation session not ready")

	// ErrReadinessTimeout means the web UI did not reach the expected
	// interactive state within the bound. Fails that recipient only.
	ErrReadinessTimeout = errors.New("readiness timeout")

	// ErrAttachmentUpload marks an attachment-step failure. It degrades a
	// delivery (the text portion already went out) without failing it.
	ErrAttachmentUpload = errors.New("attachment upload failed")
)

func readinessTimeout(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrReadinessTimeout, step, err)
}

func attachmentErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrAttachmentUpload, step, err)
}
