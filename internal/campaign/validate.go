package campaign

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks a campaign that must be rejected before dispatch.
var ErrValidation = errors.New("campaign validation failed")

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Filter returns the valid recipients in input order.
func Filter(recipients []Recipient) []Recipient {
	out := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks a campaign before it is queued.
//
// Attachment counts are strict: either none, exactly one shared file, or
// exactly one file per valid recipient. The original indexed attachments by
// recipient position and silently sent nothing once the lists diverged;
// ambiguous counts are rejected here instead.
func Validate(recipients []Recipient, t Template, atts []Attachment) error {
	valid := Filter(recipients)
	if len(valid) == 0 {
		return validationErr("no valid recipients")
	}
	if strings.TrimSpace(t.Body) == "" {
		return validationErr("message body is empty")
	}

	if len(atts) > MaxAttachments {
		return validationErr("too many attachments: %d (max %d)", len(atts), MaxAttachments)
	}
	switch {
	case len(atts) == 0, len(atts) == 1, len(atts) == len(valid):
		// ok
	default:
		return validationErr("attachment count %d matches neither 1 nor the %d valid recipients", len(atts), len(valid))
	}
	for i, a := range atts {
		if a.Size > MaxAttachmentSize {
			return validationErr("attachment %d (%s) exceeds %d bytes", i+1, a.Name, int64(MaxAttachmentSize))
		}
	}
	return nil
}

// AttachmentFor resolves the attachment for the i-th valid recipient (zero
// based), honoring the shared-vs-positional rule enforced by Validate.
func AttachmentFor(atts []Attachment, i, validCount int) *Attachment {
	switch {
	case len(atts) == 0:
		return nil
	case len(atts) == 1:
		return &atts[0]
	case len(atts) == validCount && i >= 0 && i < len(atts):
		return &atts[i]
	default:
		return nil
	}
}
