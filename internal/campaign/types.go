package campaign

const (
	// MaxAttachments bounds the number of files accepted for one campaign.
	MaxAttachments = 5

	// MaxAttachmentSize bounds a single attachment (16 MiB, the WhatsApp
	// document limit the original UI enforces).
	MaxAttachmentSize = 16 << 20
)

// Recipient is one validated target identity for a message.
// Built once at ingestion time; immutable afterwards.
//
// ContactID is the dispatch key (a phone-number-like identifier). It is not
// guaranteed unique across a campaign; duplicates are sent independently.
type Recipient struct {
	ID          int    `json:"id"`
	DisplayName string `json:"name"`
	ContactID   string `json:"contact_id"`
	Valid       bool   `json:"valid"`
}

// Template is the message shared by every recipient of a campaign.
// Body may contain a single {{name}} token; LocationText, when non-empty,
// is appended to the body on its own line.
type Template struct {
	Body         string `json:"body"`
	LocationText string `json:"location,omitempty"`
}

// Attachment references one staged file.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Payload is the fully rendered, recipient-specific message ready to hand
// to the automation layer. Derived, never mutated after creation.
type Payload struct {
	RecipientID int
	ContactID   string
	Text        string
	Attachment  *Attachment
}
