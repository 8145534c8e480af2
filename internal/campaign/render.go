package campaign

import "strings"

// NameToken is the single personalization placeholder supported in a
// template body.
const NameToken = "{{name}}"

// Render maps a recipient plus the campaign template and its attachment (nil
// for none) to a concrete payload.
//
// Pure, total, deterministic: the location text is appended to the raw body
// first (separated by a line break), then exactly one occurrence of the name
// token is substituted with the recipient's display name. A body without the
// token passes through unchanged.
func Render(r Recipient, t Template, att *Attachment) Payload {
	body := t.Body
	if t.LocationText != "" {
		body = body + "\n" + t.LocationText
	}
	body = strings.Replace(body, NameToken, r.DisplayName, 1)

	return Payload{
		RecipientID: r.ID,
		ContactID:   r.ContactID,
		Text:        body,
		Attachment:  att,
	}
}
