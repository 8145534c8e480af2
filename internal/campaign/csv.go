package campaign

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DefaultContactPattern accepts E.164-style numbers with an optional leading
// plus. Deployments targeting a single country can tighten this via config
// (e.g. `^\+91\s?\d{10}$`).
const DefaultContactPattern = `^\+?[1-9]\d{7,14}$`

// ParseRecipients reads recipient rows from a CSV stream.
//
// The first row is treated as a header and skipped. Column 0 is the display
// name, column 1 the contact number; both are trimmed. Rows where both are
// empty are dropped. Rows that fail the contact pattern are kept with
// Valid=false so the caller can show them to the operator; they never reach
// dispatch.
func ParseRecipients(r io.Reader, pattern *regexp.Regexp) ([]Recipient, error) {
	if pattern == nil {
		pattern = regexp.MustCompile(DefaultContactPattern)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Recipient
	row := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		row++
		if row == 1 {
			// header
			continue
		}

		var name, number string
		if len(rec) > 0 {
			name = strings.TrimSpace(rec[0])
		}
		if len(rec) > 1 {
			number = strings.TrimSpace(rec[1])
		}
		if name == "" && number == "" {
			continue
		}

		out = append(out, Recipient{
			ID:          len(out) + 1,
			DisplayName: name,
			ContactID:   number,
			Valid:       pattern.MatchString(number),
		})
	}
	return out, nil
}
