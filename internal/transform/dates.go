package transform

import (
	"strings"
	"time"
)

// canonicalDate is the single form date columns are re-emitted in.
const canonicalDate = "2006-01-02"

// dateLayouts are the accepted input forms, tried in order.
var dateLayouts = []string{
	canonicalDate,
	"02.01.2006",
	"01/02/2006",
	"2006/01/02",
	time.RFC3339,
}

// parseDate parses a raw date string in any accepted layout and returns the
// canonical YYYY-MM-DD form.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDate), true
		}
	}
	return "", false
}
