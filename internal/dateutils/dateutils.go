// Package dateutils provides lenient date parsing for the mixed formats found
// on Turkish bank statements.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layouts commonly produced by Turkish banks and by the inference service.
const (
	LayoutISO     = "2006-01-02"
	LayoutTurkish = "02.01.2006"
	LayoutFull    = "2006-01-02 15:04:05"
)

// statementFormats lists the formats tried in order when parsing. Turkish
// day-first formats come before ambiguous US-style ones.
var statementFormats = []string{
	LayoutTurkish,
	LayoutISO,
	"02/01/2006",
	"02-01-2006",
	"2.1.2006",
	LayoutFull,
	"02.01.2006 15:04:05",
	"02/01/2006 15:04:05",
	"02.01.2006 15:04",
	"02/01/2006 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2 January 2006",
	"02 Jan 2006",
	"Jan 02, 2006",
	"January 2, 2006",
	"01/2006",
	"2006/01",
}

var spaceRe = regexp.MustCompile(`\s+`)

// Clean trims and collapses whitespace in a date string.
func Clean(dateStr string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// Parse attempts to parse a statement date string using the known formats.
func Parse(dateStr string) (time.Time, error) {
	cleaned := Clean(dateStr)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	for _, format := range statementFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// NormalizeISO re-parses a date string and rewrites it to YYYY-MM-DD. When the
// string cannot be parsed it is returned unchanged, with ok=false; callers
// keep the original representation rather than nulling it out.
func NormalizeISO(dateStr string) (string, bool) {
	t, err := Parse(dateStr)
	if err != nil {
		return dateStr, false
	}
	return t.Format(LayoutISO), true
}

// ToISO formats a time as YYYY-MM-DD, or returns "" for the zero time.
func ToISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(LayoutISO)
}
