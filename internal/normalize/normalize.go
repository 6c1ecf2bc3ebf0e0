// Package normalize holds the pure field normalizers applied to scraped
// values. Every function substitutes a neutral default on bad input —
// zero, unknown date, upcoming status — and never returns an error:
// malformed source data must not abort the pipeline.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/model"
)

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// Number extracts the first numeric token from s, strips thousands
// separators and parses it. Non-numeric input yields zero.
func Number(s string) decimal.Decimal {
	token := numberPattern.FindString(s)
	if token == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Units parses a whole unit count; fractional parts are truncated.
func Units(s string) int64 {
	return Number(s).IntPart()
}

// dateFormats are tried in order. The slash/dash day-month forms come
// before month-day: sources here write D/M/Y, so "03/04/2082" is the 3rd
// of the 4th month. Two-digit values under 12 are inherently ambiguous;
// the order is fixed and documented rather than guessed per locale.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2/1/2006",
	"2-1-2006",
	"1/2/2006",
	"1-2-2006",
	"2 January 2006",
	"2 January, 2006",
}

// Date parses a scraped date in any of the supported formats. A value
// containing "coming soon" means the date is not announced yet and maps
// to unknown, not an error. Anything unparsable is likewise unknown.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(strings.ToLower(s), "coming soon") {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Symbol uppercases s and drops every character outside [A-Z0-9.-].
func Symbol(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Status classifies raw status text by keyword, falling back to the
// open/close date window relative to today. With no keyword and no
// usable window the row defaults to upcoming.
func Status(raw string, open, close *time.Time, today time.Time) model.IssueStatus {
	text := strings.ToLower(raw)
	switch {
	case strings.Contains(text, "open"):
		return model.StatusOpen
	case strings.Contains(text, "clos"):
		return model.StatusClosed
	case strings.Contains(text, "coming"), strings.Contains(text, "soon"):
		return model.StatusUpcoming
	}

	day := today.Truncate(24 * time.Hour)
	if open != nil && day.Before(open.Truncate(24*time.Hour)) {
		return model.StatusUpcoming
	}
	if close != nil && day.After(close.Truncate(24*time.Hour)) {
		return model.StatusClosed
	}
	// Inside [open, close] inclusive.
	if open != nil && close != nil {
		return model.StatusOpen
	}
	return model.StatusUpcoming
}
