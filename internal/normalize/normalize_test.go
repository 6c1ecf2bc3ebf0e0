package normalize_test

import (
	"testing"
	"time"

	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/normalize"
)

func TestNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2,095.80", "2095.8"},
		{"Rs. 151,000 per tola", "151000"},
		{"-12.5%", "-12.5"},
		{"100", "100"},
		{"N/A", "0"},
		{"", "0"},
		{"price: 10 units: 20", "10"},
	}
	for _, c := range cases {
		if got := normalize.Number(c.in).String(); got != c.want {
			t.Errorf("Number(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestUnits(t *testing.T) {
	if got := normalize.Units("1,000 units"); got != 1000 {
		t.Errorf("Units = %d, want 1000", got)
	}
	if got := normalize.Units("ten"); got != 0 {
		t.Errorf("Units on non-numeric = %d, want 0", got)
	}
}

func TestDateFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2082-03-15", "2082-03-15"},
		{"2082/03/15", "2082-03-15"},
		{"15/3/2082", "2082-03-15"},
		{"15-3-2082", "2082-03-15"},
		{"15 March 2082", "2082-03-15"},
		{"15 March, 2082", "2082-03-15"},
	}
	for _, c := range cases {
		got, ok := normalize.Date(c.in)
		if !ok {
			t.Errorf("Date(%q) unparsed", c.in)
			continue
		}
		if got.Format("2006-01-02") != c.want {
			t.Errorf("Date(%q) = %s, want %s", c.in, got.Format("2006-01-02"), c.want)
		}
	}
}

// Two-digit day/month values under 12 are ambiguous; the day-first
// form wins by documented order.
func TestDateDayMonthBeforeMonthDay(t *testing.T) {
	got, ok := normalize.Date("03/04/2082")
	if !ok {
		t.Fatal("Date unparsed")
	}
	if want := "2082-04-03"; got.Format("2006-01-02") != want {
		t.Errorf("Date(03/04/2082) = %s, want %s", got.Format("2006-01-02"), want)
	}
}

func TestDateUnknown(t *testing.T) {
	cases := []string{
		"Coming Soon",
		"coming soon!",
		"15 Falgun, 2081", // no recognizable month name
		"TBD",
		"",
	}
	for _, in := range cases {
		if _, ok := normalize.Date(in); ok {
			t.Errorf("Date(%q) parsed, want unknown", in)
		}
	}
}

func TestSymbol(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" ahl ", "AHL"},
		{"NIC-A", "NIC-A"},
		{"n.b.l", "N.B.L"},
		{"abc (promoter)", "ABCPROMOTER"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalize.Symbol(c.in); got != c.want {
			t.Errorf("Symbol(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatusKeywords(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want model.IssueStatus
	}{
		{"Open", model.StatusOpen},
		{"CLOSED", model.StatusClosed},
		{"Closing today", model.StatusClosed},
		{"Coming Soon", model.StatusUpcoming},
	}
	for _, c := range cases {
		if got := normalize.Status(c.raw, nil, nil, today); got != c.want {
			t.Errorf("Status(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestStatusDateWindowInference(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := today.AddDate(0, 0, 7)
	lastWeek := today.AddDate(0, 0, -7)

	if got := normalize.Status("", &yesterday, &tomorrow, today); got != model.StatusOpen {
		t.Errorf("inside window = %s, want open", got)
	}
	if got := normalize.Status("", &nextWeek, nil, today); got != model.StatusUpcoming {
		t.Errorf("before open = %s, want upcoming", got)
	}
	if got := normalize.Status("", &lastWeek, &lastWeek, today); got != model.StatusClosed {
		t.Errorf("after close = %s, want closed", got)
	}
	// Boundary days are inclusive.
	if got := normalize.Status("", &today, &today, today); got != model.StatusOpen {
		t.Errorf("on boundary = %s, want open", got)
	}
	// No keyword, no dates: default upcoming.
	if got := normalize.Status("", nil, nil, today); got != model.StatusUpcoming {
		t.Errorf("no signal = %s, want upcoming", got)
	}
}
