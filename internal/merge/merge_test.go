package merge_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/merge"
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/scrape"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fullRow(source string) model.IssueRow {
	return model.IssueRow{
		Symbol:       "AHL",
		CompanyName:  "Alpha Hydro Ltd",
		Units:        10,
		PricePerUnit: decimal.NewFromInt(100),
		OpenDate:     date(2025, 6, 1),
		CloseDate:    date(2025, 6, 5),
		Status:       model.StatusOpen,
		SourceName:   source,
	}
}

func TestMergeIdempotent(t *testing.T) {
	rows := []model.IssueRow{
		fullRow(scrape.SourceRegistrar),
		fullRow(scrape.SourceAggregator),
		{CompanyName: "Beta Finance", Status: model.StatusUpcoming, SourceName: scrape.SourceAggregator},
	}

	first := merge.Rows(rows)
	second := merge.Rows(append(first, first...))

	if len(first) != 2 {
		t.Fatalf("merged %d rows, want 2", len(first))
	}
	if len(second) != len(first) {
		t.Errorf("re-merging produced %d rows, want %d", len(second), len(first))
	}
	keys := make(map[string]bool)
	for _, r := range second {
		if keys[r.MergeKey()] {
			t.Errorf("duplicate merge key %q", r.MergeKey())
		}
		keys[r.MergeKey()] = true
	}
}

func TestMergeDropsBlankIdentity(t *testing.T) {
	rows := []model.IssueRow{
		{Units: 10, PricePerUnit: decimal.NewFromInt(100), SourceName: scrape.SourceAggregator},
		fullRow(scrape.SourceRegistrar),
	}
	merged := merge.Rows(rows)
	if len(merged) != 1 {
		t.Fatalf("merged %d rows, want 1 (blank identity dropped)", len(merged))
	}
}

// Later wins on equal scores: same source, same completeness, the
// second-processed row replaces the first.
func TestMergeTieLaterWins(t *testing.T) {
	a := fullRow(scrape.SourceAggregator)
	a.PricePerUnit = decimal.NewFromInt(100)
	b := fullRow(scrape.SourceAggregator)
	b.PricePerUnit = decimal.NewFromInt(110)

	merged := merge.Rows([]model.IssueRow{a, b})
	if len(merged) != 1 {
		t.Fatalf("merged %d rows, want 1", len(merged))
	}
	if !merged[0].PricePerUnit.Equal(b.PricePerUnit) {
		t.Errorf("kept price %s, want later row's %s", merged[0].PricePerUnit, b.PricePerUnit)
	}
}

// A sparser registrar row beats a more complete unknown-source row when
// the priority delta covers the completeness gap; with exactly equal
// totals the later row wins.
func TestMergePriorityOverride(t *testing.T) {
	// Registrar: symbol (+2) + valid status (+2) = 4, priority 3 ⇒ 7.
	sparse := model.IssueRow{
		Symbol:      "AHL",
		CompanyName: "Alpha Hydro Ltd",
		Status:      model.StatusOpen,
		SourceName:  scrape.SourceRegistrar,
	}
	// Unknown source: symbol (+2) + status (+2) + open date (+2) = 6,
	// priority 1 ⇒ 7. Equal total, later input: this one is kept.
	richer := model.IssueRow{
		Symbol:      "AHL",
		CompanyName: "Alpha Hydro Ltd",
		Status:      model.StatusOpen,
		OpenDate:    date(2025, 6, 1),
		SourceName:  "forum-scrape",
	}

	if got, want := merge.Score(sparse), 7; got != want {
		t.Fatalf("Score(sparse) = %d, want %d", got, want)
	}
	if got, want := merge.Score(richer), 7; got != want {
		t.Fatalf("Score(richer) = %d, want %d", got, want)
	}

	merged := merge.Rows([]model.IssueRow{sparse, richer})
	if len(merged) != 1 {
		t.Fatalf("merged %d rows, want 1", len(merged))
	}
	if merged[0].SourceName != "forum-scrape" {
		t.Errorf("equal totals kept %s, want later row", merged[0].SourceName)
	}

	// Drop the richer row's open date: 5 + 1 = 6 < 7, so the earlier,
	// sparser registrar row survives purely on priority.
	poorer := richer
	poorer.OpenDate = nil
	poorer.Units = 5 // +1, keeps the delta at exactly the priority gap
	if got, want := merge.Score(poorer), 6; got != want {
		t.Fatalf("Score(poorer) = %d, want %d", got, want)
	}

	merged = merge.Rows([]model.IssueRow{sparse, poorer})
	if merged[0].SourceName != scrape.SourceRegistrar {
		t.Errorf("priority override kept %s, want registrar", merged[0].SourceName)
	}
}
