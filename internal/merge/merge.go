// Package merge deduplicates issue rows pulled from multiple sources
// into one row per logical issue. Conflicts are resolved
// deterministically by a completeness + source-priority score, never
// surfaced as errors.
package merge

import (
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/scrape"
)

// sourcePriority ranks origins: the registrar is authoritative for the
// issues it lists, the board aggregator is second, anything unknown is
// last.
func sourcePriority(source string) int {
	switch source {
	case scrape.SourceRegistrar:
		return 3
	case scrape.SourceAggregator:
		return 2
	default:
		return 1
	}
}

// completeness awards points for each meaningfully filled field, so a
// sparse row from a high-priority source can still lose to a rich row
// from a lesser one.
func completeness(r model.IssueRow) int {
	score := 0
	if r.Symbol != "" {
		score += 2
	}
	if r.Units > 0 {
		score++
	}
	if r.PricePerUnit.IsPositive() {
		score++
	}
	if r.OpenDate != nil {
		score += 2
	}
	if r.CloseDate != nil {
		score += 2
	}
	if r.Status.Valid() {
		score += 2
	}
	return score
}

// Score is the total merge score of a row.
func Score(r model.IssueRow) int {
	return completeness(r) + sourcePriority(r.SourceName)
}

// Rows deduplicates rows by merge key. When two rows share a key, the
// one with the greater-or-equal score replaces the stored one, so the
// later-processed row wins ties. Rows with a blank key (no symbol and
// no company) are dropped. Output order is not significant.
func Rows(rows []model.IssueRow) []model.IssueRow {
	kept := make(map[string]model.IssueRow)
	scores := make(map[string]int)
	var order []string

	for _, row := range rows {
		key := row.MergeKey()
		if key == "|" {
			continue
		}
		score := Score(row)
		if prev, exists := scores[key]; exists {
			if score >= prev {
				kept[key] = row
				scores[key] = score
			}
			continue
		}
		kept[key] = row
		scores[key] = score
		order = append(order, key)
	}

	merged := make([]model.IssueRow, 0, len(kept))
	for _, key := range order {
		merged = append(merged, kept[key])
	}
	return merged
}
