package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableExtractor turns raw markup into column-indexed rows. All markup
// coupling lives behind this interface so sources can be exercised with
// canned rows in tests.
type TableExtractor interface {
	// Rows returns the text cells of every element matching rowSelector.
	// Malformed or unexpected markup yields nil, never an error.
	Rows(markup, rowSelector string) [][]string
}

// HTMLExtractor implements TableExtractor with goquery, which tolerates
// malformed markup the way browsers do.
type HTMLExtractor struct{}

func (HTMLExtractor) Rows(markup, rowSelector string) [][]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var rows [][]string
	doc.Find(rowSelector).Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// HeaderIndex resolves a column position by fuzzy header-name match:
// the first cell containing any keyword (case-insensitive) wins. Sources
// reorder columns between report variants, so positions are never fixed.
// Returns -1 when no header matches.
func HeaderIndex(header []string, keywords ...string) int {
	for i, cell := range header {
		name := strings.ToLower(cell)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return i
			}
		}
	}
	return -1
}

// cellAt returns row[i] or "" when the index is missing or out of range,
// so ragged rows degrade to empty fields instead of panics.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
