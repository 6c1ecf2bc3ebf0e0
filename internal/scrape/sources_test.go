package scrape_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/config"
	"github.com/paisa-labs/market-sync/internal/scrape"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newFetcher(t *testing.T, mux *http.ServeMux) (*scrape.Fetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sources := config.Sources{
		IndexPrimaryURL:     srv.URL + "/index-primary",
		IndexSecondaryURL:   srv.URL + "/index-secondary",
		FxPrimaryURL:        srv.URL + "/fx-api",
		FxSecondaryURL:      srv.URL + "/fx-scrape",
		CommodityPrimaryURL: srv.URL + "/gold-primary",
		CommoditySecondURL:  srv.URL + "/gold-secondary",
		RegistrarBoardURL:   srv.URL + "/registrar",
		AggregatorBoardURL:  srv.URL + "/aggregator",
		QuoteURL:            srv.URL + "/quotes",
	}
	return scrape.NewFetcher(scrape.NewClient(2*time.Second), scrape.HTMLExtractor{}, sources), srv
}

func page(html string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(html))
	}
}

func TestFetchScalarFirstSourceWins(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/index-primary", page(`<table><tr><td>NEPSE Index</td><td>2,095.80</td></tr></table>`))
	mux.Handle("/index-secondary", page(`<table><tr><td>NEPSE</td><td>9,999</td></tr></table>`))
	f, _ := newFetcher(t, mux)

	v, source := scrape.FetchScalar(context.Background(), f.IndexChain(), nil, scrape.DefaultIndexLevel)
	if !v.Equal(d(2095.80)) {
		t.Errorf("value = %s, want 2095.8", v)
	}
	if source != "index-primary" {
		t.Errorf("source = %s, want index-primary", source)
	}
}

func TestFetchScalarFallsThroughToSecondary(t *testing.T) {
	mux := http.NewServeMux()
	// Primary missing entirely: 404 must not propagate.
	mux.Handle("/index-secondary", page(`<table><tr><td>NEPSE Index</td><td>2,100</td></tr></table>`))
	f, _ := newFetcher(t, mux)

	v, source := scrape.FetchScalar(context.Background(), f.IndexChain(), nil, scrape.DefaultIndexLevel)
	if !v.Equal(d(2100)) || source != "index-secondary" {
		t.Errorf("got %s from %s, want 2100 from index-secondary", v, source)
	}
}

func TestFetchScalarLastGoodBeforeDefault(t *testing.T) {
	f, _ := newFetcher(t, http.NewServeMux()) // every source 404s

	lastGood := func(context.Context) (decimal.Decimal, bool) { return d(2050), true }
	v, source := scrape.FetchScalar(context.Background(), f.IndexChain(), lastGood, scrape.DefaultIndexLevel)
	if !v.Equal(d(2050)) || source != "last-good" {
		t.Errorf("got %s from %s, want 2050 from last-good", v, source)
	}
}

// When every commodity source fails and nothing is retained, the chain
// returns the documented hardcoded default — never zero, never an error.
func TestFetchScalarAllSourcesDownUsesDefault(t *testing.T) {
	f, _ := newFetcher(t, http.NewServeMux())

	v, source := scrape.FetchScalar(context.Background(), f.CommodityChain(), nil, scrape.DefaultCommodityQuote)
	if !v.Equal(scrape.DefaultCommodityQuote) {
		t.Errorf("value = %s, want default %s", v, scrape.DefaultCommodityQuote)
	}
	if source != "default" {
		t.Errorf("source = %s, want default", source)
	}
}

func TestFxAPIPrimary(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/fx-api", page(`{"data":{"payload":[{"rates":[
		{"currency":{"iso3":"EUR"},"buy":"144.10"},
		{"currency":{"iso3":"USD"},"buy":"133.25"}]}]}}`))
	f, _ := newFetcher(t, mux)

	v, source := scrape.FetchScalar(context.Background(), f.FxChain(), nil, scrape.DefaultFxRate)
	if !v.Equal(d(133.25)) || source != "fx-primary" {
		t.Errorf("got %s from %s, want 133.25 from fx-primary", v, source)
	}
}

const registrarHTML = `<table>
	<tr><th>Company Name</th><th>Symbol</th><th>Units</th><th>Price</th><th>Opening Date</th><th>Closing Date</th><th>Status</th></tr>
	<tr><td>Alpha Hydro Ltd</td><td>ahl</td><td>1,000</td><td>100</td><td>2025-06-01</td><td>2030-06-05</td><td>Open</td></tr>
	<tr><td>Beta Finance</td><td></td><td></td><td></td><td>Coming Soon</td><td></td><td></td></tr>
</table>`

// Same data, different column order and header spellings.
const aggregatorHTML = `<table>
	<tr><th>Scrip</th><th>Issue Name</th><th>Start Date</th><th>End Date</th><th>Rate</th><th>Qty</th></tr>
	<tr><td>AHL</td><td>Alpha Hydro Ltd</td><td>2025/06/01</td><td>2030/06/05</td><td>100</td><td>1000</td></tr>
</table>`

func TestIssueRowsBothBoards(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/registrar", page(registrarHTML))
	mux.Handle("/aggregator", page(aggregatorHTML))
	f, _ := newFetcher(t, mux)

	rows := f.IssueRows(context.Background())
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (no fallback short-circuit between boards)", len(rows))
	}

	bySource := make(map[string]int)
	for _, r := range rows {
		bySource[r.SourceName]++
	}
	if bySource[scrape.SourceRegistrar] != 2 || bySource[scrape.SourceAggregator] != 1 {
		t.Errorf("rows per source = %v", bySource)
	}

	for _, r := range rows {
		if r.SourceName != scrape.SourceAggregator || r.Symbol != "AHL" {
			continue
		}
		if r.Units != 1000 || !r.PricePerUnit.Equal(d(100)) {
			t.Errorf("reordered columns misparsed: %+v", r)
		}
		if r.OpenDate == nil || r.OpenDate.Format("2006-01-02") != "2025-06-01" {
			t.Errorf("open date misparsed: %+v", r.OpenDate)
		}
	}
}

func TestIssueRowsBoardDownDoesNotBlockOthers(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/registrar", page(registrarHTML))
	// Aggregator 404s.
	f, _ := newFetcher(t, mux)

	rows := f.IssueRows(context.Background())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 from the surviving board", len(rows))
	}
}

func TestQuotes(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/quotes", page(`<table>
		<tr><th>S.N</th><th>Symbol</th><th>LTP</th></tr>
		<tr><td>1</td><td>AHL</td><td>120.50</td></tr>
		<tr><td>2</td><td>NBL</td><td>0</td></tr>
		<tr><td>3</td><td></td><td>99</td></tr>
	</table>`))
	f, _ := newFetcher(t, mux)

	quotes := f.Quotes(context.Background())
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1 (zero prices and blank symbols dropped)", len(quotes))
	}
	if !quotes["AHL"].Equal(d(120.50)) {
		t.Errorf("AHL = %s, want 120.5", quotes["AHL"])
	}
}

func TestQuotesSourceDown(t *testing.T) {
	f, _ := newFetcher(t, http.NewServeMux())
	if quotes := f.Quotes(context.Background()); len(quotes) != 0 {
		t.Errorf("got %v, want empty map", quotes)
	}
}
