package scrape

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/config"
	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/normalize"
)

// Hardcoded floors of the scalar fallback chains. Returned only when
// every live source fails and no last-good value is retained; callers
// always get a plausible number, never zero or an error.
var (
	DefaultIndexLevel     = decimal.NewFromInt(2000)
	DefaultFxRate         = decimal.RequireFromString("132.50")
	DefaultCommodityQuote = decimal.NewFromInt(150000)
)

// Source names used in logs, merge priorities and metrics labels.
const (
	SourceRegistrar  = "registrar"
	SourceAggregator = "aggregator"
)

// ScalarSource is one entry in a scalar metric's ordered fallback chain.
type ScalarSource struct {
	Name  string
	Fetch func(ctx context.Context) (decimal.Decimal, error)
}

// FetchScalar walks an ordered chain until a source returns a positive,
// well-formed value. Failures are logged per source and never
// propagated. When every live source fails it falls back to the
// retained last-good value, then to the hardcoded constant. Returns the
// value and the name of the source that produced it.
func FetchScalar(ctx context.Context, chain []ScalarSource, lastGood func(context.Context) (decimal.Decimal, bool), fallback decimal.Decimal) (decimal.Decimal, string) {
	for _, src := range chain {
		start := time.Now()
		v, err := src.Fetch(ctx)
		metrics.FetchLatency.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SourceFailures.WithLabelValues(src.Name).Inc()
			slog.Warn("scalar source failed", "source", src.Name, "err", err)
			continue
		}
		if v.IsPositive() {
			return v, src.Name
		}
		metrics.SourceFailures.WithLabelValues(src.Name).Inc()
		slog.Warn("scalar source returned non-positive value", "source", src.Name, "value", v.String())
	}

	if lastGood != nil {
		if v, ok := lastGood(ctx); ok && v.IsPositive() {
			slog.Warn("all scalar sources failed, using last-good value", "value", v.String())
			return v, "last-good"
		}
	}

	slog.Warn("all scalar sources failed and no last-good value, using default", "value", fallback.String())
	return fallback, "default"
}

// Fetcher binds the HTTP client, the table extractor and the configured
// source endpoints. One Fetcher serves the whole pipeline.
type Fetcher struct {
	client  *Client
	tables  TableExtractor
	sources config.Sources
}

// NewFetcher creates a fetcher over the configured sources.
func NewFetcher(client *Client, tables TableExtractor, sources config.Sources) *Fetcher {
	return &Fetcher{client: client, tables: tables, sources: sources}
}

// IndexChain returns the equity index fallback chain.
func (f *Fetcher) IndexChain() []ScalarSource {
	return []ScalarSource{
		{Name: "index-primary", Fetch: func(ctx context.Context) (decimal.Decimal, error) {
			return f.scrapeLabelledValue(ctx, f.sources.IndexPrimaryURL, "index-primary", "nepse", "index")
		}},
		{Name: "index-secondary", Fetch: func(ctx context.Context) (decimal.Decimal, error) {
			return f.scrapeLabelledValue(ctx, f.sources.IndexSecondaryURL, "index-secondary", "nepse", "index")
		}},
	}
}

// FxChain returns the USD exchange-rate fallback chain: the central
// bank JSON API first, then a scrape site.
func (f *Fetcher) FxChain() []ScalarSource {
	return []ScalarSource{
		{Name: "fx-primary", Fetch: f.fetchFxAPI},
		{Name: "fx-secondary", Fetch: func(ctx context.Context) (decimal.Decimal, error) {
			return f.scrapeLabelledValue(ctx, f.sources.FxSecondaryURL, "fx-secondary", "us dollar", "usd")
		}},
	}
}

// CommodityChain returns the commodity reference-price fallback chain.
func (f *Fetcher) CommodityChain() []ScalarSource {
	return []ScalarSource{
		{Name: "commodity-primary", Fetch: func(ctx context.Context) (decimal.Decimal, error) {
			return f.scrapeLabelledValue(ctx, f.sources.CommodityPrimaryURL, "commodity-primary", "fine gold", "gold")
		}},
		{Name: "commodity-secondary", Fetch: func(ctx context.Context) (decimal.Decimal, error) {
			return f.scrapeLabelledValue(ctx, f.sources.CommoditySecondURL, "commodity-secondary", "fine gold", "gold")
		}},
	}
}

// scrapeLabelledValue fetches a page and returns the first number in a
// table row whose leading cell matches one of the labels. The shared
// shape of every scrape-site scalar source.
func (f *Fetcher) scrapeLabelledValue(ctx context.Context, url, source string, labels ...string) (decimal.Decimal, error) {
	body, err := f.client.Get(ctx, url)
	if err != nil {
		return decimal.Zero, &SourceError{Source: source, Err: err}
	}
	for _, row := range f.tables.Rows(body, "table tr") {
		label := strings.ToLower(cellAt(row, 0))
		for _, want := range labels {
			if !strings.Contains(label, want) {
				continue
			}
			for _, cell := range row[1:] {
				if v := normalize.Number(cell); v.IsPositive() {
					return v, nil
				}
			}
		}
	}
	return decimal.Zero, nil
}

// nrbRates mirrors the central bank forex API response shape.
type nrbRates struct {
	Data struct {
		Payload []struct {
			Rates []struct {
				Currency struct {
					ISO3 string `json:"iso3"`
				} `json:"currency"`
				Buy string `json:"buy"`
			} `json:"rates"`
		} `json:"payload"`
	} `json:"data"`
}

func (f *Fetcher) fetchFxAPI(ctx context.Context) (decimal.Decimal, error) {
	body, err := f.client.Get(ctx, f.sources.FxPrimaryURL)
	if err != nil {
		return decimal.Zero, &SourceError{Source: "fx-primary", Err: err}
	}
	var rates nrbRates
	if err := json.Unmarshal([]byte(body), &rates); err != nil {
		return decimal.Zero, &SourceError{Source: "fx-primary", Err: err}
	}
	for _, p := range rates.Data.Payload {
		for _, r := range p.Rates {
			if strings.EqualFold(r.Currency.ISO3, "USD") {
				return normalize.Number(r.Buy), nil
			}
		}
	}
	return decimal.Zero, nil
}

// IssueRows fetches every issue board and returns all rows from all
// sources. Boards are fetched concurrently since their results are
// merged, not raced; a failed board contributes nothing and does not
// block the others.
func (f *Fetcher) IssueRows(ctx context.Context) []model.IssueRow {
	boards := []struct {
		name string
		url  string
	}{
		{SourceRegistrar, f.sources.RegistrarBoardURL},
		{SourceAggregator, f.sources.AggregatorBoardURL},
	}

	results := make([][]model.IssueRow, len(boards))
	var wg sync.WaitGroup
	for i, b := range boards {
		wg.Add(1)
		go func(i int, name, url string) {
			defer wg.Done()
			results[i] = f.fetchBoard(ctx, name, url)
		}(i, b.name, b.url)
	}
	wg.Wait()

	var rows []model.IssueRow
	for _, r := range results {
		rows = append(rows, r...)
	}
	return rows
}

// fetchBoard scrapes one issue board into normalized rows. Column
// positions are resolved by fuzzy header match because the sources
// reorder columns between report variants.
func (f *Fetcher) fetchBoard(ctx context.Context, source, url string) []model.IssueRow {
	start := time.Now()
	body, err := f.client.Get(ctx, url)
	metrics.FetchLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFailures.WithLabelValues(source).Inc()
		slog.Warn("issue board fetch failed", "source", source, "err", err)
		return nil
	}

	table := f.tables.Rows(body, "table tr")
	if len(table) < 2 {
		slog.Warn("issue board has no data rows", "source", source)
		return nil
	}
	header := table[0]

	companyCol := HeaderIndex(header, "company", "issue", "name")
	symbolCol := HeaderIndex(header, "symbol", "scrip", "ticker")
	unitsCol := HeaderIndex(header, "unit", "quantity", "qty", "kitta")
	priceCol := HeaderIndex(header, "price", "rate", "amount")
	openCol := HeaderIndex(header, "open", "start", "from")
	closeCol := HeaderIndex(header, "clos", "end", "to")
	statusCol := HeaderIndex(header, "status", "state")

	if companyCol < 0 && symbolCol < 0 {
		slog.Warn("issue board has no recognizable identity column", "source", source)
		return nil
	}

	today := time.Now().UTC()
	var rows []model.IssueRow
	for _, cells := range table[1:] {
		row := model.IssueRow{
			Symbol:       normalize.Symbol(cellAt(cells, symbolCol)),
			CompanyName:  strings.TrimSpace(cellAt(cells, companyCol)),
			Units:        normalize.Units(cellAt(cells, unitsCol)),
			PricePerUnit: normalize.Number(cellAt(cells, priceCol)),
			SourceName:   source,
		}
		if t, ok := normalize.Date(cellAt(cells, openCol)); ok {
			row.OpenDate = &t
		}
		if t, ok := normalize.Date(cellAt(cells, closeCol)); ok {
			row.CloseDate = &t
		}
		row.Status = normalize.Status(cellAt(cells, statusCol), row.OpenDate, row.CloseDate, today)
		rows = append(rows, row)
	}
	return rows
}

// Quotes fetches the live quote board and returns a symbol → last
// traded price map. Failure yields an empty map.
func (f *Fetcher) Quotes(ctx context.Context) map[string]decimal.Decimal {
	const source = "quotes"
	start := time.Now()
	body, err := f.client.Get(ctx, f.sources.QuoteURL)
	metrics.FetchLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFailures.WithLabelValues(source).Inc()
		slog.Warn("quote board fetch failed", "source", source, "err", err)
		return map[string]decimal.Decimal{}
	}

	table := f.tables.Rows(body, "table tr")
	if len(table) < 2 {
		return map[string]decimal.Decimal{}
	}
	header := table[0]
	symbolCol := HeaderIndex(header, "symbol", "scrip", "ticker")
	priceCol := HeaderIndex(header, "ltp", "last", "close", "price")
	if symbolCol < 0 || priceCol < 0 {
		slog.Warn("quote board has no recognizable columns", "source", source)
		return map[string]decimal.Decimal{}
	}

	quotes := make(map[string]decimal.Decimal)
	for _, cells := range table[1:] {
		symbol := normalize.Symbol(cellAt(cells, symbolCol))
		price := normalize.Number(cellAt(cells, priceCol))
		if symbol != "" && price.IsPositive() {
			quotes[symbol] = price
		}
	}
	return quotes
}
