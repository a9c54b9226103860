package cartera

import (
	"fmt"
	"time"

	"github.com/etnz/cartera/date"
)

// PriceHistory is the external price-history collaborator the benchmark
// cache fetches from (see the eodhd package for the real one). Best effort:
// failures degrade to "no benchmark figure", they never block a report.
type PriceHistory interface {
	History(symbol string, r Range) (*date.History, error)
}

// BenchmarkUnavailableError reports that no return figure could be computed
// for an index and year. Callers drop the figure and move on.
type BenchmarkUnavailableError struct {
	Symbol string
	Year   int
	Err    error
}

func (e *BenchmarkUnavailableError) Error() string {
	return fmt.Sprintf("no %s benchmark figure for %d: %v", e.Symbol, e.Year, e.Err)
}

func (e *BenchmarkUnavailableError) Unwrap() error { return e.Err }

// benchmarkTTL is how long a fetched figure stays fresh. Index closes do
// not change retroactively, but the current year's figure does.
const benchmarkTTL = 24 * time.Hour

// boundaryWindow is how far from a year boundary the nearest available
// price may be (markets are closed on Jan 1st).
const boundaryWindow = 15 // days

type benchmarkKey struct {
	Symbol string
	Year   int
}

type benchmarkEntry struct {
	Pct       Percent
	FetchedAt time.Time
}

// BenchmarkCache caches per-year index returns fetched from a PriceHistory
// provider. Entries expire after 24 hours. The clock is injected so tests
// control time and staleness; the cache is an explicit value handed to the
// components that need it, not a process-wide singleton.
type BenchmarkCache struct {
	provider PriceHistory
	now      func() time.Time
	entries  map[benchmarkKey]benchmarkEntry
}

// NewBenchmarkCache creates an empty cache around a provider.
func NewBenchmarkCache(provider PriceHistory, now func() time.Time) *BenchmarkCache {
	return &BenchmarkCache{
		provider: provider,
		now:      now,
		entries:  make(map[benchmarkKey]benchmarkEntry),
	}
}

// YearReturn returns the percentage return of an index over a calendar
// year. The end boundary of the current (incomplete) year is asOf, the
// same "yesterday" rule the portfolio series follows.
//
// A cached figure younger than 24h is returned as is; otherwise the
// provider is queried and the result cached. Every failure is wrapped in a
// *BenchmarkUnavailableError so callers can degrade gracefully.
func (b *BenchmarkCache) YearReturn(symbol string, year int, asOf Date) (Percent, error) {
	key := benchmarkKey{Symbol: symbol, Year: year}
	if e, ok := b.entries[key]; ok && b.now().Sub(e.FetchedAt) < benchmarkTTL {
		return e.Pct, nil
	}

	start := date.New(year, 1, 1)
	end := start.EndOfYear()
	if asOf.Before(end) {
		end = asOf
	}
	if end.Before(start) {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: fmt.Errorf("year has not started as of %s", asOf)}
	}
	if b.provider == nil {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: fmt.Errorf("no price provider configured")}
	}

	// Fetch with margin so the boundary search has data to find.
	h, err := b.provider.History(symbol, date.NewRange(start.Add(-boundaryWindow), end.Add(boundaryWindow)))
	if err != nil {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: err}
	}

	startPrice, ok := priceNear(h, start, true)
	if !ok {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: fmt.Errorf("no price near %s", start)}
	}
	endPrice, ok := priceNear(h, end, false)
	if !ok {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: fmt.Errorf("no price near %s", end)}
	}
	if startPrice == 0 {
		return 0, &BenchmarkUnavailableError{Symbol: symbol, Year: year, Err: fmt.Errorf("zero price at %s", start)}
	}

	pct := Percent(100 * (endPrice - startPrice) / startPrice)
	b.entries[key] = benchmarkEntry{Pct: pct, FetchedAt: b.now()}
	return pct, nil
}

// priceNear finds the price exactly on target, or the nearest available one
// within the boundary window. For a start boundary ties lean forward (into
// the year), for an end boundary backward.
func priceNear(h *date.History, target Date, forward bool) (float64, bool) {
	if p, ok := h.Get(target); ok {
		return p, true
	}
	for offset := 1; offset <= boundaryWindow; offset++ {
		first, second := offset, -offset
		if !forward {
			first, second = -offset, offset
		}
		if p, ok := h.Get(target.Add(first)); ok {
			return p, true
		}
		if p, ok := h.Get(target.Add(second)); ok {
			return p, true
		}
	}
	return 0, false
}

// Annotate joins benchmark figures onto annual summaries, best effort:
// unavailable figures are simply left out.
func (b *BenchmarkCache) Annotate(summaries []AnnualSummary, asOf Date, symbols ...string) {
	for i := range summaries {
		for _, symbol := range symbols {
			pct, err := b.YearReturn(symbol, summaries[i].Year, asOf)
			if err != nil {
				continue
			}
			if summaries[i].Benchmarks == nil {
				summaries[i].Benchmarks = make(map[string]Percent)
			}
			summaries[i].Benchmarks[symbol] = pct
		}
	}
}

// Entries iterates the cached figures, for persistence.
func (b *BenchmarkCache) Entries() map[benchmarkKey]benchmarkEntry {
	return b.entries
}

// Restore puts a persisted figure back into the cache.
func (b *BenchmarkCache) Restore(symbol string, year int, pct Percent, fetchedAt time.Time) {
	b.entries[benchmarkKey{Symbol: symbol, Year: year}] = benchmarkEntry{Pct: pct, FetchedAt: fetchedAt}
}
