package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/date"
	"github.com/etnz/cartera/eodhd"
	"github.com/etnz/cartera/renderer"
	"github.com/google/subcommands"
)

type yearlyCmd struct {
	date       string
	benchmarks string
	eodhdKey   string
}

func (*yearlyCmd) Name() string     { return "yearly" }
func (*yearlyCmd) Synopsis() string { return "display a yearly portfolio performance report" }
func (*yearlyCmd) Usage() string {
	return `yearly [-d <date>] [-b <symbols>] [-eodhd-api-key <key>]

  Displays one row per calendar year: opening and closing values, net
  flows, return and its currency decomposition, max drawdown, and the
  return of benchmark indices over the same year. Most recent year first.
`
}

func (c *yearlyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "End date for the report (YYYY-MM-DD)")
	f.StringVar(&c.benchmarks, "b", "", "Comma-separated index symbols to compare against (e.g. 'GSPC.INDX,EPU.US')")
	f.StringVar(&c.eodhdKey, "eodhd-api-key", "", "EODHD API key for benchmark prices. Takes precedence over the "+eodhdKeyEnv+" environment variable")
}

func (c *yearlyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, market, fx, err := loadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	start := ledger.OldestTransactionDate()
	if start.IsZero() {
		fmt.Fprintln(os.Stderr, "The ledger is empty, nothing to display.")
		return subcommands.ExitSuccess
	}

	cache := DecodeEvolution()
	series, err := cache.Series(ledger, market, fx, cartera.NewRange(start, asOf), cartera.SeriesOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building series:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeEvolution(cache); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving series:", err)
		return subcommands.ExitFailure
	}
	summaries := cartera.AggregateByYear(series)

	if symbols := splitSymbols(c.benchmarks); len(symbols) > 0 {
		cache, err := c.benchmarkCache()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
		cache.Annotate(summaries, asOf, symbols...)
		if err := EncodeBenchmarks(cache); err != nil {
			fmt.Fprintln(os.Stderr, "Error saving benchmarks:", err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(renderer.RenderYearly(renderer.NewYearly(summaries)))
	return subcommands.ExitSuccess
}

// benchmarkCache builds the cache, seeded from the benchmarks file. Without
// an API key it still serves fresh cached figures.
func (c *yearlyCmd) benchmarkCache() (*cartera.BenchmarkCache, error) {
	var provider cartera.PriceHistory
	key := c.eodhdKey
	if key == "" {
		key = os.Getenv(eodhdKeyEnv)
	}
	if key != "" {
		provider = eodhd.New(key)
	}
	cache := cartera.NewBenchmarkCache(provider, time.Now)
	if err := DecodeBenchmarks(cache); err != nil {
		return nil, err
	}
	return cache, nil
}

func splitSymbols(list string) []string {
	var symbols []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
