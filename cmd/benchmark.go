package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cartera/date"
	"github.com/google/subcommands"
)

type benchmarkCmd struct {
	date       string
	benchmarks string
	year       int
	eodhdKey   string
	yearly     yearlyCmd
}

func (*benchmarkCmd) Name() string     { return "benchmark" }
func (*benchmarkCmd) Synopsis() string { return "fetch and display benchmark index returns per year" }
func (*benchmarkCmd) Usage() string {
	return `benchmark -b <symbols> [-y <year>] [-d <date>] [-eodhd-api-key <key>]

  Computes the calendar-year return of benchmark indices and caches the
  figures for the yearly report. Without -y, covers every year the
  ledger spans. The current year runs up to the last closed day.
`
}

func (c *benchmarkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "End boundary of the current year (YYYY-MM-DD)")
	f.StringVar(&c.benchmarks, "b", "", "Comma-separated index symbols (e.g. 'GSPC.INDX,EPU.US')")
	f.IntVar(&c.year, "y", 0, "Single year to compute (defaults to every year the ledger spans)")
	f.StringVar(&c.eodhdKey, "eodhd-api-key", "", "EODHD API key. Takes precedence over the "+eodhdKeyEnv+" environment variable")
}

func (c *benchmarkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols := splitSymbols(c.benchmarks)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "Error: the -b flag is required.")
		return subcommands.ExitUsageError
	}
	asOf, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	var years []int
	if c.year != 0 {
		years = []int{c.year}
	} else {
		ledger, err := DecodeLedger()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading ledger:", err)
			return subcommands.ExitFailure
		}
		oldest := ledger.OldestTransactionDate()
		if oldest.IsZero() {
			fmt.Fprintln(os.Stderr, "Error: empty ledger and no -y flag, no years to compute.")
			return subcommands.ExitUsageError
		}
		for y := oldest.Year(); y <= asOf.Year(); y++ {
			years = append(years, y)
		}
	}

	c.yearly.eodhdKey = c.eodhdKey
	cache, err := c.yearly.benchmarkCache()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark Returns\n\n")
	fmt.Fprintf(&b, "| Year | Symbol | Return |\n")
	fmt.Fprintf(&b, "|---:|:---|---:|\n")
	for _, year := range years {
		for _, symbol := range symbols {
			pct, err := cache.YearReturn(symbol, year, asOf)
			if err != nil {
				fmt.Fprintf(&b, "| %d | %s | n/a |\n", year, symbol)
				continue
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n", year, symbol, pct.SignedString())
		}
	}

	if err := EncodeBenchmarks(cache); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving benchmarks:", err)
		return subcommands.ExitFailure
	}

	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
