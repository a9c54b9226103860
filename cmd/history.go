package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/date"
	"github.com/etnz/cartera/renderer"
	"github.com/google/subcommands"
)

type historyCmd struct {
	start    string
	date     string
	currency string
	sample   int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the daily evolution of the portfolio" }
func (*historyCmd) Usage() string {
	return `history [-s <start_date>] [-d <end_date>] [-c <currency>] [-sample <n>]

  Displays the day-by-day evolution of invested capital, market value
  and return, all in USD. With -c only the positions trading in that
  currency are included. Long ranges are sampled down to every nth day.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "Start date (defaults to the oldest transaction)")
	f.StringVar(&c.date, "d", today().String(), "End date (YYYY-MM-DD)")
	f.StringVar(&c.currency, "c", "", "Restrict to positions trading in this currency (USD or PEN)")
	f.IntVar(&c.sample, "sample", 7, "Keep one day out of n (1 shows every day)")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.sample < 1 {
		fmt.Fprintln(os.Stderr, "Error: -sample must be at least 1.")
		return subcommands.ExitUsageError
	}
	end, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, market, fx, err := loadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	start := ledger.OldestTransactionDate()
	if c.start != "" {
		start, err = date.Parse(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if start.IsZero() {
		fmt.Fprintln(os.Stderr, "The ledger is empty, nothing to display.")
		return subcommands.ExitSuccess
	}

	// Serve from the materialized series, rebuilding only when a write
	// command stamped it stale or the window changed.
	cache := DecodeEvolution()
	series, err := cache.Series(ledger, market, fx, cartera.NewRange(start, end), cartera.SeriesOptions{Currency: c.currency})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building series:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeEvolution(cache); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving series:", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.RenderHistory(renderer.NewHistory(series, c.currency, c.sample)))
	return subcommands.ExitSuccess
}
