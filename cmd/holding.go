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

// loadAll reads the three data files every report needs.
func loadAll() (*cartera.Ledger, *cartera.Market, *cartera.FxRates, error) {
	ledger, err := DecodeLedger()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading ledger: %w", err)
	}
	market, err := DecodeMarket()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading market data: %w", err)
	}
	fx, err := DecodeFxRates()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading rates: %w", err)
	}
	return ledger, market, fx, nil
}

type holdingCmd struct {
	date string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display detailed holdings for a specific date" }
func (*holdingCmd) Usage() string {
	return `holding [-d <date>]

  Displays every open position on a given date: quantity, average cost,
  last known price, market value, gains and ROI, plus totals in USD.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Date for the holdings report (YYYY-MM-DD)")
}

func (c *holdingCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, market, fx, err := loadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	report, err := cartera.NewHolding(ledger, market, fx, on)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating holding report:", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.RenderHolding(renderer.NewHolding(report)))
	return subcommands.ExitSuccess
}
