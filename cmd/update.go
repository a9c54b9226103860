package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/bcrp"
	"github.com/etnz/cartera/date"
	"github.com/etnz/cartera/eodhd"
	"github.com/google/subcommands"
)

const eodhdKeyEnv = "EODHD_API_KEY"

type updateCmd struct {
	start    string
	eodhdKey string
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "pull security prices from eodhd.com and the USD/PEN rate from BCRP"
}
func (*updateCmd) Usage() string {
	return `update [-s <start_date>] [-eodhd-api-key <key>]

  Pulls daily closing prices for every security tagged 'eodhd' and the
  official USD/PEN reference rate from the BCRPData API, from the start
  date (defaults to the oldest transaction) up to the last closed day.
  Responses are cached on disk for a day.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "Start of the range to pull (defaults to the oldest transaction)")
	f.StringVar(&c.eodhdKey, "eodhd-api-key", "", "EODHD API key. Takes precedence over the "+eodhdKeyEnv+" environment variable")
}

func (c *updateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading ledger:", err)
		return subcommands.ExitFailure
	}

	from := ledger.OldestTransactionDate()
	if c.start != "" {
		from, err = date.Parse(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if from.IsZero() {
		fmt.Fprintln(os.Stderr, "Error: empty ledger and no -s flag, nothing to update.")
		return subcommands.ExitUsageError
	}
	r := cartera.NewRange(from, today())

	market, err := DecodeMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading market data:", err)
		return subcommands.ExitFailure
	}

	if key := c.apiKey(); key == "" {
		log.Printf("no EODHD API key, skipping security prices (set %s or -eodhd-api-key)", eodhdKeyEnv)
	} else {
		log.Printf("pulling security prices over %s", r)
		if err := eodhd.New(key).Update(market, r); err != nil {
			fmt.Fprintln(os.Stderr, "Error updating prices:", err)
			return subcommands.ExitFailure
		}
		if err := EncodeMarket(market); err != nil {
			fmt.Fprintln(os.Stderr, "Error saving market data:", err)
			return subcommands.ExitFailure
		}
	}

	fx, err := DecodeFxRates()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading rates:", err)
		return subcommands.ExitFailure
	}
	log.Printf("pulling USD/PEN rates over %s", r)
	if err := bcrp.New().Update(fx, r); err != nil {
		fmt.Fprintln(os.Stderr, "Error updating rates:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeFxRates(fx); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving rates:", err)
		return subcommands.ExitFailure
	}

	invalidateEvolution()
	return subcommands.ExitSuccess
}

func (c *updateCmd) apiKey() string {
	if c.eodhdKey != "" {
		return c.eodhdKey
	}
	return os.Getenv(eodhdKeyEnv)
}
