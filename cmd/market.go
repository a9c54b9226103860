package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/date"
	"github.com/google/subcommands"
)

// --- Declare Command ---

type declareCmd struct {
	ticker   string
	currency string
	source   string
}

func (*declareCmd) Name() string     { return "declare" }
func (*declareCmd) Synopsis() string { return "declare a security for use within the ledger" }
func (*declareCmd) Usage() string {
	return `declare -s <ticker> -c <currency> [-source <provider>]

  Declares a security and its trading currency (USD or PEN). This is
  required before recording any transaction or price for the ticker.
  Tag US-listed tickers with '-source eodhd' so 'update' pulls their
  prices; sol funds priced by hand keep the default 'manual' tag.
`
}

func (c *declareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "s", "", "Security ticker (e.g. 'SPY.US' or 'CREDITC1')")
	f.StringVar(&c.currency, "c", "", "Trading currency of the security (USD or PEN)")
	f.StringVar(&c.source, "source", "manual", "Price provider feeding this ticker (manual, eodhd)")
}

func (c *declareCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.currency == "" {
		fmt.Fprintln(os.Stderr, "Error: -s and -c flags are both required.")
		return subcommands.ExitUsageError
	}

	sec, err := cartera.NewSecurity(c.ticker, c.currency)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	market, err := DecodeMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading market data:", err)
		return subcommands.ExitFailure
	}
	if err := market.Declare(sec); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := market.SetSource(c.ticker, c.source); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeMarket(market); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving market data:", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Declared %s (%s) in %s\n", c.ticker, c.currency, *marketFile)
	return subcommands.ExitSuccess
}

// --- Price Command ---

type priceCmd struct {
	date   string
	ticker string
	price  float64
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "record a price observation for a security" }
func (*priceCmd) Usage() string {
	return `price -s <ticker> -p <price> [-d <date>]

  Records a closing price for a declared security, in its own currency.
  The price holds for valuation until a newer one is recorded.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Observation date (YYYY-MM-DD)")
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.Float64Var(&c.price, "p", 0, "Unit price, in the security's currency")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.price <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	market, err := DecodeMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading market data:", err)
		return subcommands.ExitFailure
	}
	if err := market.Append(c.ticker, on, c.price, "manual"); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeMarket(market); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving market data:", err)
		return subcommands.ExitFailure
	}

	invalidateEvolution()
	fmt.Printf("Recorded %s = %v on %s\n", c.ticker, c.price, on)
	return subcommands.ExitSuccess
}

// --- Fx Command ---

type fxCmd struct {
	date string
	rate float64
}

func (*fxCmd) Name() string     { return "fx" }
func (*fxCmd) Synopsis() string { return "record a USD/PEN reference rate" }
func (*fxCmd) Usage() string {
	return `fx -r <rate> [-d <date>]

  Records the soles-per-dollar reference rate for a day. The rate holds
  for conversion until a newer one is recorded. 'update' pulls the
  official BCRP rate instead.
`
}

func (c *fxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Rate date (YYYY-MM-DD)")
	f.Float64Var(&c.rate, "r", 0, "Soles per dollar (e.g. 3.75)")
}

func (c *fxCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.rate <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	fx, err := DecodeFxRates()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading rates:", err)
		return subcommands.ExitFailure
	}
	if err := fx.Append(on, c.rate); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeFxRates(fx); err != nil {
		fmt.Fprintln(os.Stderr, "Error saving rates:", err)
		return subcommands.ExitFailure
	}

	invalidateEvolution()
	fmt.Printf("Recorded %v PEN/USD on %s\n", c.rate, on)
	return subcommands.ExitSuccess
}
