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

// tickerMoney builds an amount in the declared currency of a ticker.
func tickerMoney(ticker string, amount float64) (cartera.Money, error) {
	market, err := DecodeMarket()
	if err != nil {
		return cartera.Money{}, err
	}
	sec, ok := market.Get(ticker)
	if !ok {
		return cartera.Money{}, fmt.Errorf("unknown ticker %q, declare it first (see 'declare')", ticker)
	}
	return cartera.M(amount, sec.Currency()), nil
}

// appendToLedger validates a mutation against the full ledger and rewrites
// the file in canonical form.
func appendToLedger(mutate func(l *cartera.Ledger) error) subcommands.ExitStatus {
	ledger, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := mutate(ledger); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := EncodeLedger(ledger); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	invalidateEvolution()
	fmt.Printf("Successfully recorded in %s\n", *ledgerFile)
	return subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct {
	date     string
	ticker   string
	quantity float64
	amount   float64
	origin   string
	memo     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase units to open or add to a position" }
func (*buyCmd) Usage() string {
	return `buy -s <ticker> -q <quantity> -a <amount> [-d <date>] [-o <origin>] [-m <memo>]

  Purchases units of a security. The amount is the total paid, in the
  security's own currency. The origin tells fresh cash apart from
  reinvested gains.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of units")
	f.Float64Var(&c.amount, "a", 0, "Total amount paid, in the security's currency")
	f.StringVar(&c.origin, "o", "fresh-cash", "Capital origin (fresh-cash, reinvestment)")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.quantity <= 0 || c.amount <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	origin, err := cartera.ParseCapitalOrigin(c.origin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	amount, err := tickerMoney(c.ticker, c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	tx := cartera.NewBuy(day, c.ticker, cartera.Q(c.quantity), amount, origin)
	tx.Memo = c.memo
	return appendToLedger(func(l *cartera.Ledger) error { return l.Append(tx) })
}

// --- Sell Command ---

type sellCmd struct {
	date     string
	ticker   string
	quantity float64
	amount   float64
	memo     string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell units to trim or close a position" }
func (*sellCmd) Usage() string {
	return `sell -s <ticker> -q <quantity> -a <amount> [-d <date>] [-m <memo>]

  Sells units of a security. The amount is the total received, in the
  security's own currency. The realized gain against the average cost is
  computed and recorded with the transaction.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&c.ticker, "s", "", "Security ticker")
	f.Float64Var(&c.quantity, "q", 0, "Number of units")
	f.Float64Var(&c.amount, "a", 0, "Total amount received, in the security's currency")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.quantity <= 0 || c.amount <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := tickerMoney(c.ticker, c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	tx := cartera.NewSell(day, c.ticker, cartera.Q(c.quantity), amount)
	tx.Memo = c.memo
	return appendToLedger(func(l *cartera.Ledger) error { return l.Append(tx) })
}

// --- Dividend Command ---

type dividendCmd struct {
	date   string
	ticker string
	amount float64
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment for a security" }
func (*dividendCmd) Usage() string {
	return `dividend -s <ticker> -a <amount> [-d <date>]

  Records a dividend payment, in the security's own currency. Dividends
  count as realized return and never touch the cost basis.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", today().String(), "Payment date (YYYY-MM-DD)")
	f.StringVar(&c.ticker, "s", "", "Security ticker receiving the dividend")
	f.Float64Var(&c.amount, "a", 0, "Total dividend amount received")
}

func (c *dividendCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" || c.amount <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := tickerMoney(c.ticker, c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	div := cartera.NewDividend(day, c.ticker, amount)
	return appendToLedger(func(l *cartera.Ledger) error { return l.AppendDividend(div) })
}
