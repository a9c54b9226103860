package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/agent"
	"github.com/etnz/cartera/date"
	"github.com/etnz/cartera/docs"
	"github.com/etnz/cartera/renderer"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }
func (*assistCmd) Usage() string {
	return `assist [<question>]

  Starts an interactive session with the portfolio assistant. It answers
  from the same reports the CLI prints; it never modifies the ledger.
  Requires a Gemini API key in the environment (GEMINI_API_KEY).
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := ""
	if f.NArg() > 0 {
		initialPrompt = strings.Join(f.Args(), " ")
	}

	ledger, market, fx, err := loadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	reports := &agent.Reports{
		AsOf: today(),
		Holding: func(on date.Date) (string, error) {
			report, err := cartera.NewHolding(ledger, market, fx, on)
			if err != nil {
				return "", err
			}
			return renderer.RenderHolding(renderer.NewHolding(report)), nil
		},
		Yearly: func() (string, error) {
			start := ledger.OldestTransactionDate()
			if start.IsZero() {
				return "The ledger is empty.", nil
			}
			series, err := cartera.BuildDailySeries(ledger, market, fx, cartera.NewRange(start, today()), cartera.SeriesOptions{})
			if err != nil {
				return "", err
			}
			return renderer.RenderYearly(renderer.NewYearly(cartera.AggregateByYear(series))), nil
		},
		Topic: docs.GetTopic,
	}

	a := agent.New(os.Stdout, os.Stdin, agent.NewAnalyst(reports))
	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
