// Package cmd implements the CLI application to manage the portfolio.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/etnz/cartera"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package calls Register() and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&fmtCmd{}, "transactions")

	c.Register(&declareCmd{}, "market data")
	c.Register(&priceCmd{}, "market data")
	c.Register(&fxCmd{}, "market data")
	c.Register(&updateCmd{}, "market data")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
	c.Register(&yearlyCmd{}, "reports")
	c.Register(&benchmarkCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
	c.Register(&assistCmd{}, "help")
}

// As a CLI application it is short lived, so global flags are fine.

var ledgerFile = flag.String("ledger-file", "ledger.jsonl", "Path to the ledger file (JSONL format)")
var marketFile = flag.String("market-file", "market.jsonl", "Path to the securities definition file; yearly price files live next to it")
var fxFile = flag.String("fx-file", "fx.jsonl", "Path to the USD/PEN rates file (JSONL format)")
var benchmarksFile = flag.String("benchmarks-file", "benchmarks.jsonl", "Path to the cached benchmark figures file (JSONL format)")
var seriesFile = flag.String("series-file", "evolution.jsonl", "Path to the materialized daily series file (JSONL format)")

// today is the default reporting date: the last fully closed day.
func today() cartera.Date { return cartera.AsOf(time.Now()) }

// DecodeLedger reads the app ledger file. A missing file is an empty ledger.
func DecodeLedger() (*cartera.Ledger, error) {
	f, err := os.Open(*ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cartera.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()
	return cartera.DecodeLedger(f)
}

// EncodeLedger rewrites the app ledger file in canonical form.
func EncodeLedger(l *cartera.Ledger) error {
	f, err := os.Create(*ledgerFile)
	if err != nil {
		return fmt.Errorf("creating ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()
	return cartera.EncodeLedger(f, l)
}

// DecodeMarket reads the app securities definition and its price files.
func DecodeMarket() (*cartera.Market, error) {
	return cartera.DecodeMarket(*marketFile)
}

// EncodeMarket writes the app securities definition and its price files.
func EncodeMarket(m *cartera.Market) error {
	return cartera.EncodeMarket(*marketFile, m)
}

// DecodeFxRates reads the app rates file. A missing file is an empty table.
func DecodeFxRates() (*cartera.FxRates, error) {
	f, err := os.Open(*fxFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cartera.NewFxRates(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening rates file %q: %w", *fxFile, err)
	}
	defer f.Close()
	return cartera.DecodeFxRates(f)
}

// EncodeFxRates rewrites the app rates file.
func EncodeFxRates(fx *cartera.FxRates) error {
	f, err := os.Create(*fxFile)
	if err != nil {
		return fmt.Errorf("creating rates file %q: %w", *fxFile, err)
	}
	defer f.Close()
	return cartera.EncodeFxRates(f, fx)
}

// DecodeBenchmarks seeds a cache from the app benchmarks file. A missing
// file leaves the cache empty.
func DecodeBenchmarks(b *cartera.BenchmarkCache) error {
	f, err := os.Open(*benchmarksFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening benchmarks file %q: %w", *benchmarksFile, err)
	}
	defer f.Close()
	return cartera.DecodeBenchmarks(f, b)
}

// EncodeBenchmarks rewrites the app benchmarks file.
func EncodeBenchmarks(b *cartera.BenchmarkCache) error {
	f, err := os.Create(*benchmarksFile)
	if err != nil {
		return fmt.Errorf("creating benchmarks file %q: %w", *benchmarksFile, err)
	}
	defer f.Close()
	return cartera.EncodeBenchmarks(f, b)
}

// DecodeEvolution reads the materialized series file. A missing file is an
// empty, never-built cache; an unreadable one is discarded the same way, so
// a corrupt cache file never blocks a report.
func DecodeEvolution() *cartera.EvolutionCache {
	f, err := os.Open(*seriesFile)
	if err != nil {
		return cartera.NewEvolutionCache(time.Now)
	}
	defer f.Close()
	c, err := cartera.DecodeEvolutionCache(f, time.Now)
	if err != nil {
		log.Printf("discarding unreadable series file %q: %v", *seriesFile, err)
		return cartera.NewEvolutionCache(time.Now)
	}
	return c
}

// EncodeEvolution rewrites the materialized series file.
func EncodeEvolution(c *cartera.EvolutionCache) error {
	f, err := os.Create(*seriesFile)
	if err != nil {
		return fmt.Errorf("creating series file %q: %w", *seriesFile, err)
	}
	defer f.Close()
	return cartera.EncodeEvolutionCache(f, c)
}

// invalidateEvolution stamps the materialized series stale after a write to
// the underlying data. A missing series file is already stale and stays
// absent. Failing to stamp is only logged: the write that triggered it has
// already landed.
func invalidateEvolution() {
	if _, err := os.Stat(*seriesFile); errors.Is(err, fs.ErrNotExist) {
		return
	}
	c := DecodeEvolution()
	c.Invalidate()
	if err := EncodeEvolution(c); err != nil {
		log.Printf("cannot invalidate series file: %v", err)
	}
}
