package cmd

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

// pinFiles points the app flags at a scratch directory for the test.
func pinFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := [5]string{*ledgerFile, *marketFile, *fxFile, *benchmarksFile, *seriesFile}
	*ledgerFile = filepath.Join(dir, "ledger.jsonl")
	*marketFile = filepath.Join(dir, "market.jsonl")
	*fxFile = filepath.Join(dir, "fx.jsonl")
	*benchmarksFile = filepath.Join(dir, "benchmarks.jsonl")
	*seriesFile = filepath.Join(dir, "evolution.jsonl")
	t.Cleanup(func() {
		*ledgerFile, *marketFile, *fxFile, *benchmarksFile, *seriesFile = old[0], old[1], old[2], old[3], old[4]
	})
	return dir
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parsing flags for %s: %v", cmd.Name(), err)
	}
	return cmd.Execute(context.Background(), f)
}

func TestFmt_CanonicalizesLedger(t *testing.T) {
	pinFiles(t)

	// Declaration first, buy flows need the ticker's currency.
	if got := run(t, &declareCmd{}, "-s", "SPY.US", "-c", "USD", "-source", "eodhd"); got != subcommands.ExitSuccess {
		t.Fatalf("declare exited with %v", got)
	}

	// Out of order on disk, with a stale realized figure on the sell.
	raw := `{"op":"sell","date":"2025-03-10","ticker":"SPY.US","quantity":5,"amount":600,"currency":"USD","realized":999}
{"op":"buy","date":"2025-01-15","ticker":"SPY.US","quantity":10,"amount":1000,"currency":"USD","origin":"fresh-cash"}
`
	if err := os.WriteFile(*ledgerFile, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	if got := run(t, &fmtCmd{}); got != subcommands.ExitSuccess {
		t.Fatalf("fmt exited with %v", got)
	}

	content, err := os.ReadFile(*ledgerFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("formatted ledger has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"op":"buy"`) {
		t.Errorf("first line is not the buy: %s", lines[0])
	}
	// Realized recomputed from the average cost: 600 - 5*100.
	if !strings.Contains(lines[1], `"realized":100`) {
		t.Errorf("sell line misses the recomputed realized gain: %s", lines[1])
	}
}

func TestFmt_RejectsOversoldLedger(t *testing.T) {
	pinFiles(t)

	raw := `{"op":"sell","date":"2025-03-10","ticker":"SPY.US","quantity":5,"amount":600,"currency":"USD"}
`
	if err := os.WriteFile(*ledgerFile, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	if got := run(t, &fmtCmd{}); got != subcommands.ExitFailure {
		t.Fatalf("fmt exited with %v, want failure", got)
	}
	// The broken file is left as is.
	content, err := os.ReadFile(*ledgerFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != raw {
		t.Error("fmt rewrote a ledger that does not validate")
	}
}

func TestBuySellCommands_RoundTrip(t *testing.T) {
	pinFiles(t)

	if got := run(t, &declareCmd{}, "-s", "CREDITC1", "-c", "PEN"); got != subcommands.ExitSuccess {
		t.Fatalf("declare exited with %v", got)
	}
	if got := run(t, &buyCmd{}, "-s", "CREDITC1", "-q", "100", "-a", "375", "-d", "2025-01-15"); got != subcommands.ExitSuccess {
		t.Fatalf("buy exited with %v", got)
	}
	if got := run(t, &sellCmd{}, "-s", "CREDITC1", "-q", "40", "-a", "160", "-d", "2025-02-01"); got != subcommands.ExitSuccess {
		t.Fatalf("sell exited with %v", got)
	}
	// Selling more than held is rejected at entry.
	if got := run(t, &sellCmd{}, "-s", "CREDITC1", "-q", "100", "-a", "400", "-d", "2025-02-02"); got != subcommands.ExitFailure {
		t.Fatalf("oversell exited with %v, want failure", got)
	}

	ledger, err := DecodeLedger()
	if err != nil {
		t.Fatal(err)
	}
	if ledger.Len() != 2 {
		t.Fatalf("ledger has %d transactions, want 2", ledger.Len())
	}
}

func TestBuyCommand_RequiresDeclaredTicker(t *testing.T) {
	pinFiles(t)

	if got := run(t, &buyCmd{}, "-s", "UNKNOWN", "-q", "1", "-a", "10"); got != subcommands.ExitFailure {
		t.Fatalf("buy on undeclared ticker exited with %v, want failure", got)
	}
	if _, err := os.Stat(*ledgerFile); !os.IsNotExist(err) {
		t.Error("buy on undeclared ticker touched the ledger file")
	}
}
