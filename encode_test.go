package cartera

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeLedger_RoundTrip(t *testing.T) {
	l := NewLedger()
	mustAppend(t, l,
		NewBuy(day(2025, time.January, 10), "SPY", Q(10), USDm(1000), FreshCash),
		NewBuy(day(2025, time.January, 15), "CREDITC1", Q(100), PENm(375), FreshCash),
		NewSell(day(2025, time.February, 1), "SPY", Q(4), USDm(480)),
		NewBuy(day(2025, time.February, 1), "GOLD", Q(2), USDm(480), Reinvestment),
	)
	if err := l.AppendDividend(NewDividend(day(2025, time.March, 1), "SPY", USDm(25))); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatalf("EncodeLedger() failed: %v", err)
	}

	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() failed: %v", err)
	}
	if decoded.Len() != l.Len() {
		t.Fatalf("decoded %d transactions, want %d", decoded.Len(), l.Len())
	}

	// The replayed state must survive the round trip, realized gains included.
	on := day(2025, time.December, 31)
	for ticker := range l.AllTickers() {
		want := l.PositionAsOf(ticker, on)
		got := decoded.PositionAsOf(ticker, on)
		if !got.Quantity.Equal(want.Quantity) || !got.CPP.Equal(want.CPP) || !got.Realized.Equal(want.Realized) {
			t.Errorf("%s position after round trip = %+v, want %+v", ticker, got, want)
		}
	}
	if got := decoded.TickerDividendTotal("SPY", on); !got.Equal(USDm(25)) {
		t.Errorf("dividend total after round trip = %s, want %s", got, USDm(25))
	}

	// Encoding is canonical: a second encode of the decoded ledger is
	// byte-identical.
	var buf1, buf2 bytes.Buffer
	if err := EncodeLedger(&buf1, l); err != nil {
		t.Fatal(err)
	}
	if err := EncodeLedger(&buf2, decoded); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Error("re-encoding the decoded ledger is not byte-identical")
	}
}

func TestDecodeLedger_RejectsCorruptInput(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{"unknown op", `{"op":"short","date":"2025-01-10","ticker":"SPY","quantity":1,"amount":100,"currency":"USD"}`},
		{"unknown origin", `{"op":"buy","date":"2025-01-10","ticker":"SPY","quantity":1,"amount":100,"currency":"USD","origin":"windfall"}`},
		{"oversell", `{"op":"sell","date":"2025-01-10","ticker":"SPY","quantity":5,"amount":500,"currency":"USD"}`},
		{"not json", `buy SPY 10`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeLedger(strings.NewReader(tc.line + "\n")); err == nil {
				t.Errorf("DecodeLedger(%s) succeeded, want error", tc.name)
			}
		})
	}
}

func TestDecodeLedger_AcceptsUnsortedInput(t *testing.T) {
	// The sell line comes first but its date is after the buy: the data is
	// consistent once sorted, so the load must succeed.
	input := `{"op":"sell","date":"2025-03-10","ticker":"SPY","quantity":5,"amount":600,"currency":"USD"}
{"op":"dividend","date":"2025-02-01","ticker":"SPY","amount":25,"currency":"USD"}
{"op":"buy","date":"2025-01-15","ticker":"SPY","quantity":10,"amount":1000,"currency":"USD","origin":"fresh-cash"}
`
	l, err := DecodeLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeLedger(unsorted) failed: %v", err)
	}

	// Replayed in date order: realized = 600 - 5*100.
	pos := l.PositionAsOf("SPY", day(2025, time.December, 31))
	if !pos.Realized.Equal(USDm(100)) {
		t.Errorf("realized after unsorted load = %s, want %s", pos.Realized, USDm(100))
	}

	// Re-encoding emits chronological order.
	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("re-encoded %d lines, want 3", len(lines))
	}
	for i, want := range []string{`"op":"buy"`, `"op":"dividend"`, `"op":"sell"`} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %s, want a %s record", i, lines[i], want)
		}
	}

	// A sell that no sort order can cover is still rejected.
	oversold := `{"op":"sell","date":"2025-01-10","ticker":"SPY","quantity":5,"amount":600,"currency":"USD"}
{"op":"buy","date":"2025-01-15","ticker":"SPY","quantity":10,"amount":1000,"currency":"USD","origin":"fresh-cash"}
`
	if _, err := DecodeLedger(strings.NewReader(oversold)); err == nil {
		t.Error("DecodeLedger(sell before any holdings) succeeded, want error")
	}
}

func TestDecodeLedger_SkipsEmptyLines(t *testing.T) {
	input := `{"op":"buy","date":"2025-01-10","ticker":"SPY","quantity":10,"amount":1000,"currency":"USD","origin":"fresh-cash"}

`
	l, err := DecodeLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeLedger() failed: %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestEncodeDecodeMarket_RoundTrip(t *testing.T) {
	m := NewMarket()
	mustDeclare(t, m, "SPY", USD)
	mustDeclare(t, m, "CREDITC1", PEN)
	if err := m.Append("SPY", day(2024, time.December, 30), 95, "eodhd"); err != nil {
		t.Fatal(err)
	}
	if err := m.Append("SPY", day(2025, time.January, 10), 100, "eodhd"); err != nil {
		t.Fatal(err)
	}
	if err := m.Append("CREDITC1", day(2025, time.January, 10), 3.75, "manual"); err != nil {
		t.Fatal(err)
	}

	folder := t.TempDir()
	definitionFile := filepath.Join(folder, "definition.jsonl")
	if err := EncodeMarket(definitionFile, m); err != nil {
		t.Fatalf("EncodeMarket() failed: %v", err)
	}

	// One price file per year next to the definition.
	for _, name := range []string{"2024.jsonl", "2025.jsonl"} {
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			t.Errorf("expected price file %s: %v", name, err)
		}
	}

	decoded, err := DecodeMarket(definitionFile)
	if err != nil {
		t.Fatalf("DecodeMarket() failed: %v", err)
	}
	sec, ok := decoded.Get("CREDITC1")
	if !ok || sec.Currency() != PEN {
		t.Fatalf("decoded CREDITC1 = %+v, %v, want PEN security", sec, ok)
	}
	if price, ok := decoded.PriceAsOf("SPY", day(2025, time.June, 1)); !ok || price != 100 {
		t.Errorf("decoded SPY price = %v, %v, want 100", price, ok)
	}
	if src := decoded.Source("SPY"); src != "eodhd" {
		t.Errorf("decoded SPY source = %q, want %q", src, "eodhd")
	}
}

func TestDecodeMarket_MissingFileIsEmpty(t *testing.T) {
	m, err := DecodeMarket(filepath.Join(t.TempDir(), "definition.jsonl"))
	if err != nil {
		t.Fatalf("DecodeMarket() failed: %v", err)
	}
	if _, ok := m.Get("SPY"); ok {
		t.Error("empty market has securities")
	}
}

func TestEncodeMarket_RemovesStaleYearFiles(t *testing.T) {
	folder := t.TempDir()
	stale := filepath.Join(folder, "1999.jsonl")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMarket()
	mustDeclare(t, m, "SPY", USD)
	if err := m.Append("SPY", day(2025, time.January, 10), 100, "manual"); err != nil {
		t.Fatal(err)
	}
	if err := EncodeMarket(filepath.Join(folder, "definition.jsonl"), m); err != nil {
		t.Fatalf("EncodeMarket() failed: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale year file survived the encode")
	}
}

func TestEncodeDecodeFxRates_RoundTrip(t *testing.T) {
	fx := setupRates(t)

	var buf bytes.Buffer
	if err := EncodeFxRates(&buf, fx); err != nil {
		t.Fatalf("EncodeFxRates() failed: %v", err)
	}
	decoded, err := DecodeFxRates(&buf)
	if err != nil {
		t.Fatalf("DecodeFxRates() failed: %v", err)
	}
	if decoded.Len() != fx.Len() {
		t.Fatalf("decoded %d rates, want %d", decoded.Len(), fx.Len())
	}
	got, err := decoded.RateOn(day(2025, time.January, 25))
	if err != nil {
		t.Fatal(err)
	}
	if got != 3.75 {
		t.Errorf("RateOn() after round trip = %v, want 3.75", got)
	}
}

func TestEncodeDecodeDailySeries_RoundTrip(t *testing.T) {
	l, m, fx := setupPortfolio(t)
	r := NewRange(day(2025, time.January, 1), day(2025, time.January, 6))
	series, err := BuildDailySeries(l, m, fx, r, SeriesOptions{})
	if err != nil {
		t.Fatalf("BuildDailySeries() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeDailySeries(&buf, series); err != nil {
		t.Fatalf("EncodeDailySeries() failed: %v", err)
	}
	decoded, err := DecodeDailySeries(&buf)
	if err != nil {
		t.Fatalf("DecodeDailySeries() failed: %v", err)
	}
	if len(decoded) != len(series) {
		t.Fatalf("decoded %d points, want %d", len(decoded), len(series))
	}
	for i, want := range series {
		got := decoded[i]
		if got.Date != want.Date ||
			!got.Invested.Equal(want.Invested) ||
			!got.Value.Equal(want.Value) ||
			!got.Return.Equal(want.Return) ||
			!got.Rentability.Equal(want.Rentability) ||
			!got.Inflow.Equal(want.Inflow) ||
			!got.Outflow.Equal(want.Outflow) ||
			!got.Dividends.Equal(want.Dividends) ||
			!got.PENValue.Equal(want.PENValue) ||
			got.Rate != want.Rate {
			t.Errorf("point %d after round trip = %+v, want %+v", i, got, want)
		}
	}
}

func TestEncodeDecodeEvolutionCache_RoundTrip(t *testing.T) {
	l, m, fx := setupPortfolio(t)
	r := NewRange(day(2025, time.January, 1), day(2025, time.March, 31))

	clock := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	src := NewEvolutionCache(func() time.Time { return clock })
	series, err := src.Series(l, m, fx, r, SeriesOptions{})
	if err != nil {
		t.Fatalf("Series() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeEvolutionCache(&buf, src); err != nil {
		t.Fatalf("EncodeEvolutionCache() failed: %v", err)
	}

	// A later process restores the cache and must trust it: same window,
	// never invalidated since the rebuild.
	later := clock.Add(24 * time.Hour)
	dst, err := DecodeEvolutionCache(&buf, func() time.Time { return later })
	if err != nil {
		t.Fatalf("DecodeEvolutionCache() failed: %v", err)
	}
	if dst.IsStale() {
		t.Error("restored cache is stale, want fresh")
	}
	if !dst.RebuiltAt().Equal(src.RebuiltAt()) {
		t.Errorf("restored RebuiltAt = %v, want %v", dst.RebuiltAt(), src.RebuiltAt())
	}
	got, err := dst.Series(l, m, fx, r, SeriesOptions{})
	if err != nil {
		t.Fatalf("Series() on restored cache failed: %v", err)
	}
	if len(got) != len(series) {
		t.Fatalf("restored %d points, want %d", len(got), len(series))
	}
	if !dst.RebuiltAt().Equal(src.RebuiltAt()) {
		t.Error("restored cache rebuilt on a fresh read, want served as is")
	}
	for i, want := range series {
		p := got[i]
		if p.Date != want.Date || !p.Invested.Equal(want.Invested) || !p.Value.Equal(want.Value) {
			t.Errorf("restored point %d = %+v, want %+v", i, p, want)
		}
	}

	// An invalidation survives the round trip too.
	src.Invalidate()
	buf.Reset()
	if err := EncodeEvolutionCache(&buf, src); err != nil {
		t.Fatalf("EncodeEvolutionCache() failed: %v", err)
	}
	stale, err := DecodeEvolutionCache(&buf, func() time.Time { return later })
	if err != nil {
		t.Fatalf("DecodeEvolutionCache() failed: %v", err)
	}
	if !stale.IsStale() {
		t.Error("restored invalidated cache is fresh, want stale")
	}
}

func TestDecodeEvolutionCache_CurrencyOptionRestored(t *testing.T) {
	l, m, fx := setupPortfolio(t)
	r := NewRange(day(2025, time.February, 1), day(2025, time.February, 2))

	clock := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	src := NewEvolutionCache(func() time.Time { return clock })
	if _, err := src.Series(l, m, fx, r, SeriesOptions{Currency: PEN}); err != nil {
		t.Fatalf("Series() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeEvolutionCache(&buf, src); err != nil {
		t.Fatalf("EncodeEvolutionCache() failed: %v", err)
	}
	dst, err := DecodeEvolutionCache(&buf, func() time.Time { return clock })
	if err != nil {
		t.Fatalf("DecodeEvolutionCache() failed: %v", err)
	}

	// Asking for a different sleeve must rebuild, not serve the cached one.
	whole, err := dst.Series(l, m, fx, r, SeriesOptions{})
	if err != nil {
		t.Fatalf("Series() failed: %v", err)
	}
	// The whole portfolio includes SPY on top of the sol sleeve's 100 USD.
	if !whole[0].Value.GreaterThan(USDm(100)) {
		t.Errorf("whole-portfolio Value = %s, want more than the cached sol sleeve", whole[0].Value)
	}
}

func TestEncodeDecodeBenchmarks_RoundTrip(t *testing.T) {
	clock := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	src := NewBenchmarkCache(nil, now)
	src.Restore("SPX", 2024, Percent(25), clock)
	src.Restore("SPX", 2023, Percent(-7.5), clock)

	var buf bytes.Buffer
	if err := EncodeBenchmarks(&buf, src); err != nil {
		t.Fatalf("EncodeBenchmarks() failed: %v", err)
	}

	// The destination cache has no provider either: a fresh cached figure
	// must be served without a fetch.
	dst := NewBenchmarkCache(nil, now)
	if err := DecodeBenchmarks(&buf, dst); err != nil {
		t.Fatalf("DecodeBenchmarks() failed: %v", err)
	}
	got, err := dst.YearReturn("SPX", 2024, day(2025, time.June, 30))
	if err != nil {
		t.Fatalf("YearReturn() after round trip failed: %v", err)
	}
	if !got.Equal(Percent(25)) {
		t.Errorf("YearReturn() after round trip = %s, want 25%%", got)
	}
}
