package cartera

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/etnz/cartera/date"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

const attrOn = "on"

// marketDataFilesGlob matches the per-year price files next to the market
// definition file.
const marketDataFilesGlob = "[0-9][0-9][0-9][0-9].jsonl"

// The persistence format is JSONL, one record per line, designed to be
// human-readable and git-friendly: a ledger file holds transactions and
// dividends in chronological order, the market folder holds a definition
// file plus one price file per year, and rates and benchmarks each get a
// flat file.

// amountRec reads an amount split in two fields.
type amountRec struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountRec) Money() Money { return M(a.Amount, a.Currency) }

// EncodeTransaction marshals a single transaction and writes it as one
// JSONL line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("cannot marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("cannot write transaction: %w", err)
	}
	return nil
}

// EncodeLedger persists the ledger to a writer in JSONL format,
// transactions and dividends merged in chronological order. Encoding the
// same ledger twice produces byte-identical output.
func EncodeLedger(w io.Writer, l *Ledger) error {
	type record struct {
		on   Date
		body json.Marshaler
	}
	records := make([]record, 0, l.Len())
	for _, tx := range l.Transactions() {
		records = append(records, record{tx.Date, tx})
	}
	for _, d := range l.Dividends() {
		records = append(records, record{d.Date, d})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].on.Before(records[j].on)
	})

	for _, rec := range records {
		data, err := rec.body.MarshalJSON()
		if err != nil {
			return fmt.Errorf("cannot marshal ledger record on %s: %w", rec.on, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("cannot write ledger record: %w", err)
		}
	}
	return nil
}

// DecodeLedger reads a JSONL stream and rebuilds the ledger through the
// same validating Append path used for fresh entries, so a corrupted file
// (unknown op, oversell, bad origin) fails the load instead of producing a
// silently wrong portfolio. Realized gains are recomputed by replay; for a
// well-formed file this reproduces the persisted figures.
//
// The file does not have to be sorted: records are parsed first, put in
// chronological order (file order breaks ties), and only then replayed.
// A sell is judged against the holdings its date actually had, wherever
// its line sits in the file; the fmt command relies on this to repair an
// out-of-order ledger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	type lineTx struct {
		line int
		tx   Transaction
	}
	type lineDiv struct {
		line int
		div  DividendRecord
	}
	var txs []lineTx
	var divs []lineDiv

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		var identifier struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(raw, &identifier); err != nil {
			return nil, fmt.Errorf("ledger line %d: not a valid record: %w", line, err)
		}

		switch identifier.Op {
		case string(KindBuy), string(KindSell):
			var temp struct {
				Op       string   `json:"op"`
				Date     Date     `json:"date"`
				Ticker   string   `json:"ticker"`
				Quantity Quantity `json:"quantity"`
				amountRec
				Origin string `json:"origin"`
				Memo   string `json:"memo"`
			}
			if err := json.Unmarshal(raw, &temp); err != nil {
				return nil, fmt.Errorf("ledger line %d: %w", line, err)
			}
			kind, err := ParseOperationKind(temp.Op)
			if err != nil {
				return nil, fmt.Errorf("ledger line %d: %w", line, err)
			}
			tx := Transaction{
				Date:     temp.Date,
				Ticker:   temp.Ticker,
				Kind:     kind,
				Quantity: temp.Quantity,
				Amount:   temp.Money(),
				Memo:     temp.Memo,
			}
			if kind == KindBuy {
				origin, err := ParseCapitalOrigin(temp.Origin)
				if err != nil {
					return nil, fmt.Errorf("ledger line %d: %w", line, err)
				}
				tx.Origin = origin
			}
			txs = append(txs, lineTx{line: line, tx: tx})
		case "dividend":
			var temp struct {
				Date   Date   `json:"date"`
				Ticker string `json:"ticker"`
				amountRec
				Memo string `json:"memo"`
			}
			if err := json.Unmarshal(raw, &temp); err != nil {
				return nil, fmt.Errorf("ledger line %d: %w", line, err)
			}
			divs = append(divs, lineDiv{line: line, div: DividendRecord{Date: temp.Date, Ticker: temp.Ticker, Amount: temp.Money(), Memo: temp.Memo}})
		default:
			return nil, fmt.Errorf("ledger line %d: unknown op %q", line, identifier.Op)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].tx.Date.Before(txs[j].tx.Date)
	})

	ledger := NewLedger()
	for _, rec := range txs {
		if err := ledger.Append(rec.tx); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", rec.line, err)
		}
	}
	for _, rec := range divs {
		if err := ledger.AppendDividend(rec.div); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", rec.line, err)
		}
	}
	return ledger, nil
}

// jsecurity is the persisted form of a security declaration.
type jsecurity struct {
	Ticker   string `json:"ticker"`
	Currency string `json:"currency"`
	Source   string `json:"source,omitempty"`
}

// EncodeMarket persists the market into the folder of definitionFile: the
// definition file lists the declared securities, and one "<year>.jsonl"
// file per year holds the daily prices, one line per day with a price for
// every ticker that has one. Files for years that no longer have prices
// are removed.
func EncodeMarket(definitionFile string, m *Market) error {
	folder := filepath.Dir(definitionFile)

	f, err := os.Create(definitionFile)
	if err != nil {
		return fmt.Errorf("cannot create market definition file %q: %w", definitionFile, err)
	}
	defer f.Close()

	var tickers []string
	for sec := range m.AllSecurities() {
		tickers = append(tickers, sec.Ticker())
		js := jsecurity{Ticker: sec.Ticker(), Currency: sec.Currency(), Source: m.Source(sec.Ticker())}
		data, err := json.Marshal(js)
		if err != nil {
			return fmt.Errorf("cannot marshal security %q: %w", sec.Ticker(), err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("cannot write market definition file: %w", err)
		}
	}

	// Every day that has at least one price, in order.
	daySet := make(map[Date]struct{})
	for _, ticker := range tickers {
		for on := range m.Prices(ticker) {
			daySet[on] = struct{}{}
		}
	}
	days := make([]Date, 0, len(daySet))
	for on := range daySet {
		days = append(days, on)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var currentFile *os.File
	var currentFilename string
	createdFiles := make(map[string]struct{})
	for _, on := range days {
		filename := filepath.Join(folder, fmt.Sprintf("%d.jsonl", on.Year()))
		if filename != currentFilename {
			currentFilename = filename
			currentFile, err = os.Create(filename)
			if err != nil {
				return fmt.Errorf("cannot create market data file %q: %w", filename, err)
			}
			createdFiles[filename] = struct{}{}
			defer currentFile.Close()
		}

		var jw jsonObjectWriter
		jw.Append(attrOn, on.String())
		for _, ticker := range tickers {
			if price, ok := m.PriceOn(ticker, on); ok {
				jw.Append(ticker, price)
			}
		}
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := currentFile.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("write error on %q: %w", currentFilename, err)
		}
	}

	// Remove year files that were not regenerated.
	filenames, err := filepath.Glob(filepath.Join(folder, marketDataFilesGlob))
	if err != nil {
		return fmt.Errorf("cannot scan folder %q: %w", folder, err)
	}
	for _, filename := range filenames {
		if _, ok := createdFiles[filename]; ok {
			continue
		}
		if err := os.Remove(filename); err != nil {
			return fmt.Errorf("cannot delete stale file %q: %w", filename, err)
		}
	}
	return nil
}

// DecodeMarket reads the market definition file and the per-year price
// files next to it. A missing definition file yields an empty market.
func DecodeMarket(definitionFile string) (*Market, error) {
	m := NewMarket()
	f, err := os.Open(definitionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("cannot open market definition file %q: %w", definitionFile, err)
	}
	defer f.Close()

	sources := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var js jsecurity
		if err := json.Unmarshal(raw, &js); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", definitionFile, line, err)
		}
		sec, err := NewSecurity(js.Ticker, js.Currency)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", definitionFile, line, err)
		}
		if err := m.Declare(sec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", definitionFile, line, err)
		}
		if js.Source != "" {
			if err := m.SetSource(js.Ticker, js.Source); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", definitionFile, line, err)
			}
		}
		sources[js.Ticker] = js.Source
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %q: %w", definitionFile, err)
	}

	folder := filepath.Dir(definitionFile)
	filenames, err := filepath.Glob(filepath.Join(folder, marketDataFilesGlob))
	if err != nil {
		return nil, fmt.Errorf("cannot scan folder %q: %w", folder, err)
	}
	for _, filename := range filenames {
		if err := decodePriceFile(m, sources, filename); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodePriceFile(m *Market, sources map[string]string, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", filename, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		jobj := make(map[string]any)
		if err := json.Unmarshal([]byte(txt), &jobj); err != nil {
			return fmt.Errorf("%s:%d: not a valid json line: %w", filename, line, err)
		}
		jvalue, ok := jobj[attrOn]
		if !ok {
			return fmt.Errorf("%s:%d: missing the property %q", filename, line, attrOn)
		}
		jstring, ok := jvalue.(string)
		if !ok {
			return fmt.Errorf("%s:%d: property %q must be a string", filename, line, attrOn)
		}
		on, err := date.Parse(jstring)
		if err != nil {
			return fmt.Errorf("%s:%d: property %q must be a valid date: %w", filename, line, attrOn, err)
		}
		for ticker, price := range jobj {
			if ticker == attrOn {
				continue
			}
			p, ok := price.(float64)
			if !ok {
				return fmt.Errorf("%s:%d: price of %q must be a number", filename, line, ticker)
			}
			if err := m.Append(ticker, on, p, sources[ticker]); err != nil {
				return fmt.Errorf("%s:%d: %w", filename, line, err)
			}
		}
	}
	return scanner.Err()
}

// EncodeFxRates persists the rate table, one {"on", "rate"} line per day.
func EncodeFxRates(w io.Writer, fx *FxRates) error {
	for on, rate := range fx.Rates() {
		var jw jsonObjectWriter
		jw.Append(attrOn, on.String())
		jw.Append("rate", rate)
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("cannot write rate: %w", err)
		}
	}
	return nil
}

// DecodeFxRates reads a JSONL stream of {"on", "rate"} lines.
func DecodeFxRates(r io.Reader) (*FxRates, error) {
	fx := NewFxRates()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var temp struct {
			On   Date    `json:"on"`
			Rate float64 `json:"rate"`
		}
		if err := json.Unmarshal(raw, &temp); err != nil {
			return nil, fmt.Errorf("rates line %d: %w", line, err)
		}
		if err := fx.Append(temp.On, temp.Rate); err != nil {
			return nil, fmt.Errorf("rates line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading rates: %w", err)
	}
	return fx, nil
}

// EncodeDailySeries persists an evolution series, one line per day. All
// amounts are USD except penValue which is the sol sleeve at local value.
func EncodeDailySeries(w io.Writer, series []DailyPoint) error {
	for _, p := range series {
		var jw jsonObjectWriter
		jw.Append(attrOn, p.Date.String())
		jw.Append("invested", p.Invested.Decimal())
		jw.Append("value", p.Value.Decimal())
		jw.Append("return", p.Return.Decimal())
		jw.Append("rentability", float64(p.Rentability))
		jw.Append("inflow", p.Inflow.Decimal())
		jw.Append("outflow", p.Outflow.Decimal())
		jw.Append("dividends", p.Dividends.Decimal())
		jw.Append("penValue", p.PENValue.Decimal())
		jw.Append("rate", p.Rate)
		b, err := jw.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("cannot write series point: %w", err)
		}
	}
	return nil
}

// decodeSeriesLine parses one persisted series point.
func decodeSeriesLine(raw []byte) (DailyPoint, error) {
	var temp struct {
		On          Date            `json:"on"`
		Invested    decimal.Decimal `json:"invested"`
		Value       decimal.Decimal `json:"value"`
		Return      decimal.Decimal `json:"return"`
		Rentability float64         `json:"rentability"`
		Inflow      decimal.Decimal `json:"inflow"`
		Outflow     decimal.Decimal `json:"outflow"`
		Dividends   decimal.Decimal `json:"dividends"`
		PENValue    decimal.Decimal `json:"penValue"`
		Rate        float64         `json:"rate"`
	}
	if err := json.Unmarshal(raw, &temp); err != nil {
		return DailyPoint{}, err
	}
	return DailyPoint{
		Date:        temp.On,
		Invested:    M(temp.Invested, USD),
		Value:       M(temp.Value, USD),
		Return:      M(temp.Return, USD),
		Rentability: Percent(temp.Rentability),
		Inflow:      M(temp.Inflow, USD),
		Outflow:     M(temp.Outflow, USD),
		Dividends:   M(temp.Dividends, USD),
		PENValue:    M(temp.PENValue, PEN),
		Rate:        temp.Rate,
	}, nil
}

// DecodeDailySeries reads back a persisted evolution series.
func DecodeDailySeries(r io.Reader) ([]DailyPoint, error) {
	var series []DailyPoint
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		p, err := decodeSeriesLine(raw)
		if err != nil {
			return nil, fmt.Errorf("series line %d: %w", line, err)
		}
		series = append(series, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading series: %w", err)
	}
	return series, nil
}

// jevolution is the persisted header of the materialized series cache: the
// cached window and options, and the staleness clocks.
type jevolution struct {
	From          Date      `json:"from"`
	To            Date      `json:"to"`
	Currency      string    `json:"currency,omitempty"`
	InvalidatedAt time.Time `json:"invalidatedAt"`
	RebuiltAt     time.Time `json:"rebuiltAt"`
}

// EncodeEvolutionCache persists the materialized series cache: one header
// line, then one line per cached day. The header carries the staleness
// metadata, so Invalidate survives across processes.
func EncodeEvolutionCache(w io.Writer, c *EvolutionCache) error {
	header, err := json.Marshal(jevolution{
		From:          c.window.From,
		To:            c.window.To,
		Currency:      c.opts.Currency,
		InvalidatedAt: c.invalidatedAt,
		RebuiltAt:     c.rebuiltAt,
	})
	if err != nil {
		return fmt.Errorf("cannot marshal series cache header: %w", err)
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return fmt.Errorf("cannot write series cache header: %w", err)
	}
	return EncodeDailySeries(w, c.series)
}

// DecodeEvolutionCache restores a persisted series cache. The clock is
// injected as in NewEvolutionCache.
func DecodeEvolutionCache(r io.Reader, now func() time.Time) (*EvolutionCache, error) {
	c := NewEvolutionCache(now)
	scanner := bufio.NewScanner(r)
	line := 0
	headerSeen := false
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		if !headerSeen {
			var h jevolution
			if err := json.Unmarshal(raw, &h); err != nil {
				return nil, fmt.Errorf("series cache header: %w", err)
			}
			c.window = Range{From: h.From, To: h.To}
			c.opts = SeriesOptions{Currency: h.Currency}
			c.invalidatedAt = h.InvalidatedAt
			c.rebuiltAt = h.RebuiltAt
			headerSeen = true
			continue
		}
		p, err := decodeSeriesLine(raw)
		if err != nil {
			return nil, fmt.Errorf("series line %d: %w", line, err)
		}
		c.series = append(c.series, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading series cache: %w", err)
	}
	return c, nil
}

// jbenchmark is the persisted form of one cached benchmark figure.
type jbenchmark struct {
	Symbol    string    `json:"symbol"`
	Year      int       `json:"year"`
	Pct       float64   `json:"pct"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// EncodeBenchmarks persists the cached benchmark figures, sorted by symbol
// then year for stable output.
func EncodeBenchmarks(w io.Writer, b *BenchmarkCache) error {
	entries := b.Entries()
	keys := make([]benchmarkKey, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Year < keys[j].Year
	})
	for _, k := range keys {
		e := entries[k]
		data, err := json.Marshal(jbenchmark{Symbol: k.Symbol, Year: k.Year, Pct: float64(e.Pct), FetchedAt: e.FetchedAt})
		if err != nil {
			return fmt.Errorf("cannot marshal benchmark %s/%d: %w", k.Symbol, k.Year, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("cannot write benchmark: %w", err)
		}
	}
	return nil
}

// DecodeBenchmarks restores persisted benchmark figures into the cache.
func DecodeBenchmarks(r io.Reader, b *BenchmarkCache) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var temp jbenchmark
		if err := json.Unmarshal(raw, &temp); err != nil {
			return fmt.Errorf("benchmarks line %d: %w", line, err)
		}
		b.Restore(temp.Symbol, temp.Year, Percent(temp.Pct), temp.FetchedAt)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading benchmarks: %w", err)
	}
	return nil
}
