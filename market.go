package cartera

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	gomoney "github.com/Rhymond/go-money"
	"github.com/etnz/cartera/date"
)

// USD is the portfolio's reporting currency.
const USD = "USD"

// PEN is the Peruvian sol, the other currency tickers trade in.
const PEN = "PEN"

// ValidateCurrency checks that a currency code is a known ISO code.
func ValidateCurrency(code string) error {
	if gomoney.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}

// UndeclaredTickerError reports a ticker present in the ledger but missing
// from the market declarations. Unlike a missing price, which degrades to a
// zero market value, this is a data integrity problem and fails the report.
type UndeclaredTickerError struct {
	Ticker string
}

func (e *UndeclaredTickerError) Error() string {
	return fmt.Sprintf("ticker %q appears in the ledger but is not declared in market data", e.Ticker)
}

// MissingPriceError reports a ticker with holdings but no usable price.
// Valuation degrades that ticker to zero instead of failing the aggregate.
type MissingPriceError struct {
	Ticker string
	On     Date
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price known for %s on or before %s", e.Ticker, e.On)
}

// Security declares a tradable ticker and its local currency.
type Security struct {
	ticker   string
	currency string
}

// NewSecurity declares a security. The currency must be a valid ISO code.
func NewSecurity(ticker, currency string) (Security, error) {
	if ticker == "" {
		return Security{}, fmt.Errorf("security has no ticker")
	}
	if err := ValidateCurrency(currency); err != nil {
		return Security{}, fmt.Errorf("security %s: %w", ticker, err)
	}
	return Security{ticker: ticker, currency: currency}, nil
}

func (s Security) Ticker() string   { return s.ticker }
func (s Security) Currency() string { return s.currency }

// Market holds the declared securities and their price histories.
// Prices follow the step-function model: the most recent known price on or
// before a date holds until a newer one appears.
type Market struct {
	index map[string]*entry
}

type entry struct {
	security Security
	prices   date.History
	source   string // tag of the provider feeding this series
}

// NewMarket returns an empty market.
func NewMarket() *Market {
	return &Market{index: make(map[string]*entry)}
}

// Declare registers a security. Redeclaring a ticker with a different
// currency is an error; an identical redeclaration is a no-op.
func (m *Market) Declare(sec Security) error {
	if e, ok := m.index[sec.ticker]; ok {
		if e.security.currency != sec.currency {
			return fmt.Errorf("ticker %s already declared in %s", sec.ticker, e.security.currency)
		}
		return nil
	}
	m.index[sec.ticker] = &entry{security: sec}
	return nil
}

// Get returns the declared security for a ticker, or false.
func (m *Market) Get(ticker string) (Security, bool) {
	e, ok := m.index[ticker]
	if !ok {
		return Security{}, false
	}
	return e.security, true
}

// Append records a price point for a declared ticker. The source tags the
// provider feeding the series ("manual", "eodhd", ...); an established tag
// is kept, so a one-off manual fix does not untag an updated series.
func (m *Market) Append(ticker string, on Date, price float64, source string) error {
	e, ok := m.index[ticker]
	if !ok {
		return fmt.Errorf("cannot record price for undeclared ticker %q", ticker)
	}
	if price <= 0 {
		return fmt.Errorf("price for %s on %s must be strictly positive, got %v", ticker, on, price)
	}
	e.prices.Append(on, price)
	if e.source == "" {
		e.source = source
	}
	return nil
}

// PriceAsOf returns the last known price for a ticker on or before a date.
func (m *Market) PriceAsOf(ticker string, on Date) (float64, bool) {
	e, ok := m.index[ticker]
	if !ok {
		return 0, false
	}
	return e.prices.ValueAsOf(on)
}

// PriceOn returns the price recorded exactly on a date, if any.
func (m *Market) PriceOn(ticker string, on Date) (float64, bool) {
	e, ok := m.index[ticker]
	if !ok {
		return 0, false
	}
	return e.prices.Get(on)
}

// Prices iterates over the recorded price points of a ticker.
func (m *Market) Prices(ticker string) iter.Seq2[Date, float64] {
	e, ok := m.index[ticker]
	if !ok {
		return func(yield func(Date, float64) bool) {}
	}
	return e.prices.Values()
}

// SetSource tags the provider that feeds a ticker's price series, so
// update runs know which securities to pull.
func (m *Market) SetSource(ticker, source string) error {
	e, ok := m.index[ticker]
	if !ok {
		return fmt.Errorf("cannot tag undeclared ticker %q", ticker)
	}
	e.source = source
	return nil
}

// Source returns the provider tag of a ticker's price series.
func (m *Market) Source(ticker string) string {
	if e, ok := m.index[ticker]; ok {
		return e.source
	}
	return ""
}

// AllSecurities iterates over declared securities in ticker order.
func (m *Market) AllSecurities() iter.Seq[Security] {
	return func(yield func(Security) bool) {
		tickers := slices.Collect(maps.Keys(m.index))
		slices.Sort(tickers)
		for _, ticker := range tickers {
			if !yield(m.index[ticker].security) {
				return
			}
		}
	}
}
