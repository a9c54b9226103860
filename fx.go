package cartera

import (
	"errors"
	"fmt"
	"iter"

	"github.com/etnz/cartera/date"
)

// ErrNoFxData reports that a currency conversion was required but the
// exchange rate table is entirely empty. There is deliberately no hardcoded
// fallback rate: missing data must surface, not be masked.
var ErrNoFxData = errors.New("no USD/PEN exchange rate data")

// FxRates is the table of daily USD/PEN reference rates, expressed as soles
// per dollar (3.75 means 1 USD = 3.75 PEN). Rates follow the same
// step-function carry-forward rule as prices.
type FxRates struct {
	rates date.History
}

// NewFxRates returns an empty rate table.
func NewFxRates() *FxRates { return &FxRates{} }

// Append records the rate effective on a day, replacing any previous value
// for that day.
func (f *FxRates) Append(on Date, solesPerUSD float64) error {
	if solesPerUSD <= 0 {
		return fmt.Errorf("rate on %s must be strictly positive, got %v", on, solesPerUSD)
	}
	f.rates.Append(on, solesPerUSD)
	return nil
}

// Len returns the number of recorded rates.
func (f *FxRates) Len() int { return f.rates.Len() }

// Rates iterates over the recorded rate points in chronological order.
func (f *FxRates) Rates() iter.Seq2[Date, float64] { return f.rates.Values() }

// RateOn returns the rate effective on a date: the latest record on or
// before it. When the table starts after the date, the earliest available
// record is used instead (a rate from the period's start is better than
// refusing to value early history). Only an entirely empty table is an
// error.
func (f *FxRates) RateOn(on Date) (float64, error) {
	if rate, ok := f.rates.ValueAsOf(on); ok {
		return rate, nil
	}
	if _, rate, ok := f.rates.Earliest(); ok {
		return rate, nil
	}
	return 0, ErrNoFxData
}

// Table prebuilds a dense date-to-rate map for every day of the range, with
// the last known rate carried forward, so a daily loop never pays a lookup
// per day. It fails with ErrNoFxData when the table is empty.
func (f *FxRates) Table(r Range) (map[Date]float64, error) {
	last, err := f.RateOn(r.From)
	if err != nil {
		return nil, err
	}
	table := make(map[Date]float64)
	for on := range r.Days() {
		if rate, ok := f.rates.Get(on); ok {
			last = rate
		}
		table[on] = last
	}
	return table, nil
}

// Convert converts an amount into USD at the rate effective on a date.
// USD amounts pass through unchanged.
func (f *FxRates) Convert(amount Money, on Date) (Money, error) {
	switch amount.Currency() {
	case USD, "":
		return M(amount.Decimal(), USD), nil
	case PEN:
		rate, err := f.RateOn(on)
		if err != nil {
			return Money{}, err
		}
		return M(amount.DivFloat(rate).Decimal(), USD), nil
	default:
		return Money{}, fmt.Errorf("cannot convert %s to USD: unsupported currency", amount.Currency())
	}
}
