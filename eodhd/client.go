// Package eodhd queries the EODHD end-of-day API for daily closing prices.
// Responses are cached on disk for a day, so repeated report runs do not
// burn through the API quota.
package eodhd

import (
	"fmt"
	"net/http"

	"github.com/etnz/cartera"
	"github.com/etnz/cartera/date"
)

// Source is the provider tag recorded on price series fed by this package.
const Source = "eodhd"

// Client fetches end-of-day prices from eodhd.com.
type Client struct {
	apiKey string
	http   *http.Client
}

// New returns a client using the daily disk cache.
func New(apiKey string) *Client {
	return &Client{apiKey: apiKey, http: newDailyCachingClient()}
}

// eodBar is one day of the EOD endpoint's payload.
//
//	{"date": "2024-02-13", "open": 675.066, ..., "close": 668.445, ...}
type eodBar struct {
	Date  date.Date `json:"date"`
	Close float64   `json:"close"`
}

// fetch returns the raw daily bars of a symbol over a date range, bounds
// included. The symbol uses EODHD's "SYMBOL.EXCHANGE" form, e.g. "SPY.US"
// or "GSPC.INDX" for the S&P 500 index.
func (c *Client) fetch(symbol string, from, to date.Date) ([]eodBar, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/eod/%s?fmt=json&api_token=%s&from=%s&to=%s", symbol, c.apiKey, from, to)
	content := make([]eodBar, 0)
	if err := jwget(c.http, addr, &content); err != nil {
		return nil, fmt.Errorf("cannot fetch prices for %s: %w", symbol, err)
	}
	return content, nil
}

// History returns the daily closing prices of a symbol over the range.
// It implements the provider interface of the benchmark cache.
func (c *Client) History(symbol string, r cartera.Range) (*date.History, error) {
	bars, err := c.fetch(symbol, r.From, r.To)
	if err != nil {
		return nil, err
	}
	h := &date.History{}
	for _, bar := range bars {
		if bar.Close > 0 {
			h.Append(bar.Date, bar.Close)
		}
	}
	return h, nil
}

// Update pulls daily closes over the range for every declared security whose
// price series is fed by this provider, and appends them to the market. The
// ticker doubles as the EODHD symbol. Securities priced by hand (tagged
// "manual", typically local sol funds) are left alone.
func (c *Client) Update(m *cartera.Market, r cartera.Range) error {
	for sec := range m.AllSecurities() {
		if m.Source(sec.Ticker()) != Source {
			continue
		}
		bars, err := c.fetch(sec.Ticker(), r.From, r.To)
		if err != nil {
			return err
		}
		for _, bar := range bars {
			if bar.Close <= 0 {
				continue
			}
			if err := m.Append(sec.Ticker(), bar.Date, bar.Close, Source); err != nil {
				return err
			}
		}
	}
	return nil
}
