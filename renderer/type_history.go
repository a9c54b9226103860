package renderer

import (
	"github.com/etnz/cartera"
)

// History is the view model of the portfolio evolution report.
type History struct {
	From, To string
	Currency string // empty for the whole portfolio
	Rows     []HistoryRow
}

// HistoryRow is one sampled day of the series, already formatted.
type HistoryRow struct {
	Date        string
	Invested    string
	Value       string
	Return      string
	Rentability string
	Flows       string // net external flow of the day, empty when none
}

// NewHistory builds the view model from a daily series, keeping one row
// every 'sample' days plus always the last one. Sample <= 1 keeps all rows.
func NewHistory(series []cartera.DailyPoint, currency string, sample int) *History {
	h := &History{Currency: currency}
	if len(series) == 0 {
		return h
	}
	h.From = series[0].Date.String()
	h.To = series[len(series)-1].Date.String()
	if sample < 1 {
		sample = 1
	}
	for i, p := range series {
		if i%sample != 0 && i != len(series)-1 {
			continue
		}
		row := HistoryRow{
			Date:        p.Date.String(),
			Invested:    p.Invested.String(),
			Value:       p.Value.String(),
			Return:      p.Return.SignedString(),
			Rentability: p.Rentability.SignedString(),
		}
		if flow := p.Inflow.Sub(p.Outflow); !flow.IsZero() {
			row.Flows = flow.SignedString()
		}
		h.Rows = append(h.Rows, row)
	}
	return h
}
