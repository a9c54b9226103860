package renderer

import (
	"github.com/etnz/cartera"
)

// Holding is the view model of the current-state report: one row per open
// position in its local currency, totals in the reporting currency.
type Holding struct {
	Date string
	Rows []HoldingRow

	TotalInvested   string
	TotalValue      string
	TotalUnrealized string
	TotalRealized   string
	TotalDividends  string
	TotalReturn     string
}

// HoldingRow is one open position, already formatted.
type HoldingRow struct {
	Ticker     string
	Currency   string
	Quantity   string
	CPP        string
	Price      string
	Invested   string
	Value      string
	Unrealized string
	Realized   string
	Dividends  string
	Combined   string
	ROI        string
}

// NewHolding builds the view model from a holding report.
func NewHolding(r *cartera.HoldingReport) *Holding {
	h := &Holding{
		Date:            r.Date.String(),
		TotalInvested:   r.TotalInvested.String(),
		TotalValue:      r.TotalValue.String(),
		TotalUnrealized: r.TotalUnrealized.SignedString(),
		TotalRealized:   r.TotalRealized.SignedString(),
		TotalDividends:  r.TotalDividends.String(),
		TotalReturn:     r.TotalReturn.SignedString(),
	}
	for _, v := range r.Valuations {
		row := HoldingRow{
			Ticker:     v.Ticker,
			Currency:   v.Currency,
			Quantity:   v.Quantity.String(),
			CPP:        v.CPP.String(),
			Price:      v.Price.String(),
			Invested:   v.Invested.String(),
			Value:      v.MarketValue.String(),
			Unrealized: v.UnrealizedGain.SignedString(),
			Realized:   v.RealizedGain.SignedString(),
			Dividends:  v.Dividends.String(),
			Combined:   v.CombinedReturn.SignedString(),
			ROI:        v.ROI.SignedString(),
		}
		if v.PriceMissing {
			row.Price = "n/a"
			row.Value = "n/a"
			row.Unrealized = "n/a"
		}
		h.Rows = append(h.Rows, row)
	}
	return h
}
