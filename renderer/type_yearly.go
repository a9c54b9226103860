package renderer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/cartera"
)

// Yearly is the view model of the annual performance report, most recent
// year first.
type Yearly struct {
	Rows []YearlyRow
}

// YearlyRow is one calendar year, already formatted.
type YearlyRow struct {
	Year        int
	Opening     string
	NetFlow     string
	Dividends   string
	Closing     string
	Return      string
	ReturnPct   string
	MaxDrawdown string
	Organic     string
	FXImpact    string
	Benchmarks  string // "SPX +25.00%, EPU -3.10%", empty when none available
}

// NewYearly builds the view model from annual summaries.
func NewYearly(summaries []cartera.AnnualSummary) *Yearly {
	y := &Yearly{}
	for _, s := range summaries {
		row := YearlyRow{
			Year:        s.Year,
			Opening:     s.Opening.String(),
			NetFlow:     s.NetFlow().SignedString(),
			Dividends:   s.Dividends.String(),
			Closing:     s.Closing.String(),
			Return:      s.Return.SignedString(),
			ReturnPct:   s.ReturnPct.SignedString(),
			MaxDrawdown: s.MaxDrawdown.String(),
			Organic:     s.Organic.SignedString(),
			FXImpact:    s.FXImpact.SignedString(),
			Benchmarks:  formatBenchmarks(s.Benchmarks),
		}
		y.Rows = append(y.Rows, row)
	}
	return y
}

// formatBenchmarks joins the available index returns in symbol order.
func formatBenchmarks(benchmarks map[string]cartera.Percent) string {
	if len(benchmarks) == 0 {
		return ""
	}
	symbols := make([]string, 0, len(benchmarks))
	for symbol := range benchmarks {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	parts := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		parts = append(parts, fmt.Sprintf("%s %s", symbol, benchmarks[symbol].SignedString()))
	}
	return strings.Join(parts, ", ")
}
