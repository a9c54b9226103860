package cartera

// AnnualSummary folds one calendar year of the daily series into the
// figures of the yearly performance table. Years are chained: the opening
// value of a year is the closing value of the previous one.
type AnnualSummary struct {
	Year      int
	Opening   Money // USD, closing of the previous year (0 for the first)
	Inflow    Money // USD, fresh-cash buys
	Outflow   Money // USD, sells
	Dividends Money // USD
	Closing   Money // USD, last available day's market value
	// Return is recalibrated so that Closing = Opening + (Inflow-Outflow) +
	// Return holds exactly; the identity takes priority over the sum of
	// daily deltas.
	Return      Money
	ReturnPct   Percent
	MaxDrawdown Percent // most negative decline from the intra-year peak
	// Organic and FXImpact decompose Return into price performance and the
	// effect of the USD/PEN rate moving over the year. Reported only; they
	// never feed back into Return.
	Organic  Money
	FXImpact Money
	// Benchmarks maps an index symbol to its return for the year. A symbol
	// is simply absent when no figure could be obtained.
	Benchmarks map[string]Percent
}

// NetFlow returns the year's external flow, Inflow - Outflow.
func (s *AnnualSummary) NetFlow() Money { return s.Inflow.Sub(s.Outflow) }

// AggregateByYear folds a daily evolution series into calendar-year
// summaries, most recent year first. The input series is assumed dense and
// chronological (as BuildDailySeries produces it); an incomplete final year
// closes on its last available day.
func AggregateByYear(series []DailyPoint) []AnnualSummary {
	if len(series) == 0 {
		return nil
	}

	var summaries []AnnualSummary
	zero := M(0, USD)
	opening := zero

	var cur *AnnualSummary
	var openRate, peak float64
	for i := range series {
		p := &series[i]
		if cur == nil || p.Date.Year() != cur.Year {
			cur = &AnnualSummary{
				Year:      p.Date.Year(),
				Opening:   opening,
				Inflow:    zero,
				Outflow:   zero,
				Dividends: zero,
			}
			summaries = append(summaries, AnnualSummary{})
			openRate = p.Rate
			peak = 0
		}
		cur.Inflow = cur.Inflow.Add(p.Inflow)
		cur.Outflow = cur.Outflow.Add(p.Outflow)
		cur.Dividends = cur.Dividends.Add(p.Dividends)
		cur.Closing = p.Value

		// Drawdown against the running intra-year peak.
		if v := p.Value.AsFloat(); v > peak {
			peak = v
		} else if peak > 0 {
			if dd := Percent(100 * (v - peak) / peak); dd < cur.MaxDrawdown {
				cur.MaxDrawdown = dd
			}
		}

		last := i == len(series)-1
		if last || series[i+1].Date.Year() != cur.Year {
			finalizeYear(cur, openRate, p)
			summaries[len(summaries)-1] = *cur
			opening = cur.Closing
		}
	}

	// Most recent year first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	return summaries
}

// finalizeYear computes the recalibrated return and the FX decomposition
// once the year's last available day is known.
func finalizeYear(s *AnnualSummary, openRate float64, close *DailyPoint) {
	// closing = opening + netflow + return, exactly.
	s.Return = s.Closing.Sub(s.Opening).Sub(s.NetFlow())

	// The return base is the capital at work: the opening value, or for the
	// first year of a position the fresh cash put in.
	base := s.Opening.AsFloat()
	if base <= 0 {
		base = s.Inflow.AsFloat()
	}
	if base > 0 {
		s.ReturnPct = Percent(100 * s.Return.AsFloat() / base)
	}

	// FX impact: what the sol sleeve's closing value gains or loses purely
	// from the rate moving between the year's open and close.
	if openRate > 0 && close.Rate > 0 && !close.PENValue.IsZero() {
		atClose := close.PENValue.DivFloat(close.Rate)
		atOpen := close.PENValue.DivFloat(openRate)
		s.FXImpact = M(atClose.Sub(atOpen).Decimal(), USD)
	} else {
		s.FXImpact = M(0, USD)
	}
	s.Organic = s.Return.Sub(s.FXImpact)
}
