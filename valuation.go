package cartera

// Valuation combines a replayed position with the last known price into the
// point-in-time view of one ticker. It is a pure function of its inputs.
type Valuation struct {
	Ticker         string
	Currency       string // local currency of the amounts below
	Quantity       Quantity
	CPP            Money
	Price          Money
	PriceMissing   bool // no price history at all: market value reported as zero
	Invested       Money
	MarketValue    Money
	UnrealizedGain Money
	RealizedGain   Money
	Dividends      Money
	CombinedReturn Money
	ROI            Percent
}

// Valuate computes the valuation of a position given the current price and
// the ticker's cumulative dividends.
//
// ROI relates the combined return (unrealized + realized + dividends) to the
// invested capital. For a fully closed position the invested capital is
// zero and ROI is defined as 0 rather than an error: closed positions still
// appear in reports with their realized figures, just without a meaningful
// ratio.
func Valuate(pos Position, price Money, dividends Money) Valuation {
	v := Valuation{
		Ticker:       pos.Ticker,
		Currency:     price.Currency(),
		Quantity:     pos.Quantity,
		CPP:          pos.CPP,
		Price:        price,
		Invested:     pos.Invested(),
		RealizedGain: pos.Realized,
		Dividends:    dividends,
	}
	v.MarketValue = price.Mul(pos.Quantity)
	v.UnrealizedGain = v.MarketValue.Sub(v.Invested)
	v.CombinedReturn = v.UnrealizedGain.Add(v.RealizedGain).Add(v.Dividends)
	if v.Invested.IsPositive() {
		v.ROI = Percent(100 * v.CombinedReturn.AsFloat() / v.Invested.AsFloat())
	}
	return v
}

// HoldingReport is the current state of the whole portfolio: one valuation
// per open position, plus USD totals.
type HoldingReport struct {
	Date           Date
	Valuations     []Valuation // open positions only, ticker order
	TotalInvested  Money       // USD
	TotalValue     Money       // USD
	TotalUnrealized Money      // USD
	TotalRealized  Money       // USD
	TotalDividends Money       // USD
	TotalReturn    Money       // USD
}

// NewHolding values every open position as of a date and aggregates the
// totals in USD.
//
// A ticker with holdings but no price history at all is reported with a
// zero market value and PriceMissing set, so the rest of the portfolio
// still aggregates. A missing FX rate, on the other hand, is fatal for the
// aggregate (ErrNoFxData): a silently wrong total is worse than none.
func NewHolding(l *Ledger, m *Market, fx *FxRates, on Date) (*HoldingReport, error) {
	report := &HoldingReport{Date: on}
	zero := M(0, USD)
	report.TotalInvested = zero
	report.TotalValue = zero
	report.TotalUnrealized = zero
	report.TotalRealized = zero
	report.TotalDividends = zero
	report.TotalReturn = zero

	for ticker := range l.AllTickers() {
		sec, ok := m.Get(ticker)
		if !ok {
			return nil, &UndeclaredTickerError{Ticker: ticker}
		}
		pos := l.PositionAsOf(ticker, on)
		if !pos.IsOpen() {
			continue
		}
		dividends := l.TickerDividendTotal(ticker, on)
		var price Money
		var missing bool
		if p, ok := m.PriceAsOf(ticker, on); ok {
			price = M(p, sec.Currency())
		} else {
			price = M(0, sec.Currency())
			missing = true
		}
		v := Valuate(pos, price, dividends)
		v.PriceMissing = missing
		report.Valuations = append(report.Valuations, v)

		for _, sum := range []struct {
			total *Money
			local Money
		}{
			{&report.TotalInvested, v.Invested},
			{&report.TotalValue, v.MarketValue},
			{&report.TotalUnrealized, v.UnrealizedGain},
			{&report.TotalRealized, v.RealizedGain},
			{&report.TotalDividends, v.Dividends},
			{&report.TotalReturn, v.CombinedReturn},
		} {
			converted, err := fx.Convert(sum.local, on)
			if err != nil {
				return nil, err
			}
			*sum.total = sum.total.Add(converted)
		}
	}
	return report, nil
}
