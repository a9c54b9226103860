package cartera

import (
	"maps"
	"slices"
	"time"
)

// DailyPoint is one day of the portfolio evolution series: the aggregate
// invested capital and market value in USD, the day's return, and the day's
// external flows broken out. The series is dense: one point per calendar
// day, weekends and holidays included (they carry the last known prices
// forward).
type DailyPoint struct {
	Date        Date
	Invested    Money // USD, sum of CPP*quantity across tickers
	Value       Money // USD, sum of quantity*price across tickers
	Return      Money // USD, Value - Invested
	Rentability Percent
	Inflow      Money   // USD, fresh-cash buys of the day
	Outflow     Money   // USD, sells of the day
	Dividends   Money   // USD, dividends of the day
	PENValue    Money   // PEN, the sol-denominated sleeve at local value
	Rate        float64 // soles per USD applied that day (0 when unused)
}

// SeriesOptions narrows a daily series to a currency sleeve.
type SeriesOptions struct {
	// Currency restricts the series to tickers trading in that currency
	// ("USD" or "PEN"). Empty means the whole portfolio.
	Currency string
}

// BuildDailySeries replays the portfolio day by day over the range and
// returns the evolution series.
//
// The builder seeds each ticker's position from all transactions strictly
// before the window and each ticker's price from the most recent point
// strictly before the window, then advances one calendar day at a time:
// apply the day's transactions, pick up the day's price if any, value the
// holdings, convert sol amounts at the day's carried-forward rate, sum.
//
// The function is pure: same ledger, market, rates and range produce an
// identical series, so rebuilding a cached window is idempotent.
//
// A reinvestment buy updates positions exactly like a fresh-cash buy but is
// excluded from Inflow: it is money moved around inside the portfolio, not
// money put in. Sells always count into Outflow.
func BuildDailySeries(l *Ledger, m *Market, fx *FxRates, r Range, opts SeriesOptions) ([]DailyPoint, error) {
	// Select tickers, and find out whether conversion will be needed.
	type holding struct {
		pos       Position
		currency  string
		lastPrice float64
		hasPrice  bool
	}
	holdings := make(map[string]*holding)
	needFx := false
	for ticker := range l.AllTickers() {
		sec, ok := m.Get(ticker)
		if !ok {
			return nil, &UndeclaredTickerError{Ticker: ticker}
		}
		if opts.Currency != "" && sec.Currency() != opts.Currency {
			continue
		}
		if sec.Currency() != USD {
			needFx = true
		}
		h := &holding{currency: sec.Currency()}
		// Seed state as of the day before the window.
		h.pos = l.PositionAsOf(ticker, r.From.Add(-1))
		h.lastPrice, h.hasPrice = m.PriceAsOf(ticker, r.From.Add(-1))
		holdings[ticker] = h
	}

	tickers := slices.Collect(maps.Keys(holdings))
	slices.Sort(tickers)

	var rateTable map[Date]float64
	if needFx {
		var err error
		if rateTable, err = fx.Table(r); err != nil {
			return nil, err
		}
	}

	// Group the window's transactions and dividends by day, preserving the
	// ledger order within a day.
	txByDay := make(map[Date][]Transaction)
	for _, tx := range l.Transactions() {
		if _, tracked := holdings[tx.Ticker]; tracked && r.Contains(tx.Date) {
			txByDay[tx.Date] = append(txByDay[tx.Date], tx)
		}
	}
	divByDay := make(map[Date][]DividendRecord)
	for _, d := range l.Dividends() {
		if _, tracked := holdings[d.Ticker]; tracked && r.Contains(d.Date) {
			divByDay[d.Date] = append(divByDay[d.Date], d)
		}
	}

	toUSD := func(amount Money, on Date) (Money, error) {
		if amount.Currency() == PEN {
			rate := rateTable[on]
			if rate == 0 {
				return Money{}, ErrNoFxData
			}
			return M(amount.DivFloat(rate).Decimal(), USD), nil
		}
		return M(amount.Decimal(), USD), nil
	}

	series := make([]DailyPoint, 0, 366)
	for on := range r.Days() {
		point := DailyPoint{
			Date:      on,
			Invested:  M(0, USD),
			Value:     M(0, USD),
			Inflow:    M(0, USD),
			Outflow:   M(0, USD),
			Dividends: M(0, USD),
			PENValue:  M(0, PEN),
		}
		if needFx {
			point.Rate = rateTable[on]
		}

		// a. Apply the day's transactions and classify its flows.
		for _, tx := range txByDay[on] {
			holdings[tx.Ticker].pos.Apply(tx)
			flow, err := toUSD(tx.Amount, on)
			if err != nil {
				return nil, err
			}
			switch {
			case tx.Kind == KindSell:
				point.Outflow = point.Outflow.Add(flow)
			case tx.Origin == FreshCash:
				point.Inflow = point.Inflow.Add(flow)
			}
			// Reinvestment buys contribute no external flow.
		}
		for _, d := range divByDay[on] {
			amount, err := toUSD(d.Amount, on)
			if err != nil {
				return nil, err
			}
			point.Dividends = point.Dividends.Add(amount)
		}

		// b+c. Refresh prices and value each ticker's holdings.
		for _, ticker := range tickers {
			h := holdings[ticker]
			if price, ok := m.PriceOn(ticker, on); ok {
				h.lastPrice, h.hasPrice = price, true
			}
			invested := h.pos.Invested()
			var value Money
			if h.hasPrice {
				value = M(h.lastPrice, h.currency).Mul(h.pos.Quantity)
			} else {
				// No price history at all: the ticker values at zero so the
				// rest of the portfolio still aggregates.
				value = M(0, h.currency)
			}
			if h.currency == PEN {
				point.PENValue = point.PENValue.Add(value)
			}
			investedUSD, err := toUSD(invested, on)
			if err != nil {
				return nil, err
			}
			valueUSD, err := toUSD(value, on)
			if err != nil {
				return nil, err
			}
			point.Invested = point.Invested.Add(investedUSD)
			point.Value = point.Value.Add(valueUSD)
		}

		// d. Aggregate figures for the day.
		point.Return = point.Value.Sub(point.Invested)
		if point.Invested.IsPositive() {
			point.Rentability = Percent(100 * point.Return.AsFloat() / point.Invested.AsFloat())
		}
		series = append(series, point)
	}
	return series, nil
}

// EvolutionCache materializes a daily series with explicit invalidation
// metadata, cache-aside style. The cached rows are never a source of truth:
// any write to transactions, dividends, prices or rates must call
// Invalidate, and readers go through Series which checks IsStale before
// trusting the cached window and rebuilds it when needed.
type EvolutionCache struct {
	now func() time.Time

	series        []DailyPoint
	window        Range
	opts          SeriesOptions
	invalidatedAt time.Time
	rebuiltAt     time.Time
}

// NewEvolutionCache creates an empty cache. The clock is injected so tests
// can pin time.
func NewEvolutionCache(now func() time.Time) *EvolutionCache {
	return &EvolutionCache{now: now}
}

// Invalidate marks the cached series as stale. Call it after every write to
// the underlying transaction, dividend, price or rate data.
func (c *EvolutionCache) Invalidate() { c.invalidatedAt = c.now() }

// IsStale reports whether the cached rows can no longer be trusted: never
// built, or invalidated after the last rebuild.
func (c *EvolutionCache) IsStale() bool {
	return c.rebuiltAt.IsZero() || !c.rebuiltAt.After(c.invalidatedAt)
}

// Rebuild recomputes the series for the window unconditionally.
// Rebuilding is idempotent: the series is a pure function of the source
// data and the window.
func (c *EvolutionCache) Rebuild(l *Ledger, m *Market, fx *FxRates, r Range, opts SeriesOptions) error {
	series, err := BuildDailySeries(l, m, fx, r, opts)
	if err != nil {
		return err
	}
	c.series = series
	c.window = r
	c.opts = opts
	c.rebuiltAt = c.now()
	return nil
}

// Series returns the daily series for the window, rebuilding it first when
// the cache is stale or the requested window differs from the cached one.
func (c *EvolutionCache) Series(l *Ledger, m *Market, fx *FxRates, r Range, opts SeriesOptions) ([]DailyPoint, error) {
	if c.IsStale() || c.window != r || c.opts != opts {
		if err := c.Rebuild(l, m, fx, r, opts); err != nil {
			return nil, err
		}
	}
	return c.series, nil
}

// RebuiltAt returns the time of the last successful rebuild.
func (c *EvolutionCache) RebuiltAt() time.Time { return c.rebuiltAt }
