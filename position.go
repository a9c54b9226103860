package cartera

// closeTolerance absorbs floating point dust when a sell empties a
// position: a residual quantity below this threshold closes the position
// (quantity and CPP snap to zero).
const closeTolerance = 0.01

// openThreshold is the smallest quantity considered an open position in
// listings.
const openThreshold = 1e-6

// Position is the replayed state of one ticker's holdings: quantity held,
// weighted-average cost per unit (CPP), and cumulative realized gain.
// It is derived, never stored: replaying the same transactions always
// reproduces it.
//
// The invariant CPP*Quantity == total invested capital holds after every
// applied transaction (within the close tolerance).
type Position struct {
	Ticker   string
	Quantity Quantity
	CPP      Money // weighted-average cost per unit, local currency
	Realized Money // cumulative realized gain, local currency
}

// Apply folds one transaction into the position.
//
// Buys recompute the weighted-average cost: (prior cost + amount) / new
// quantity. The capital origin is irrelevant here: a reinvestment buy moves
// CPP and quantity exactly like a fresh-cash buy.
//
// Sells realize amount - quantity*CPP and leave CPP untouched. Historical
// replay deliberately clamps an oversold quantity to zero instead of
// failing: data-entry mistakes in old records must not prevent reading the
// portfolio. New entries are validated strictly in Ledger.Append instead.
func (p *Position) Apply(tx Transaction) {
	switch tx.Kind {
	case KindBuy:
		priorCost := p.CPP.Mul(p.Quantity)
		p.Quantity = p.Quantity.Add(tx.Quantity)
		if p.Quantity.IsPositive() {
			p.CPP = priorCost.Add(tx.Amount).Div(p.Quantity)
		} else {
			p.CPP = M(0, p.CPP.Currency())
		}
	case KindSell:
		costOfSold := p.CPP.Mul(tx.Quantity)
		p.Realized = p.Realized.Add(tx.Amount.Sub(costOfSold))
		p.Quantity = p.Quantity.Sub(tx.Quantity)
		if p.Quantity.LessThan(Q(closeTolerance)) {
			p.Quantity = Q(0)
			p.CPP = M(0, p.CPP.Currency())
		}
	}
}

// Invested returns the running invested capital, CPP*Quantity.
func (p *Position) Invested() Money { return p.CPP.Mul(p.Quantity) }

// IsOpen reports whether the position still holds units.
func (p *Position) IsOpen() bool { return p.Quantity.GreaterThan(Q(openThreshold)) }

// PositionAsOf replays a ticker's transactions up to and including 'on' and
// returns the resulting position. The replay can be resumed: apply later
// transactions to the returned position to advance it day by day, which is
// how the daily evolution builder seeds its window without replaying from
// genesis every day.
func (l *Ledger) PositionAsOf(ticker string, on Date) Position {
	pos := Position{Ticker: ticker}
	for tx := range l.TickerTransactions(ticker, on) {
		pos.Apply(tx)
	}
	return pos
}
