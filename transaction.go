package cartera

import (
	"fmt"
)

// OperationKind identifies the effect of a transaction on holdings.
// It is a closed set: anything else is rejected at the ingestion boundary.
type OperationKind string

const (
	// KindBuy increases holdings and the cost basis.
	KindBuy OperationKind = "buy"
	// KindSell decreases holdings and locks in a realized gain.
	KindSell OperationKind = "sell"
)

// ParseOperationKind parses a string into an OperationKind, rejecting
// unrecognized values instead of defaulting.
func ParseOperationKind(s string) (OperationKind, error) {
	switch OperationKind(s) {
	case KindBuy:
		return KindBuy, nil
	case KindSell:
		return KindSell, nil
	default:
		return "", fmt.Errorf("unknown operation kind: %q", s)
	}
}

// CapitalOrigin classifies where the money of a buy came from. It never
// affects cost-basis math; it only drives the external-inflow reporting.
type CapitalOrigin string

const (
	// FreshCash is external money newly contributed to the portfolio.
	FreshCash CapitalOrigin = "fresh-cash"
	// Reinvestment is capital moved from a sale into a new buy,
	// economically internal to the portfolio.
	Reinvestment CapitalOrigin = "reinvestment"
)

// ParseCapitalOrigin parses a string into a CapitalOrigin, rejecting
// unrecognized values instead of defaulting.
func ParseCapitalOrigin(s string) (CapitalOrigin, error) {
	switch CapitalOrigin(s) {
	case FreshCash:
		return FreshCash, nil
	case Reinvestment:
		return Reinvestment, nil
	default:
		return "", fmt.Errorf("unknown capital origin: %q", s)
	}
}

// Transaction is an immutable, append-only record of a buy or sell.
// Quantity and Amount are stored as positive magnitudes; Kind carries the
// direction. Amount is in the ticker's local currency.
type Transaction struct {
	Date     Date
	Ticker   string
	Kind     OperationKind
	Quantity Quantity
	Amount   Money
	Origin   CapitalOrigin // buys only
	Realized Money         // sells only, computed once at entry and persisted
	Memo     string
}

// NewBuy returns a buy transaction.
func NewBuy(on Date, ticker string, quantity Quantity, amount Money, origin CapitalOrigin) Transaction {
	return Transaction{Date: on, Ticker: ticker, Kind: KindBuy, Quantity: quantity, Amount: amount, Origin: origin}
}

// NewSell returns a sell transaction. The realized gain is computed and
// attached when the transaction is appended to a ledger.
func NewSell(on Date, ticker string, quantity Quantity, amount Money) Transaction {
	return Transaction{Date: on, Ticker: ticker, Kind: KindSell, Quantity: quantity, Amount: amount}
}

// When returns the transaction date.
func (t Transaction) When() Date { return t.Date }

// Validate checks the transaction's intrinsic fields. Holdings-dependent
// checks (overselling) happen in Ledger.Append where the replayed state is
// available.
func (t Transaction) Validate() error {
	if t.Ticker == "" {
		return fmt.Errorf("transaction has no ticker")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction has no date")
	}
	if _, err := ParseOperationKind(string(t.Kind)); err != nil {
		return err
	}
	if t.Quantity.IsZero() || t.Quantity.IsNegative() {
		return fmt.Errorf("%s %s: quantity must be strictly positive, got %s", t.Kind, t.Ticker, t.Quantity)
	}
	if t.Amount.IsZero() || t.Amount.IsNegative() {
		return fmt.Errorf("%s %s: amount must be strictly positive, got %s", t.Kind, t.Ticker, t.Amount)
	}
	switch t.Kind {
	case KindBuy:
		if _, err := ParseCapitalOrigin(string(t.Origin)); err != nil {
			return fmt.Errorf("buy %s: %w", t.Ticker, err)
		}
	case KindSell:
		if t.Origin != "" {
			return fmt.Errorf("sell %s: capital origin applies to buys only", t.Ticker)
		}
	}
	return nil
}

// MarshalJSON writes the transaction as a single canonical JSON object.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("op", t.Kind)
	w.Append("date", t.Date)
	w.Append("ticker", t.Ticker)
	w.Append("quantity", t.Quantity)
	w.Append("amount", t.Amount.Decimal())
	w.Optional("currency", t.Amount.Currency())
	w.Optional("origin", t.Origin)
	if t.Kind == KindSell {
		w.Append("realized", t.Realized.Decimal())
	}
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// DividendRecord is income received for holding a ticker. It is pure
// realized return: it never changes quantity or cost basis.
type DividendRecord struct {
	Date   Date
	Ticker string
	Amount Money // local currency of the ticker
	Memo   string
}

// NewDividend returns a dividend record.
func NewDividend(on Date, ticker string, amount Money) DividendRecord {
	return DividendRecord{Date: on, Ticker: ticker, Amount: amount}
}

// Validate checks the dividend's intrinsic fields.
func (d DividendRecord) Validate() error {
	if d.Ticker == "" {
		return fmt.Errorf("dividend has no ticker")
	}
	if d.Date.IsZero() {
		return fmt.Errorf("dividend has no date")
	}
	if d.Amount.IsZero() || d.Amount.IsNegative() {
		return fmt.Errorf("dividend %s: amount must be strictly positive, got %s", d.Ticker, d.Amount)
	}
	return nil
}

// MarshalJSON writes the dividend as a single canonical JSON object.
func (d DividendRecord) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("op", "dividend")
	w.Append("date", d.Date)
	w.Append("ticker", d.Ticker)
	w.Append("amount", d.Amount.Decimal())
	w.Optional("currency", d.Amount.Currency())
	w.Optional("memo", d.Memo)
	return w.MarshalJSON()
}
