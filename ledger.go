package cartera

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sort"
)

// InsufficientHoldingsError reports a sell whose quantity exceeds the
// holdings tracked at its date. It is raised at transaction-entry time;
// historical replay never raises it (see Position.Apply).
type InsufficientHoldingsError struct {
	Ticker string
	Date   Date
	Have   Quantity
	Sell   Quantity
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("cannot sell %s units of %s on %s: only %s held", e.Sell, e.Ticker, e.Date, e.Have)
}

// Ledger is the append-only record of all transactions and dividends.
// Transactions are always kept in chronological order; same-day records
// keep their insertion order (stable sort).
type Ledger struct {
	transactions []Transaction
	dividends    []DividendRecord
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append validates and appends transactions to the ledger.
//
// Validation is strict at this write boundary: intrinsic field checks, and
// for sells, the replayed holdings at the sell date must cover the sold
// quantity (within the position-closing tolerance), otherwise an
// *InsufficientHoldingsError is returned and nothing is appended.
//
// For sells, the realized gain against the CPP at sale time is computed
// here, once, and persisted on the transaction.
func (l *Ledger) Append(txs ...Transaction) error {
	for i := range txs {
		tx := txs[i]
		if err := tx.Validate(); err != nil {
			return err
		}
		if tx.Kind == KindSell {
			pos := l.PositionAsOf(tx.Ticker, tx.Date)
			if pos.Quantity.Add(Q(closeTolerance)).LessThan(tx.Quantity) {
				return &InsufficientHoldingsError{Ticker: tx.Ticker, Date: tx.Date, Have: pos.Quantity, Sell: tx.Quantity}
			}
			tx.Realized = tx.Amount.Sub(pos.CPP.Mul(tx.Quantity))
		}
		l.transactions = append(l.transactions, tx)
		l.stableSort()
	}
	return nil
}

// AppendDividend validates and appends dividend records.
func (l *Ledger) AppendDividend(divs ...DividendRecord) error {
	for _, d := range divs {
		if err := d.Validate(); err != nil {
			return err
		}
		l.dividends = append(l.dividends, d)
	}
	sort.SliceStable(l.dividends, func(i, j int) bool {
		return l.dividends[i].Date.Before(l.dividends[j].Date)
	})
	return nil
}

// stableSort sorts the ledger by transaction date. Transactions on the same
// day keep their original relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].Date.Before(l.transactions[j].Date)
	})
}

// Transactions returns an iterator over all transactions in chronological order.
func (l *Ledger) Transactions() iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			if !yield(i, tx) {
				return
			}
		}
	}
}

// TickerTransactions returns an iterator over a ticker's transactions up to
// and including 'max', in chronological order.
func (l *Ledger) TickerTransactions(ticker string, max Date) iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range l.transactions {
			if tx.Date.After(max) {
				// The ledger is sorted by date, so it is safe to stop.
				return
			}
			if tx.Ticker != ticker {
				continue
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// Dividends returns an iterator over all dividends in chronological order.
func (l *Ledger) Dividends() iter.Seq2[int, DividendRecord] {
	return func(yield func(int, DividendRecord) bool) {
		for i, d := range l.dividends {
			if !yield(i, d) {
				return
			}
		}
	}
}

// TickerDividendTotal sums a ticker's dividends up to and including 'max',
// in the ticker's local currency.
func (l *Ledger) TickerDividendTotal(ticker string, max Date) Money {
	var total Money
	for _, d := range l.dividends {
		if d.Date.After(max) {
			break
		}
		if d.Ticker == ticker {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// AllTickers iterates over all tickers appearing in the ledger, sorted.
func (l *Ledger) AllTickers() iter.Seq[string] {
	return func(yield func(string) bool) {
		visited := make(map[string]struct{})
		for _, tx := range l.transactions {
			visited[tx.Ticker] = struct{}{}
		}
		for _, d := range l.dividends {
			visited[d.Ticker] = struct{}{}
		}
		tickers := slices.Collect(maps.Keys(visited))
		slices.Sort(tickers)
		for _, ticker := range tickers {
			if !yield(ticker) {
				return
			}
		}
	}
}

// OldestTransactionDate returns the date of the earliest transaction, or the
// zero date for an empty ledger.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].Date
}

// NewestTransactionDate returns the date of the latest transaction, or the
// zero date for an empty ledger.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].Date
}

// Len returns the number of transactions in the ledger.
func (l *Ledger) Len() int { return len(l.transactions) }
