package cartera

import (
	"testing"
	"time"

	"github.com/etnz/cartera/date"
)

// USD is a helper for tests to create dollar money from const.
func USDm(v float64) Money { return M(v, USD) }

// PENm is a helper for tests to create sol money from const.
func PENm(v float64) Money { return M(v, PEN) }

// day is a helper for tests to build dates tersely.
func day(y int, m time.Month, d int) Date { return date.New(y, m, d) }

// mustAppend appends transactions failing the test on error.
func mustAppend(t *testing.T, l *Ledger, txs ...Transaction) {
	t.Helper()
	if err := l.Append(txs...); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
}

// mustDeclare declares a security failing the test on error.
func mustDeclare(t *testing.T, m *Market, ticker, currency string) {
	t.Helper()
	sec, err := NewSecurity(ticker, currency)
	if err != nil {
		t.Fatalf("NewSecurity(%q, %q) failed: %v", ticker, currency, err)
	}
	if err := m.Declare(sec); err != nil {
		t.Fatalf("Declare(%q) failed: %v", ticker, err)
	}
}
