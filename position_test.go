package cartera

import (
	"testing"
	"time"
)

func TestPosition_WeightedAverageCost(t *testing.T) {
	var p Position
	p.Ticker = "SPY"

	// Buy 10 units for a total of 1000: CPP = 100.
	p.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), FreshCash))
	if !p.CPP.Equal(USDm(100)) {
		t.Errorf("CPP after first buy = %s, want %s", p.CPP, USDm(100))
	}

	// Buy 10 more for 1200: CPP = (1000+1200)/20 = 110.
	p.Apply(NewBuy(day(2025, time.February, 2), "SPY", Q(10), USDm(1200), FreshCash))
	if !p.CPP.Equal(USDm(110)) {
		t.Errorf("CPP after second buy = %s, want %s", p.CPP, USDm(110))
	}
	if !p.Quantity.Equal(Q(20)) {
		t.Errorf("Quantity = %s, want 20", p.Quantity)
	}

	// Sell 5 for 600: realized = 600 - 5*110 = 50; CPP unchanged.
	p.Apply(NewSell(day(2025, time.March, 2), "SPY", Q(5), USDm(600)))
	if !p.Realized.Equal(USDm(50)) {
		t.Errorf("Realized = %s, want %s", p.Realized, USDm(50))
	}
	if !p.CPP.Equal(USDm(110)) {
		t.Errorf("CPP after sell = %s, want %s (sells must not move CPP)", p.CPP, USDm(110))
	}
	if !p.Quantity.Equal(Q(15)) {
		t.Errorf("Quantity after sell = %s, want 15", p.Quantity)
	}

	// Invariant: invested capital is always CPP*Quantity.
	if !p.Invested().Equal(USDm(1650)) {
		t.Errorf("Invested() = %s, want %s", p.Invested(), USDm(1650))
	}
}

func TestPosition_FullCloseResetsState(t *testing.T) {
	var p Position
	p.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), FreshCash))
	p.Apply(NewSell(day(2025, time.June, 2), "SPY", Q(10), USDm(1100)))

	if !p.Quantity.IsZero() {
		t.Errorf("Quantity after full close = %s, want 0", p.Quantity)
	}
	if !p.CPP.IsZero() {
		t.Errorf("CPP after full close = %s, want 0", p.CPP)
	}
	if !p.Realized.Equal(USDm(100)) {
		t.Errorf("Realized = %s, want %s", p.Realized, USDm(100))
	}
	if p.IsOpen() {
		t.Error("IsOpen() = true for a fully closed position")
	}

	// Reopening starts a fresh cost basis, realized gains accumulate.
	p.Apply(NewBuy(day(2025, time.July, 2), "SPY", Q(4), USDm(500), FreshCash))
	if !p.CPP.Equal(USDm(125)) {
		t.Errorf("CPP after reopening = %s, want %s", p.CPP, USDm(125))
	}
	if !p.Realized.Equal(USDm(100)) {
		t.Errorf("Realized after reopening = %s, want %s", p.Realized, USDm(100))
	}
}

func TestPosition_ResidualDustClosesPosition(t *testing.T) {
	var p Position
	p.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), FreshCash))
	// Selling all but 0.005 units leaves less than the close tolerance.
	p.Apply(NewSell(day(2025, time.June, 2), "SPY", Q(9.995), USDm(1100)))

	if !p.Quantity.IsZero() {
		t.Errorf("Quantity = %s, want 0 (dust below tolerance must close)", p.Quantity)
	}
	if !p.CPP.IsZero() {
		t.Errorf("CPP = %s, want 0", p.CPP)
	}
}

func TestPosition_ReplayClampsOversell(t *testing.T) {
	// Historical replay never fails on an oversold quantity: it clamps.
	var p Position
	p.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), FreshCash))
	p.Apply(NewSell(day(2025, time.June, 2), "SPY", Q(12), USDm(1300)))

	if !p.Quantity.IsZero() {
		t.Errorf("Quantity after oversell = %s, want 0", p.Quantity)
	}
	if !p.CPP.IsZero() {
		t.Errorf("CPP after oversell = %s, want 0", p.CPP)
	}
}

func TestPosition_OriginDoesNotAffectCostBasis(t *testing.T) {
	fresh := Position{}
	fresh.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), FreshCash))
	fresh.Apply(NewBuy(day(2025, time.February, 2), "SPY", Q(5), USDm(600), FreshCash))

	reinvested := Position{}
	reinvested.Apply(NewBuy(day(2025, time.January, 2), "SPY", Q(10), USDm(1000), Reinvestment))
	reinvested.Apply(NewBuy(day(2025, time.February, 2), "SPY", Q(5), USDm(600), Reinvestment))

	if !fresh.CPP.Equal(reinvested.CPP) || !fresh.Quantity.Equal(reinvested.Quantity) {
		t.Errorf("capital origin leaked into cost basis: fresh CPP=%s qty=%s, reinvested CPP=%s qty=%s",
			fresh.CPP, fresh.Quantity, reinvested.CPP, reinvested.Quantity)
	}
}

func TestLedger_PositionAsOf(t *testing.T) {
	l := NewLedger()
	mustAppend(t, l,
		NewBuy(day(2025, time.January, 10), "SPY", Q(10), USDm(1000), FreshCash),
		NewBuy(day(2025, time.March, 10), "SPY", Q(10), USDm(1200), FreshCash),
	)

	testCases := []struct {
		name    string
		on      Date
		wantQty Quantity
		wantCPP Money
	}{
		{"before any transaction", day(2025, time.January, 9), Q(0), Money{}},
		{"on the first buy", day(2025, time.January, 10), Q(10), USDm(100)},
		{"between buys", day(2025, time.February, 1), Q(10), USDm(100)},
		{"after both buys", day(2025, time.December, 31), Q(20), USDm(110)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pos := l.PositionAsOf("SPY", tc.on)
			if !pos.Quantity.Equal(tc.wantQty) {
				t.Errorf("Quantity = %s, want %s", pos.Quantity, tc.wantQty)
			}
			if !pos.CPP.Equal(tc.wantCPP) {
				t.Errorf("CPP = %s, want %s", pos.CPP, tc.wantCPP)
			}
		})
	}
}
