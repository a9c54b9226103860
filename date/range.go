package date

import "iter"

// Range is an inclusive interval of calendar days.
type Range struct {
	From Date
	To   Date
}

// NewRange returns the inclusive range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// YearRange returns the range covering the whole calendar year y.
func YearRange(y int) Range {
	d := New(y, 1, 1)
	return Range{From: d, To: d.EndOfYear()}
}

// Contains reports whether 'on' falls within the range (bounds included).
func (r Range) Contains(on Date) bool {
	return !on.Before(r.From) && !on.After(r.To)
}

// String formats the range as "from..to".
func (r Range) String() string { return r.From.String() + ".." + r.To.String() }

// IsZero reports whether both bounds are the zero date.
func (r Range) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Days iterates over every calendar day in the range, in order.
func (r Range) Days() iter.Seq[Date] { return Days(r.From, r.To) }
