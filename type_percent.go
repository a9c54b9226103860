package cartera

import "fmt"

// Percent is a percentage value (5.0 means 5%).
type Percent float64

// Equal compares two percentages with a fixed precision, since they are
// almost always the result of float division.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string { return fmt.Sprintf("%.2f%%", float64(p)) }

// SignedString is like String but with an explicit sign, and "-" for zero.
func (p Percent) SignedString() string {
	if p == 0 {
		return "-"
	}
	if p > 0 {
		return "+" + p.String()
	}
	return p.String()
}
