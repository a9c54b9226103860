package date

import (
	"iter"
	"slices"
	"sort"
)

// History stores a chronological series of float64 values, one per date.
// Dates are unique and the series is always kept sorted, so lookups of the
// "last value on or before a day" are binary searches. This is the
// step-function model shared by prices and exchange rates: a value holds
// until a newer one appears.
type History struct {
	days   []Date
	values []float64
}

// Len returns the number of points in the history.
func (h *History) Len() int { return len(h.days) }

// Append adds a point to the history, replacing any existing value on the
// same day. The latest write wins.
func (h *History) Append(on Date, v float64) *History {
	if i := slices.Index(h.days, on); i >= 0 {
		h.values[i] = v
		return h
	}
	h.days, h.values = append(h.days, on), append(h.values, v)
	h.sort()
	return h
}

// chronological sorts days and values together.
type chronological struct{ *History }

func (s chronological) Len() int           { return len(s.days) }
func (s chronological) Less(i, j int) bool { return s.days[i].Before(s.days[j]) }
func (s chronological) Swap(i, j int) {
	s.days[i], s.days[j] = s.days[j], s.days[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}

func (h *History) sort() { sort.Sort(chronological{h}) }

// Get returns the value exactly at 'day', if any.
func (h *History) Get(day Date) (float64, bool) {
	if i := slices.Index(h.days, day); i >= 0 {
		return h.values[i], true
	}
	return 0, false
}

// ValueAsOf returns the value on a given day, or the most recent value
// before it. It returns false when no point exists on or before the day.
func (h *History) ValueAsOf(day Date) (float64, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, func(d, t Date) int {
		if d.After(t) {
			return 1
		}
		if d.Before(t) {
			return -1
		}
		return 0
	})
	if found {
		return h.values[i], true
	}
	// i is the insertion index; the last entry before 'day' is at i-1.
	if i == 0 {
		return 0, false
	}
	return h.values[i-1], true
}

// Earliest returns the first (oldest) point of the history.
// It returns false when the history is empty.
func (h *History) Earliest() (Date, float64, bool) {
	if len(h.days) == 0 {
		return Date{}, 0, false
	}
	return h.days[0], h.values[0], true
}

// Latest returns the last (most recent) point of the history.
// It returns false when the history is empty.
func (h *History) Latest() (Date, float64, bool) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, 0, false
	}
	return h.days[last], h.values[last], true
}

// Values returns an iterator over all date/value pairs in chronological order.
func (h *History) Values() iter.Seq2[Date, float64] {
	return func(yield func(Date, float64) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}
