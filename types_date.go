package cartera

import (
	"time"

	"github.com/etnz/cartera/date"
)

// Date is the day-granularity date used everywhere in the engine.
type Date = date.Date

// Range is an inclusive interval of calendar days.
type Range = date.Range

// NewRange returns the inclusive range [from, to].
func NewRange(from, to Date) Range { return date.NewRange(from, to) }

// Lima is the portfolio's fixed reporting timezone (UTC-5, no DST).
var Lima = time.FixedZone("America/Lima", -5*60*60)

// AsOf returns the last complete calendar day for the given instant:
// "yesterday" in the Lima reporting timezone. Reports and series never
// include the current, still-trading day.
//
// The instant is an explicit parameter so callers (and tests) control the
// clock; nothing in the engine reads time.Now directly.
func AsOf(now time.Time) Date {
	return date.FromTime(now.In(Lima)).Add(-1)
}
