// Package cartera implements a personal multi-currency (USD/PEN) investment
// portfolio: an append-only transaction ledger, weighted-average-cost
// position tracking, point-in-time valuation, a daily portfolio-evolution
// series with currency conversion, calendar-year performance summaries, and
// cached benchmark comparisons.
//
// The package is the computation core. Storage is plain JSONL files (human
// readable and git friendly), market data comes from pluggable providers
// (see the eodhd and bcrp packages), and the cmd package exposes everything
// as a CLI.
//
// All dates are calendar days in the portfolio's reporting timezone (Lima,
// UTC-5); series end at "yesterday" in that timezone so that an intraday,
// incomplete price never enters a report.
package cartera
