// Package bcrp fetches the daily USD/PEN reference exchange rate from the
// BCRPData API of the Banco Central de Reserva del Perú.
package bcrp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/cartera"
	"github.com/etnz/cartera/date"
)

// Series is the BCRPData series code for the interbank exchange rate
// (sell side), in soles per dollar.
const Series = "PD04640PD"

const baseURL = "https://estadisticas.bcrp.gob.pe/estadisticas/series/api"

// Client queries the BCRPData statistics API.
type Client struct {
	http *http.Client
}

// New returns a client with a plain HTTP transport. The endpoint serves a
// whole date range in one call, there is nothing worth caching.
func New() *Client {
	return &Client{http: new(http.Client)}
}

// jwget performs an HTTP GET and unmarshals the JSON response into data.
func jwget(client *http.Client, addr string, data any) error {
	resp, err := client.Get(addr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// months maps the Spanish month abbreviations BCRPData uses in period names.
var months = map[string]time.Month{
	"Ene": time.January, "Feb": time.February, "Mar": time.March,
	"Abr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Ago": time.August, "Set": time.September,
	"Oct": time.October, "Nov": time.November, "Dic": time.December,
}

// parsePeriod parses a BCRPData period name like "02.Ene.25".
func parsePeriod(name string) (date.Date, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return date.Date{}, fmt.Errorf("invalid period %q", name)
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid day in period %q: %w", name, err)
	}
	m, ok := months[parts[1]]
	if !ok {
		return date.Date{}, fmt.Errorf("unknown month in period %q", name)
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid year in period %q: %w", name, err)
	}
	return date.New(2000+y, m, d), nil
}

// Rates returns the published rates over the range, one entry per day the
// central bank published a value. Days marked "n.d." (no data, weekends and
// holidays) are skipped: the engine's carry-forward rule covers them.
func (c *Client) Rates(r cartera.Range) (map[date.Date]float64, error) {
	addr := fmt.Sprintf("%s/%s/json/%s/%s", baseURL, Series, r.From, r.To)
	var jobj any
	if err := jwget(c.http, addr, &jobj); err != nil {
		return nil, fmt.Errorf("cannot fetch USD/PEN rates: %w", err)
	}

	// The payload nests the observations under periods, each with a name
	// ("02.Ene.25") and a single-element values list.
	jval, err := jsonpath.Get("$.periods[*]", jobj)
	if err != nil {
		return nil, fmt.Errorf("unexpected BCRPData payload: %w", err)
	}
	periods, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected BCRPData payload: periods is not a list")
	}

	rates := make(map[date.Date]float64, len(periods))
	for _, p := range periods {
		jname, err := jsonpath.Get("$.name", p)
		if err != nil {
			return nil, fmt.Errorf("unexpected BCRPData period: %w", err)
		}
		name, ok := jname.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected BCRPData period: name is not a string")
		}
		jvalue, err := jsonpath.Get("$.values[0]", p)
		if err != nil {
			return nil, fmt.Errorf("unexpected BCRPData period %q: %w", name, err)
		}
		raw, ok := jvalue.(string)
		if !ok || raw == "n.d." {
			continue
		}
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q on %q: %w", raw, name, err)
		}
		on, err := parsePeriod(name)
		if err != nil {
			return nil, err
		}
		rates[on] = rate
	}
	return rates, nil
}

// Update fetches the range and appends every published rate to the table.
func (c *Client) Update(fx *cartera.FxRates, r cartera.Range) error {
	rates, err := c.Rates(r)
	if err != nil {
		return err
	}
	for on, rate := range rates {
		if err := fx.Append(on, rate); err != nil {
			return fmt.Errorf("rejected BCRPData rate for %s: %w", on, err)
		}
	}
	return nil
}
