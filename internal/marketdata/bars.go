package marketdata

import (
	"context"
	"time"
)

// Bar is one daily OHLC bar. Date is the trading day in YYYY-MM-DD.
type Bar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// BarsProvider fetches daily bars for a symbol, sorted ascending by date.
type BarsProvider interface {
	Name() string
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

const dateLayout = "2006-01-02"

// ParseDate parses a bar date. Invalid dates sort before everything.
func ParseDate(d string) (time.Time, error) {
	return time.Parse(dateLayout, d)
}

// FormatDate renders t as a bar date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
