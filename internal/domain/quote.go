package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Quote is one market snapshot for a single symbol.
// Zero prices mean "not provided by the source".
type Quote struct {
	Symbol string          `json:"symbol"`
	Time   time.Time       `json:"time"`  // Source time; zero when the source has none
	Last   decimal.Decimal `json:"price"` // Last trade price
	Bid    decimal.Decimal `json:"bid1"`
	Ask    decimal.Decimal `json:"ask1"`
	Open   decimal.Decimal `json:"open"` // Session opening price
}

// HasOpen reports whether the snapshot carries a usable opening price.
func (q Quote) HasOpen() bool {
	return q.Open.IsPositive()
}

// Mid returns the bid/ask midpoint, or false when either side is missing.
func (q Quote) Mid() (decimal.Decimal, bool) {
	if !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return decimal.Zero, false
	}
	mid := q.Bid.Add(q.Ask).Div(two)
	return mid, mid.IsPositive()
}

// Price derives the tradeable price: last trade, then bid/ask mid, then prev.
// prev is ignored unless positive.
func (q Quote) Price(prev decimal.Decimal) (decimal.Decimal, bool) {
	if q.Last.IsPositive() {
		return q.Last, true
	}
	if mid, ok := q.Mid(); ok {
		return mid, true
	}
	if prev.IsPositive() {
		return prev, true
	}
	return decimal.Zero, false
}

// Time layouts accepted from quote sources, tried in order.
var quoteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"20060102150405",
	"20060102 15:04:05",
	time.RFC3339,
}

// ParseQuoteTime parses a source timestamp in loc. A bare 13-digit number
// is a millisecond epoch; 14 digits is the compact YYYYMMDDhhmmss layout.
func ParseQuoteTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) == 13 {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).In(loc), nil
		}
	}
	for _, layout := range quoteTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised quote time %q", s)
}
