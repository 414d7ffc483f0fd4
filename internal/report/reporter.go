// Package report keeps the trade log, pairs buys against sells for realized
// PnL, and writes the end-of-day artifacts.
package report

import (
	"sort"
	"strings"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Pair is a realized round trip. Buy.Price is always below Sell.Price.
type Pair struct {
	Buy  domain.Trade
	Sell domain.Trade
	Qty  int64
}

// PnL returns (sell - buy) * qty.
func (p Pair) PnL() decimal.Decimal {
	return p.Sell.Price.Sub(p.Buy.Price).Mul(decimal.NewFromInt(p.Qty))
}

// remainder is a trade with the part not yet paired.
type remainder struct {
	trade     domain.Trade
	remaining int64
}

// Reporter is not safe for concurrent use; the runtime owns it.
type Reporter struct {
	outDir string
	symbol string

	trades []domain.Trade
	pairs  []Pair

	// buys: price ascending, sells: price descending; both tie-broken by trade id.
	buys  []*remainder
	sells []*remainder
}

// NewReporter creates a reporter writing under outDir/<symbol>/.
func NewReporter(outDir, symbol string) *Reporter {
	return &Reporter{
		outDir: outDir,
		symbol: symbol,
	}
}

// LogTrade appends a fill and pairs whatever became profitable.
// It returns the pairs this trade produced.
func (r *Reporter) LogTrade(t domain.Trade) []Pair {
	r.trades = append(r.trades, t)

	rem := &remainder{trade: t, remaining: t.Qty}
	if t.Side == domain.SideBuy {
		r.buys = insertSorted(r.buys, rem, buyBefore)
	} else {
		r.sells = insertSorted(r.sells, rem, sellBefore)
	}
	return r.pairUp()
}

// pairUp matches the cheapest open buy against the dearest open sell while
// that is still profitable.
func (r *Reporter) pairUp() []Pair {
	var made []Pair
	for len(r.buys) > 0 && len(r.sells) > 0 {
		buy, sell := r.buys[0], r.sells[0]
		if !buy.trade.Price.LessThan(sell.trade.Price) {
			break
		}
		qty := min(buy.remaining, sell.remaining)
		p := Pair{Buy: buy.trade, Sell: sell.trade, Qty: qty}
		r.pairs = append(r.pairs, p)
		made = append(made, p)

		buy.remaining -= qty
		sell.remaining -= qty
		if buy.remaining <= 0 {
			r.buys = r.buys[1:]
		}
		if sell.remaining <= 0 {
			r.sells = r.sells[1:]
		}
	}
	return made
}

func buyBefore(a, b *remainder) bool {
	if !a.trade.Price.Equal(b.trade.Price) {
		return a.trade.Price.LessThan(b.trade.Price)
	}
	return a.trade.ID < b.trade.ID
}

func sellBefore(a, b *remainder) bool {
	if !a.trade.Price.Equal(b.trade.Price) {
		return a.trade.Price.GreaterThan(b.trade.Price)
	}
	return a.trade.ID < b.trade.ID
}

func insertSorted(q []*remainder, item *remainder, before func(a, b *remainder) bool) []*remainder {
	i := sort.Search(len(q), func(i int) bool { return before(item, q[i]) })
	q = append(q, nil)
	copy(q[i+1:], q[i:])
	q[i] = item
	return q
}

// Trades returns a copy of the full trade log.
func (r *Reporter) Trades() []domain.Trade {
	out := make([]domain.Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// Pairs returns a copy of the realized pairs.
func (r *Reporter) Pairs() []Pair {
	out := make([]Pair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// OpenQty returns the unpaired buy and sell quantities.
func (r *Reporter) OpenQty() (buy, sell int64) {
	for _, b := range r.buys {
		buy += b.remaining
	}
	for _, s := range r.sells {
		sell += s.remaining
	}
	return buy, sell
}

// RealizedPnL sums PnL over every pair.
func (r *Reporter) RealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.pairs {
		total = total.Add(p.PnL())
	}
	return total
}

// Symbol returns the configured symbol.
func (r *Reporter) Symbol() string { return r.symbol }

// symbolDir strips dots so "512710.SH" becomes "512710SH".
func (r *Reporter) symbolDir() string {
	return strings.ReplaceAll(r.symbol, ".", "")
}
