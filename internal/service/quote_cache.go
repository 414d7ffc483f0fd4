package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"grid_go/internal/domain"
)

// QuoteCache keeps the latest pushed quote per symbol and serves it as a
// pull-style QuoteSource.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	quoteC chan []domain.Quote
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes: make(map[string]domain.Quote),
		quoteC: make(chan []domain.Quote, 1000), // 버스트 대응을 위한 충분한 버퍼
	}
}

// QuoteChan returns the channel feeds push batches into.
func (c *QuoteCache) QuoteChan() chan<- []domain.Quote {
	return c.quoteC
}

// StartProcessor drains QuoteChan in the background until ctx is done.
func (c *QuoteCache) StartProcessor(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case quotes := <-c.quoteC:
				c.ProcessQuotes(quotes)
			}
		}
	}()
}

// ProcessQuotes stores a batch. Zero fields inherit the previous value so a
// partial update never erases a known open or book side. Older quotes are ignored.
func (c *QuoteCache) ProcessQuotes(quotes []domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range quotes {
		prev, exists := c.quotes[q.Symbol]
		if exists {
			if !q.Time.IsZero() && q.Time.Before(prev.Time) {
				continue
			}
			if q.Last.IsZero() {
				q.Last = prev.Last
			}
			if q.Bid.IsZero() {
				q.Bid = prev.Bid
			}
			if q.Ask.IsZero() {
				q.Ask = prev.Ask
			}
			if q.Open.IsZero() {
				q.Open = prev.Open
			}
		}
		c.quotes[q.Symbol] = q
	}
}

// Get returns the latest quote for symbol.
func (c *QuoteCache) Get(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[symbol]
	return q, ok
}

// Symbols returns every cached symbol, sorted.
func (c *QuoteCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.quotes))
	for s := range c.quotes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Fetch implements domain.QuoteSource over the cache.
func (c *QuoteCache) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	q, ok := c.Get(symbol)
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
	}
	return q, nil
}
