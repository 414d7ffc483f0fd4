package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

var d = decimal.RequireFromString

func TestQuoteCache_ProcessQuotes(t *testing.T) {
	c := NewQuoteCache()
	t0 := time.Date(2025, 11, 12, 9, 30, 0, 0, time.UTC)

	c.ProcessQuotes([]domain.Quote{
		{Symbol: "512710.SH", Time: t0, Last: d("0.680"), Bid: d("0.679"), Ask: d("0.681"), Open: d("0.680")},
		{Symbol: "159915.SZ", Time: t0, Last: d("2.100")},
	})

	if got := c.Symbols(); len(got) != 2 || got[0] != "159915.SZ" {
		t.Errorf("Unexpected symbols %v", got)
	}

	t.Run("partial update keeps known fields", func(t *testing.T) {
		c.ProcessQuotes([]domain.Quote{{Symbol: "512710.SH", Time: t0.Add(time.Second), Last: d("0.682")}})
		q, _ := c.Get("512710.SH")
		if !q.Last.Equal(d("0.682")) || !q.Open.Equal(d("0.680")) || !q.Bid.Equal(d("0.679")) {
			t.Errorf("Unexpected merged quote %+v", q)
		}
	})

	t.Run("stale quote ignored", func(t *testing.T) {
		c.ProcessQuotes([]domain.Quote{{Symbol: "512710.SH", Time: t0, Last: d("0.600")}})
		q, _ := c.Get("512710.SH")
		if !q.Last.Equal(d("0.682")) {
			t.Errorf("Stale quote overwrote newer one: %s", q.Last)
		}
	})
}

func TestQuoteCache_Fetch(t *testing.T) {
	c := NewQuoteCache()

	_, err := c.Fetch(context.Background(), "512710.SH")
	if !errors.Is(err, domain.ErrSymbolNotFound) {
		t.Errorf("Expected ErrSymbolNotFound, got %v", err)
	}

	c.ProcessQuotes([]domain.Quote{{Symbol: "512710.SH", Last: d("0.7")}})
	q, err := c.Fetch(context.Background(), "512710.SH")
	if err != nil || !q.Last.Equal(d("0.7")) {
		t.Errorf("Unexpected fetch result %+v (%v)", q, err)
	}
}

func TestQuoteCache_StartProcessor(t *testing.T) {
	c := NewQuoteCache()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartProcessor(ctx)

	c.QuoteChan() <- []domain.Quote{{Symbol: "X", Last: d("1.5")}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Get("X"); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Quote was not processed")
}
