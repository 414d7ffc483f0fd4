package domain

import (
	"context"
)

// QuoteSource supplies the latest snapshot for a symbol.
//
// Fetch blocks until a snapshot is available. It returns ErrSymbolNotFound
// (or another retriable error) when the tick carries nothing usable, and
// ErrStreamExhausted when a replay has no more ticks.
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

// QuoteFeed is a QuoteSource that owns a background connection.
type QuoteFeed interface {
	QuoteSource
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// ReportArchive stores a flushed trading day.
type ReportArchive interface {
	SaveDay(report *DailyReport, trades []Trade) error
}
