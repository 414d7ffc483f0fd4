package engine

import (
	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Skip reasons reported to the Observer.
const (
	SkipFetchError   = "fetch_error"
	SkipNoPrice      = "no_price"
	SkipOutOfSession = "out_of_session"
	SkipHalted       = "halted"
)

// Observer receives loop telemetry. Implementations must be cheap; they are
// called from the tick loop.
type Observer interface {
	TickProcessed()
	TickSkipped(reason string)
	OrderPlaced(side domain.Side)
	OrderFilled(side domain.Side)
	OverSell()
	SetHalted(halted bool)
	SetPnL(realized, unrealized decimal.Decimal)
}

type nopObserver struct{}

func (nopObserver) TickProcessed() {}
func (nopObserver) TickSkipped(string) {}
func (nopObserver) OrderPlaced(domain.Side) {}
func (nopObserver) OrderFilled(domain.Side) {}
func (nopObserver) OverSell() {}
func (nopObserver) SetHalted(bool) {}
func (nopObserver) SetPnL(_, _ decimal.Decimal) {}
