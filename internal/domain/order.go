package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a simulated resting order parked on a single grid level.
// Quantities are whole shares.
type Order struct {
	ID    uint64 `json:"order_id"`
	Level int    `json:"level"`
	Side  Side   `json:"side"`
	Qty   int64  `json:"qty"`
}

// Trade is an immutable fill produced when a resting order is matched.
type Trade struct {
	ID      uint64          `json:"trade_id"`
	OrderID uint64          `json:"order_id"`
	Time    time.Time       `json:"ts"`
	Side    Side            `json:"side"`
	Price   decimal.Decimal `json:"price"`
	Qty     int64           `json:"qty"`
	Level   int             `json:"level"`
}

// Notional returns price * qty.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Qty))
}
