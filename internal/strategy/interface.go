package strategy

import (
	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// ActionType defines the type of trading action
type ActionType int

const (
	ActionBuy  ActionType = iota + 1
	ActionSell // Sell
)

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Side maps the action onto an order side.
func (a ActionType) Side() domain.Side {
	if a == ActionSell {
		return domain.SideSell
	}
	return domain.SideBuy
}

// Action is a resting order the policy wants on a level.
type Action struct {
	Type  ActionType
	Level int
	Price decimal.Decimal
	Qty   int64
}

// OrderBook is the read side of the order simulator.
type OrderBook interface {
	HasOrder(level int) bool
	HasSide(level int, side domain.Side) bool
}

// Inventory is the read side of the position book.
type Inventory interface {
	Qty(level int) int64
	TotalQty(from, to int) int64
}

// Policy decides which orders to place when price crosses a level.
// It is called synchronously by the Runtime and never mutates the book.
type Policy interface {
	OnLevel(level int, book OrderBook, inv Inventory) []Action
}
