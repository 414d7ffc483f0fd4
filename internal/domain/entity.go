package domain

import (
	"time"
)

// DailyReport is the archived summary of one flushed trading day.
// Decimal amounts are stored as fixed-point strings.
type DailyReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"index" json:"run_id"`
	Symbol     string    `gorm:"index:idx_symbol_day" json:"symbol"`
	Day        string    `gorm:"index:idx_symbol_day" json:"day"` // YYYYMMDD
	Realized   string    `json:"realized"`
	Unrealized string    `json:"unrealized"`
	Net        string    `json:"net"`
	TradeCount int       `json:"trade_count"`
	PairCount  int       `json:"pair_count"`
	Dir        string    `json:"dir"` // Where the CSV artifacts were written
	CreatedAt  time.Time `json:"created_at"`
}

// TradeRecord is one archived fill.
type TradeRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"index" json:"run_id"`
	Symbol    string    `json:"symbol"`
	Day       string    `gorm:"index" json:"day"`
	TradeID   uint64    `json:"trade_id"`
	OrderID   uint64    `json:"order_id"`
	Side      string    `json:"side"`
	Price     string    `json:"price"`
	Qty       int64     `json:"qty"`
	Level     int       `json:"level"`
	TradedAt  time.Time `json:"traded_at"`
	CreatedAt time.Time `json:"created_at"`
}
