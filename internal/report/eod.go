package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Artifact file names inside a day directory.
const (
	TradesFile    = "trades.csv"
	PairsFile     = "pairs.csv"
	PositionsFile = "positions.csv"
	PnLFile       = "pnl.csv"

	dayLayout = "20060102"
	tsLayout  = "2006-01-02 15:04:05"
	places    = 6
)

// PriceFunc maps a level index to its price.
type PriceFunc func(level int) decimal.Decimal

// Summary is what one flush wrote.
type Summary struct {
	Day        string
	Dir        string
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
	Net        decimal.Decimal
	TradeCount int
	PairCount  int
}

// DayDir returns outDir/<symbol without dots>/<YYYYMMDD>.
func (r *Reporter) DayDir(day time.Time) string {
	return filepath.Join(r.outDir, r.symbolDir(), day.Format(dayLayout))
}

// FlushEndOfDay writes trades.csv, pairs.csv, positions.csv and pnl.csv.
// A nil priceFn values every position at its own cost.
func (r *Reporter) FlushEndOfDay(day time.Time, snapshot []domain.Position, priceFn PriceFunc) (Summary, error) {
	dir := r.DayDir(day)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Summary{}, fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := writeCSV(filepath.Join(dir, TradesFile), r.tradeRows()); err != nil {
		return Summary{}, err
	}
	if err := writeCSV(filepath.Join(dir, PairsFile), r.pairRows()); err != nil {
		return Summary{}, err
	}

	posRows, unrealized := positionRows(snapshot, priceFn)
	if err := writeCSV(filepath.Join(dir, PositionsFile), posRows); err != nil {
		return Summary{}, err
	}

	realized := r.RealizedPnL()
	net := realized.Add(unrealized)
	pnlRows := [][]string{
		{"total_realized", "total_unrealized", "net"},
		{realized.StringFixed(places), unrealized.StringFixed(places), net.StringFixed(places)},
	}
	if err := writeCSV(filepath.Join(dir, PnLFile), pnlRows); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Day:        day.Format(dayLayout),
		Dir:        dir,
		Realized:   realized,
		Unrealized: unrealized,
		Net:        net,
		TradeCount: len(r.trades),
		PairCount:  len(r.pairs),
	}
	slog.Info("EOD reports written",
		slog.String("dir", dir),
		slog.Int("trades", sum.TradeCount),
		slog.Int("pairs", sum.PairCount),
		slog.String("realized", realized.StringFixed(places)),
		slog.String("unrealized", unrealized.StringFixed(places)),
		slog.String("net", net.StringFixed(places)),
	)
	return sum, nil
}

func (r *Reporter) tradeRows() [][]string {
	rows := [][]string{{"trade_id", "order_id", "ts", "side", "price", "qty", "level_idx"}}
	for _, t := range r.trades {
		rows = append(rows, []string{
			strconv.FormatUint(t.ID, 10),
			strconv.FormatUint(t.OrderID, 10),
			t.Time.Format(tsLayout),
			string(t.Side),
			t.Price.StringFixed(places),
			strconv.FormatInt(t.Qty, 10),
			strconv.Itoa(t.Level),
		})
	}
	return rows
}

func (r *Reporter) pairRows() [][]string {
	rows := [][]string{{
		"buy_trade_id", "buy_order_id", "buy_ts", "buy_px",
		"sell_trade_id", "sell_order_id", "sell_ts", "sell_px",
		"qty", "pnl",
	}}
	for _, p := range r.pairs {
		rows = append(rows, []string{
			strconv.FormatUint(p.Buy.ID, 10),
			strconv.FormatUint(p.Buy.OrderID, 10),
			p.Buy.Time.Format(tsLayout),
			p.Buy.Price.StringFixed(places),
			strconv.FormatUint(p.Sell.ID, 10),
			strconv.FormatUint(p.Sell.OrderID, 10),
			p.Sell.Time.Format(tsLayout),
			p.Sell.Price.StringFixed(places),
			strconv.FormatInt(p.Qty, 10),
			p.PnL().StringFixed(places),
		})
	}
	return rows
}

// Unrealized returns (price - avgCost) * qty summed over the snapshot.
func Unrealized(snapshot []domain.Position, priceFn PriceFunc) decimal.Decimal {
	_, total := positionRows(snapshot, priceFn)
	return total
}

func positionRows(snapshot []domain.Position, priceFn PriceFunc) ([][]string, decimal.Decimal) {
	rows := [][]string{{"level_idx", "level_px", "qty", "avg_cost", "unrealized_pnl"}}
	total := decimal.Zero
	for _, p := range snapshot {
		levelPx := p.AvgCost
		if priceFn != nil {
			levelPx = priceFn(p.Level)
		}
		unreal := decimal.Zero
		if p.Qty > 0 {
			unreal = levelPx.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Qty))
		}
		total = total.Add(unreal)
		rows = append(rows, []string{
			strconv.Itoa(p.Level),
			levelPx.StringFixed(places),
			strconv.FormatInt(p.Qty, 10),
			p.AvgCost.StringFixed(places),
			unreal.StringFixed(places),
		})
	}
	return rows, total
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
