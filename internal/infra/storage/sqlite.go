package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"grid_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// priceScale matches the fixed precision ladder prices are rounded to.
const priceScale = 6

// Storage archives flushed trading days in SQLite and implements
// domain.ReportArchive.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.DailyReport{}, &domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Day Operations
// ======================================================================================

// SaveDay stores the summary and the day's fills in one transaction.
// Saving the same run and day again replaces the earlier rows.
func (s *Storage) SaveDay(report *domain.DailyReport, trades []domain.Trade) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ? AND symbol = ? AND day = ?", report.RunID, report.Symbol, report.Day).
			Delete(&domain.DailyReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ? AND symbol = ? AND day = ?", report.RunID, report.Symbol, report.Day).
			Delete(&domain.TradeRecord{}).Error; err != nil {
			return err
		}

		report.ID = 0
		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("failed to save daily report: %w", err)
		}
		if len(trades) == 0 {
			return nil
		}

		records := make([]domain.TradeRecord, 0, len(trades))
		for _, t := range trades {
			records = append(records, domain.TradeRecord{
				RunID:    report.RunID,
				Symbol:   report.Symbol,
				Day:      report.Day,
				TradeID:  t.ID,
				OrderID:  t.OrderID,
				Side:     string(t.Side),
				Price:    t.Price.StringFixed(priceScale),
				Qty:      t.Qty,
				Level:    t.Level,
				TradedAt: t.Time,
			})
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("failed to save trades: %w", err)
		}
		return nil
	})
}

// ListDays returns the archived days for symbol, newest first.
func (s *Storage) ListDays(symbol string) ([]domain.DailyReport, error) {
	var reports []domain.DailyReport
	err := s.db.Where("symbol = ?", symbol).Order("day desc, id desc").Find(&reports).Error
	return reports, err
}

// GetDay returns the latest archived summary for symbol and day, or nil.
func (s *Storage) GetDay(symbol, day string) (*domain.DailyReport, error) {
	var reports []domain.DailyReport
	if err := s.db.Where("symbol = ? AND day = ?", symbol, day).Order("id desc").Limit(1).Find(&reports).Error; err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil // Not found is not an error
	}
	return &reports[0], nil
}

// TradesForDay returns the archived fills of one run and day in trade order.
func (s *Storage) TradesForDay(runID, symbol, day string) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	err := s.db.Where("run_id = ? AND symbol = ? AND day = ?", runID, symbol, day).
		Order("trade_id asc").Find(&trades).Error
	return trades, err
}
