// Package replay serves recorded ticks from a CSV file as a quote source.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"grid_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Column aliases, first match wins.
var (
	timeColumns  = []string{"servertime", "time", "stime", "date"}
	priceColumns = []string{"price", "lastPrice", "close"}
	bidColumns   = []string{"bid1", "bidPrice1"}
	askColumns   = []string{"ask1", "askPrice1"}
	openColumns  = []string{"open"}
)

// Source replays ticks in time order and then reports ErrStreamExhausted.
type Source struct {
	symbol string
	quotes []domain.Quote

	mu  sync.Mutex
	idx int
}

// Load reads a tick CSV for symbol; times without a zone are read in loc.
func Load(path, symbol string, loc *time.Location) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	src, err := Parse(f, symbol, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Replay source loaded",
		slog.String("file", path),
		slog.String("symbol", symbol),
		slog.Int("ticks", src.Len()),
	)
	return src, nil
}

// Parse reads ticks from r. The header row selects columns by name.
func Parse(r io.Reader, symbol string, loc *time.Location) (*Source, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("replay file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := indexColumns(header)
	priceIdx := pick(cols, priceColumns)
	bidIdx := pick(cols, bidColumns)
	askIdx := pick(cols, askColumns)
	if priceIdx < 0 && (bidIdx < 0 || askIdx < 0) {
		return nil, fmt.Errorf("no price column in header %v", header)
	}
	timeIdx := pick(cols, timeColumns)
	openIdx := pick(cols, openColumns)

	var quotes []domain.Quote
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		q := domain.Quote{
			Symbol: symbol,
			Last:   field(rec, priceIdx),
			Bid:    field(rec, bidIdx),
			Ask:    field(rec, askIdx),
			Open:   field(rec, openIdx),
		}
		if timeIdx >= 0 && timeIdx < len(rec) {
			ts, err := domain.ParseQuoteTime(rec[timeIdx], loc)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			q.Time = ts
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil, errors.New("replay file has no ticks")
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Time.Before(quotes[j].Time)
	})
	return &Source{symbol: symbol, quotes: quotes}, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func pick(cols map[string]int, aliases []string) int {
	for _, a := range aliases {
		if i, ok := cols[a]; ok {
			return i
		}
	}
	return -1
}

// field parses a decimal cell; blanks and junk read as zero ("not provided").
func field(rec []string, idx int) decimal.Decimal {
	if idx < 0 || idx >= len(rec) {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.TrimSpace(rec[idx]))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Fetch returns the next tick. Requests for another symbol are retriable
// misses and do not advance the stream.
func (s *Source) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	if symbol != s.symbol {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.quotes) {
		return domain.Quote{}, domain.ErrStreamExhausted
	}
	q := s.quotes[s.idx]
	s.idx++
	return q, nil
}

// Len returns the total number of ticks.
func (s *Source) Len() int { return len(s.quotes) }

// Remaining returns how many ticks have not been served yet.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes) - s.idx
}
