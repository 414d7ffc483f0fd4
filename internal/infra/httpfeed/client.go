// Package httpfeed polls a JSON snapshot endpoint for live quotes.
package httpfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/shopspring/decimal"
)

// snapshotRow is one instrument in the snapshot response.
type snapshotRow struct {
	Code       string          `json:"code"`
	ServerTime string          `json:"servertime"`
	Price      decimal.Decimal `json:"price"`
	Bid1       decimal.Decimal `json:"bid1"`
	Ask1       decimal.Decimal `json:"ask1"`
	Open       decimal.Decimal `json:"open"`
}

// Client fetches the latest snapshot on every Fetch call.
// GET <url>?codes=<symbol> must return a JSON array of snapshot rows.
type Client struct {
	apiURL     string
	httpClient *http.Client
	maxRetries int
	loc        *time.Location
	backoff    func(retry int) time.Duration
}

// NewClient creates a client against apiURL.
func NewClient(apiURL string, timeout time.Duration, maxRetries int, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		loc:        loc,
		backoff:    infra.CalculateBackoff,
	}
}

// Fetch returns the snapshot for symbol with bounded retries.
// Retries stop early on non-retriable errors and on a missing symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			delay := c.backoff(i - 1)
			slog.Info("Retrying snapshot fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return domain.Quote{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		q, err := c.doFetch(ctx, symbol)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if !domain.IsRetriable(err) || errors.Is(err, domain.ErrSymbolNotFound) {
			break
		}
		slog.Warn("Snapshot fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
	}
	return domain.Quote{}, lastErr
}

func (c *Client) doFetch(ctx context.Context, symbol string) (domain.Quote, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return domain.Quote{}, domain.NewFatalNetworkError("parse url", err)
	}
	params := u.Query()
	params.Set("codes", symbol)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Quote{}, domain.NewFatalNetworkError("build request", err)
	}

	// Add browser-like User-Agent to avoid bot detection
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, domain.NewStatusError("fetch", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Quote{}, domain.NewNetworkError("read", err)
	}

	var rows []snapshotRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return domain.Quote{}, domain.NewNetworkError("decode", err)
	}

	for _, row := range rows {
		if row.Code != symbol {
			continue
		}
		ts, err := domain.ParseQuoteTime(row.ServerTime, c.loc)
		if err != nil {
			slog.Debug("Ignoring snapshot time", slog.String("servertime", row.ServerTime), slog.Any("error", err))
		}
		return domain.Quote{
			Symbol: symbol,
			Time:   ts,
			Last:   row.Price,
			Bid:    row.Bid1,
			Ask:    row.Ask1,
			Open:   row.Open,
		}, nil
	}
	return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
}
