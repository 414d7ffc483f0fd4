// Package wsfeed streams quotes over a WebSocket into a QuoteCache.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"
	"grid_go/internal/service"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	maxRetries          = 10
	readTimeout         = 60 * time.Second
	defaultPingInterval = 30 * time.Second
)

// quoteMessage is one pushed quote.
type quoteMessage struct {
	Type      string          `json:"type"` // quote
	Code      string          `json:"code"` // 512710.SH
	Price     decimal.Decimal `json:"price"`
	Bid1      decimal.Decimal `json:"bid1"`
	Ask1      decimal.Decimal `json:"ask1"`
	Open      decimal.Decimal `json:"open"`
	Timestamp int64           `json:"timestamp"` // Unix millis
}

// ConnTracker is notified when the connection opens or closes.
type ConnTracker interface {
	IncrementConnections()
	DecrementConnections()
}

// Worker handles the WebSocket connection and implements domain.QuoteFeed.
type Worker struct {
	url          string
	symbols      []string
	cache        *service.QuoteCache
	tracker      ConnTracker
	pingInterval time.Duration
	loc          *time.Location

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a worker that subscribes to symbols on url. Push
// timestamps are converted to loc.
func NewWorker(url string, symbols []string, cache *service.QuoteCache, pingInterval time.Duration, loc *time.Location) *Worker {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{
		url:          url,
		symbols:      symbols,
		cache:        cache,
		pingInterval: pingInterval,
		loc:          loc,
	}
}

// WithTracker attaches a connection tracker.
func (w *Worker) WithTracker(t ConnTracker) *Worker {
	w.tracker = t
	return w
}

// Connect starts the WebSocket connection loop in the background.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

// Cache returns the cache quotes are pushed into.
func (w *Worker) Cache() *service.QuoteCache {
	return w.cache
}

// IsConnected reports whether a live connection exists.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Fetch returns the latest cached quote for symbol.
func (w *Worker) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	return w.cache.Fetch(ctx, symbol)
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Quote feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	if w.tracker != nil {
		w.tracker.IncrementConnections()
	}

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	slog.Info("Quote feed connected", slog.String("url", w.url), slog.Int("subs", len(w.symbols)))
	return nil
}

func (w *Worker) subscribe() error {
	msg := map[string]interface{}{
		"type":   "subscribe",
		"ticket": fmt.Sprintf("grid-%d", time.Now().UnixNano()),
		"codes":  w.symbols,
	}
	b, _ := json.Marshal(msg)
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go w.pingLoop(pingCtx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Quote feed read failed", slog.Any("error", err))
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.threadSafeWrite(websocket.PingMessage, nil); err != nil {
				slog.Debug("Ping failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var m quoteMessage
	if json.Unmarshal(msg, &m) != nil || m.Type != "quote" || m.Code == "" {
		return
	}

	q := domain.Quote{
		Symbol: m.Code,
		Last:   m.Price,
		Bid:    m.Bid1,
		Ask:    m.Ask1,
		Open:   m.Open,
	}
	if m.Timestamp > 0 {
		q.Time = time.UnixMilli(m.Timestamp).In(w.loc)
	}

	select {
	case w.cache.QuoteChan() <- []domain.Quote{q}:
	default: // DROP
		slog.Warn("Quote cache backlog full, dropping quote", slog.String("symbol", m.Code))
	}
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		if w.tracker != nil {
			w.tracker.DecrementConnections()
		}
	}
	w.connected = false
}

// Disconnect stops the loop and closes the connection.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
