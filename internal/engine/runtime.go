package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/execution"
	"grid_go/internal/grid"
	"grid_go/internal/report"
	"grid_go/internal/strategy"

	"github.com/shopspring/decimal"
)

// maxReplayMisses bounds consecutive unusable replay ticks. Replay never
// sleeps, so a source that keeps failing would otherwise spin forever.
const maxReplayMisses = 100

// ErrReplayStalled stops a replay whose source keeps returning unusable ticks.
var ErrReplayStalled = errors.New("replay source stalled")

// Config is what the runtime needs to trade one symbol for one day.
type Config struct {
	Symbol       string
	Step         decimal.Decimal
	UpGrids      int
	DownGrids    int
	Lot          int64 // Standard lot in shares
	OutDir       string
	PollInterval time.Duration
	Baseline     *decimal.Decimal // nil: wait for the day's open
	Replay       bool             // touch fills, no sleeps, no session gating
}

// Runtime is the single-threaded grid trading loop.
// All state is owned by the goroutine calling Run.
type Runtime struct {
	cfg     Config
	source  domain.QuoteSource
	clock   Clock
	session Session

	observer Observer
	archive  domain.ReportArchive
	runID    string

	sim      *execution.Simulator
	book     *domain.PositionBook
	reporter *report.Reporter

	// Set once the baseline is known.
	spec   grid.Spec
	engine *grid.Engine
	policy strategy.Policy

	lastPrice     decimal.Decimal
	lastQuoteTime time.Time
	halted        bool
	misses        int

	flushed bool
	summary report.Summary
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

// WithSession overrides the trading calendar.
func WithSession(s Session) Option {
	return func(r *Runtime) { r.session = s }
}

// WithObserver installs a telemetry sink.
func WithObserver(o Observer) Option {
	return func(r *Runtime) { r.observer = o }
}

// WithArchive stores every flushed day under runID.
func WithArchive(a domain.ReportArchive, runID string) Option {
	return func(r *Runtime) {
		r.archive = a
		r.runID = runID
	}
}

// WithSimulator injects the order simulator (and with it the ID sequences).
func WithSimulator(s *execution.Simulator) Option {
	return func(r *Runtime) { r.sim = s }
}

// NewRuntime wires a runtime around source.
func NewRuntime(cfg Config, source domain.QuoteSource, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:      cfg,
		source:   source,
		clock:    RealClock{},
		observer: nopObserver{},
		book:     domain.NewPositionBook(),
		reporter: report.NewReporter(cfg.OutDir, cfg.Symbol),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.session.loc == nil {
		if s, err := LoadSession(DefaultTimeZone); err == nil {
			r.session = s
		} else {
			slog.Warn("Falling back to UTC session", slog.Any("error", err))
			r.session = NewSession(time.UTC)
		}
	}
	if r.sim == nil {
		r.sim = execution.NewSimulator()
	}
	return r
}

// Run waits for a baseline, trades until the session ends, the stream is
// exhausted, or ctx is cancelled, and always flushes the day's reports.
// A panic inside the loop is re-raised after the flush.
func (r *Runtime) Run(ctx context.Context) (sum report.Summary, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", p))
			if _, ferr := r.flush(); ferr != nil {
				slog.Error("Flush after panic failed", slog.Any("error", ferr))
			}
			panic(fmt.Sprintf("HALTED: %v", p))
		}
	}()

	baseline, source, err := r.waitBaseline(ctx)
	if err != nil {
		slog.Warn("Stopped before a baseline was known", slog.Any("reason", err))
		return r.flush()
	}
	r.start(baseline, source)

	for {
		if r.tick(ctx) {
			return r.flush()
		}
	}
}

// waitBaseline returns the configured baseline, or blocks until the market
// has opened and a snapshot carries an opening price.
func (r *Runtime) waitBaseline(ctx context.Context) (decimal.Decimal, string, error) {
	if r.cfg.Baseline != nil {
		return *r.cfg.Baseline, "config", nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, "", err
		}
		if !r.cfg.Replay && !r.session.Opened(r.clock.Now()) {
			if err := r.sleep(ctx); err != nil {
				return decimal.Zero, "", err
			}
			continue
		}

		q, err := r.source.Fetch(ctx, r.cfg.Symbol)
		if errors.Is(err, domain.ErrStreamExhausted) {
			return decimal.Zero, "", err
		}
		if err == nil {
			r.noteQuote(q)
			if q.HasOpen() {
				return q.Open, "open", nil
			}
			r.misses = 0
		} else {
			slog.Debug("Waiting for opening price", slog.Any("error", err))
			if r.miss() {
				return decimal.Zero, "", ErrReplayStalled
			}
		}
		if err := r.sleep(ctx); err != nil {
			return decimal.Zero, "", err
		}
	}
}

// start builds the ladder and seeds one lot on every level above the baseline.
func (r *Runtime) start(baseline decimal.Decimal, source string) {
	r.spec = grid.NewSpec(baseline, r.cfg.Step, r.cfg.UpGrids, r.cfg.DownGrids)
	r.engine = grid.NewEngine(r.spec)
	if r.policy == nil {
		r.policy = strategy.NewLadderPolicy(r.spec, r.cfg.Lot)
	}

	for lvl := 1; lvl <= r.spec.MaxLevel(); lvl++ {
		r.book.Add(lvl, baseline, r.cfg.Lot)
	}

	lo, hi := r.spec.Bounds()
	slog.Info("Grid runtime started",
		slog.String("symbol", r.cfg.Symbol),
		slog.String("baseline", baseline.String()),
		slog.String("baseline_source", source),
		slog.String("step", r.cfg.Step.String()),
		slog.String("lower", lo.String()),
		slog.String("upper", hi.String()),
		slog.Int("levels", r.spec.Count()),
		slog.Int64("lot", r.cfg.Lot),
		slog.Bool("replay", r.cfg.Replay),
	)
	r.publishPnL()
}

// tick runs one loop iteration and reports whether the loop should stop.
func (r *Runtime) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		slog.Info("Runtime interrupted")
		return true
	}

	now := r.clock.Now()
	if !r.cfg.Replay && r.session.PastClose(now) {
		slog.Info("Session closed", slog.Time("now", now))
		return true
	}

	q, err := r.source.Fetch(ctx, r.cfg.Symbol)
	if errors.Is(err, domain.ErrStreamExhausted) {
		slog.Info("Quote stream exhausted")
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		slog.Warn("Skipping tick",
			slog.String("reason", SkipFetchError),
			slog.Bool("retriable", domain.IsRetriable(err)),
			slog.Any("error", err),
		)
		return r.skip(ctx, SkipFetchError) || r.miss()
	}

	price, ok := q.Price(r.lastPrice)
	if !ok {
		slog.Warn("Skipping tick", slog.String("reason", SkipNoPrice), slog.String("symbol", r.cfg.Symbol))
		return r.skip(ctx, SkipNoPrice) || r.miss()
	}
	r.misses = 0
	r.lastPrice = price
	r.noteQuote(q)
	r.observer.TickProcessed()

	crossed := r.engine.UpdatePrice(price)
	r.trackHalt(price)

	if !r.cfg.Replay && !r.session.InSession(now) {
		return r.skip(ctx, SkipOutOfSession)
	}
	if r.engine.Halted() {
		return r.skip(ctx, SkipHalted)
	}

	ts := r.tradeTime(q)
	for _, lvl := range crossed {
		r.onLevel(lvl, ts)
	}
	if r.cfg.Replay {
		r.sweep(price, ts)
	}
	return r.sleep(ctx) != nil
}

func (r *Runtime) skip(ctx context.Context, reason string) bool {
	r.observer.TickSkipped(reason)
	return r.sleep(ctx) != nil
}

// miss counts an unusable replay tick and reports whether the replay stalled.
func (r *Runtime) miss() bool {
	if !r.cfg.Replay {
		return false
	}
	r.misses++
	if r.misses < maxReplayMisses {
		return false
	}
	slog.Error("Stopping replay",
		slog.Any("reason", ErrReplayStalled),
		slog.Int("consecutive_misses", r.misses),
		slog.String("symbol", r.cfg.Symbol),
	)
	return true
}

func (r *Runtime) trackHalt(price decimal.Decimal) {
	halted := r.engine.Halted()
	if halted == r.halted {
		return
	}
	r.halted = halted
	r.observer.SetHalted(halted)
	if halted {
		slog.Warn("Price left grid, trading halted", slog.String("price", price.String()))
	} else {
		slog.Info("Price back in grid, trading resumed", slog.String("price", price.String()))
	}
}

// onLevel applies the ladder policy to a crossed level, then fills whatever
// now rests on it at the level price.
func (r *Runtime) onLevel(level int, ts time.Time) {
	if r.sim.HasOrder(level) {
		return
	}
	for _, a := range r.policy.OnLevel(level, r.sim, r.book) {
		r.place(a)
	}
	if r.sim.HasOrder(level) {
		r.fill(level, ts)
	}
}

// sweep fills every resting order the tick price touches.
func (r *Runtime) sweep(price decimal.Decimal, ts time.Time) {
	for lvl := r.spec.MinLevel(); lvl <= r.spec.MaxLevel(); lvl++ {
		o, ok := r.sim.OrderAt(lvl)
		if !ok {
			continue
		}
		levelPx := r.spec.Price(lvl)
		if (o.Side == domain.SideBuy && price.LessThanOrEqual(levelPx)) ||
			(o.Side == domain.SideSell && price.GreaterThanOrEqual(levelPx)) {
			r.fill(lvl, ts)
		}
	}
}

func (r *Runtime) place(a strategy.Action) {
	placed, replaced, ok := r.sim.Place(a.Level, a.Type.Side(), a.Qty)
	if !ok {
		return
	}
	if replaced != nil && replaced.Side != placed.Side {
		slog.Warn("Resting order replaced by opposite side",
			slog.Int("level", placed.Level),
			slog.Uint64("old_order_id", replaced.ID),
			slog.String("old_side", string(replaced.Side)),
			slog.Uint64("new_order_id", placed.ID),
			slog.String("new_side", string(placed.Side)),
		)
	}
	r.observer.OrderPlaced(placed.Side)
	slog.Debug("Order placed",
		slog.Uint64("order_id", placed.ID),
		slog.Int("level", placed.Level),
		slog.String("side", string(placed.Side)),
		slog.String("price", a.Price.String()),
		slog.Int64("qty", placed.Qty),
	)
}

// fill matches the order on level at the level price and books it.
// A BUY credits the level above (the same level at the top of the grid).
func (r *Runtime) fill(level int, ts time.Time) {
	tr, ok := r.sim.Match(level, ts, r.spec.Price(level))
	if !ok {
		return
	}

	switch tr.Side {
	case domain.SideBuy:
		target := level + 1
		if !r.spec.Contains(target) {
			target = level
		}
		r.book.Add(target, tr.Price, tr.Qty)
	case domain.SideSell:
		if realized := r.book.Sell(level, tr.Qty); realized < tr.Qty {
			r.observer.OverSell()
			slog.Warn("Sell exceeded holdings, clipped",
				slog.Int("level", level),
				slog.Int64("requested", tr.Qty),
				slog.Int64("realized", realized),
			)
		}
	}
	r.book.VerifyAll()

	pairs := r.reporter.LogTrade(tr)
	r.observer.OrderFilled(tr.Side)
	slog.Info("Order filled",
		slog.Uint64("trade_id", tr.ID),
		slog.Uint64("order_id", tr.OrderID),
		slog.Int("level", level),
		slog.String("side", string(tr.Side)),
		slog.String("price", tr.Price.String()),
		slog.Int64("qty", tr.Qty),
		slog.Int("pairs", len(pairs)),
	)
	r.publishPnL()
}

func (r *Runtime) publishPnL() {
	unrealized := decimal.Zero
	if r.engine != nil {
		unrealized = report.Unrealized(r.book.Snapshot(), r.spec.Price)
	}
	r.observer.SetPnL(r.reporter.RealizedPnL(), unrealized)
}

func (r *Runtime) noteQuote(q domain.Quote) {
	if !q.Time.IsZero() {
		r.lastQuoteTime = q.Time
	}
}

// tradeTime prefers the quote's own timestamp so replays stay on their day.
func (r *Runtime) tradeTime(q domain.Quote) time.Time {
	if !q.Time.IsZero() {
		return q.Time
	}
	return r.clock.Now()
}

func (r *Runtime) sleep(ctx context.Context) error {
	if r.cfg.Replay {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(r.cfg.PollInterval):
		return nil
	}
}

func (r *Runtime) flushDay() time.Time {
	if r.cfg.Replay && !r.lastQuoteTime.IsZero() {
		return r.lastQuoteTime.In(r.session.Location())
	}
	return r.clock.Now().In(r.session.Location())
}

// flush writes the EOD artifacts once; later calls return the first result.
func (r *Runtime) flush() (report.Summary, error) {
	if r.flushed {
		return r.summary, nil
	}
	r.flushed = true

	var priceFn report.PriceFunc
	if r.engine != nil {
		priceFn = r.spec.Price
	}
	day := r.flushDay()
	sum, err := r.reporter.FlushEndOfDay(day, r.book.Snapshot(), priceFn)
	if err != nil {
		slog.Error("Failed to flush end-of-day reports", slog.Any("error", err))
		return sum, fmt.Errorf("flush end of day: %w", err)
	}
	r.summary = sum
	r.observer.SetPnL(sum.Realized, sum.Unrealized)
	r.archiveDay(sum)
	return sum, nil
}

func (r *Runtime) archiveDay(sum report.Summary) {
	if r.archive == nil {
		return
	}
	rec := &domain.DailyReport{
		RunID:      r.runID,
		Symbol:     r.cfg.Symbol,
		Day:        sum.Day,
		Realized:   sum.Realized.StringFixed(grid.PricePlaces),
		Unrealized: sum.Unrealized.StringFixed(grid.PricePlaces),
		Net:        sum.Net.StringFixed(grid.PricePlaces),
		TradeCount: sum.TradeCount,
		PairCount:  sum.PairCount,
		Dir:        sum.Dir,
	}
	if err := r.archive.SaveDay(rec, r.reporter.Trades()); err != nil {
		slog.Error("Failed to archive day", slog.Any("error", err))
	}
}

// Spec returns the active ladder; zero until a baseline is known.
func (r *Runtime) Spec() grid.Spec { return r.spec }

// Positions returns a snapshot of the per-level inventory.
func (r *Runtime) Positions() []domain.Position { return r.book.Snapshot() }

// PendingOrders returns the resting orders ascending by level.
func (r *Runtime) PendingOrders() []domain.Order { return r.sim.Pending() }

// Reporter exposes the trade log and pairs.
func (r *Runtime) Reporter() *report.Reporter { return r.reporter }
