package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/engine"
	"grid_go/internal/infra"
	"grid_go/internal/infra/api"
	"grid_go/internal/infra/httpfeed"
	"grid_go/internal/infra/replay"
	"grid_go/internal/infra/storage"
	"grid_go/internal/infra/wsfeed"
	"grid_go/internal/service"

	"github.com/google/uuid"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Metrics *infra.Metrics
	Storage *storage.Storage // nil unless storage is enabled
	Session engine.Session
	RunID   string
	Source  domain.QuoteSource
	Runtime *engine.Runtime

	feed domain.QuoteFeed
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization from the config at path.
func (b *Bootstrap) Initialize(path string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}
	return b.InitializeWith(cfg)
}

// InitializeWith builds everything from an already loaded config.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping grid simulator...", slog.String("symbol", cfg.Grid.Symbol))

	// 3. Session calendar
	session, err := engine.LoadSession(cfg.Runtime.TimeZone)
	if err != nil {
		return err
	}
	b.Session = session
	b.RunID = uuid.NewString()
	b.Metrics = infra.NewMetrics(cfg.Grid.Symbol)

	// 4. Initialize Storage (DB)
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))
	}

	// 5. Quote source
	src, err := b.newSource(cfg, session.Location())
	if err != nil {
		return err
	}
	b.Source = &countingSource{next: src, metrics: b.Metrics}

	// 6. Runtime
	opts := []engine.Option{
		engine.WithSession(session),
		engine.WithObserver(b.Metrics),
	}
	if b.Storage != nil {
		opts = append(opts, engine.WithArchive(b.Storage, b.RunID))
	}
	b.Runtime = engine.NewRuntime(engine.Config{
		Symbol:       cfg.Grid.Symbol,
		Step:         cfg.Grid.Step,
		UpGrids:      cfg.Grid.UpGrids,
		DownGrids:    cfg.Grid.DownGrids,
		Lot:          cfg.Lot(),
		OutDir:       cfg.Runtime.OutDir,
		PollInterval: cfg.PollInterval(),
		Baseline:     cfg.Grid.Baseline,
		Replay:       cfg.Replay(),
	}, b.Source, opts...)

	slog.Info("✅ Runtime ready",
		slog.String("run_id", b.RunID),
		slog.String("feed", cfg.Feed.Kind),
		slog.Bool("archive", b.Storage != nil))
	return nil
}

func (b *Bootstrap) newSource(cfg *infra.Config, loc *time.Location) (domain.QuoteSource, error) {
	switch cfg.Feed.Kind {
	case infra.FeedReplay:
		src, err := replay.Load(cfg.Feed.ReplayFile, cfg.Grid.Symbol, loc)
		if err != nil {
			return nil, err
		}
		slog.Info("✅ Replay loaded", slog.String("file", cfg.Feed.ReplayFile), slog.Int("ticks", src.Len()))
		return src, nil
	case infra.FeedHTTP:
		timeout := time.Duration(cfg.Feed.TimeoutSec) * time.Second
		return httpfeed.NewClient(cfg.Feed.URL, timeout, cfg.Feed.MaxRetries, loc), nil
	case infra.FeedWS:
		cache := service.NewQuoteCache()
		ping := time.Duration(cfg.Feed.PingIntervalMS) * time.Millisecond
		w := wsfeed.NewWorker(cfg.Feed.URL, []string{cfg.Grid.Symbol}, cache, ping, loc).WithTracker(b.Metrics)
		b.feed = w
		return w, nil
	}
	return nil, &domain.ConfigError{Field: "feed.kind", Err: fmt.Errorf("unknown feed kind %q", cfg.Feed.Kind)}
}

// Start launches background feeds and returns the func that stops them.
func (b *Bootstrap) Start(ctx context.Context) (stop func(), err error) {
	if b.feed == nil {
		return func() {}, nil
	}
	if w, ok := b.feed.(*wsfeed.Worker); ok {
		w.Cache().StartProcessor(ctx)
	}
	if err := b.feed.Connect(ctx); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "✅ Quote feed started", slog.String("url", b.Config.Feed.URL))
	return b.feed.Disconnect, nil
}

// HTTPHandler serves metrics, health, and the day archive.
func (b *Bootstrap) HTTPHandler() http.Handler {
	var store api.DayStore
	if b.Storage != nil {
		store = b.Storage
	}
	return api.NewServer(store, b.Metrics.Handler(), b.Config.Metrics.CORSOrigins).Handler()
}

// Close releases storage.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}

// countingSource records feed errors before handing them to the runtime.
type countingSource struct {
	next    domain.QuoteSource
	metrics *infra.Metrics
}

func (s *countingSource) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	q, err := s.next.Fetch(ctx, symbol)
	if err != nil && !errors.Is(err, domain.ErrStreamExhausted) && ctx.Err() == nil {
		s.metrics.RecordError()
	}
	return q, err
}
