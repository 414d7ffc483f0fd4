package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"grid_go/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Feed kinds.
const (
	FeedReplay = "replay"
	FeedHTTP   = "http"
	FeedWS     = "ws"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Grid struct {
		Symbol     string           `yaml:"symbol"`
		Step       decimal.Decimal  `yaml:"step"`
		UpGrids    int              `yaml:"up_grids"`
		DownGrids  int              `yaml:"down_grids"`
		LotPerGrid int64            `yaml:"lot_per_grid"` // Hands per order
		HandSize   int64            `yaml:"hand_size"`    // Shares per hand
		Baseline   *decimal.Decimal `yaml:"baseline"`     // Empty: use the day's open
	} `yaml:"grid"`

	Runtime struct {
		PollIntervalMS int    `yaml:"poll_interval_ms"`
		OutDir         string `yaml:"out_dir"`
		TimeZone       string `yaml:"time_zone"`
	} `yaml:"runtime"`

	Feed struct {
		Kind           string `yaml:"kind"` // replay | http | ws
		ReplayFile     string `yaml:"replay_file"`
		URL            string `yaml:"url"`
		TimeoutSec     int    `yaml:"timeout_sec"`
		MaxRetries     int    `yaml:"max_retries"`
		PingIntervalMS int    `yaml:"ping_interval_ms"`
	} `yaml:"feed"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Metrics struct {
		Addr        string   `yaml:"addr"` // Empty disables the HTTP endpoint
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A .env next to the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 환경 변수 오버라이드 지원
	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the values used for anything the file leaves out.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "grid_go"
	cfg.Grid.Step = decimal.RequireFromString("0.001")
	cfg.Grid.UpGrids = 10
	cfg.Grid.DownGrids = 20
	cfg.Grid.LotPerGrid = 10
	cfg.Grid.HandSize = 100
	cfg.Runtime.PollIntervalMS = 1900
	cfg.Runtime.OutDir = "data/grid"
	cfg.Runtime.TimeZone = "Asia/Shanghai"
	cfg.Feed.Kind = FeedReplay
	cfg.Feed.TimeoutSec = 10
	cfg.Feed.MaxRetries = 3
	cfg.Feed.PingIntervalMS = 30000
	cfg.Storage.Path = "data/grid.db"
	cfg.Logging.Level = "info"
	cfg.Logging.File = "logs/app.log"
	return cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Grid.Symbol) == "" {
		return &domain.ConfigError{Field: "grid.symbol", Err: errors.New("symbol is required")}
	}
	if !c.Grid.Step.IsPositive() {
		return &domain.ConfigError{Field: "grid.step", Err: fmt.Errorf("must be positive, got %s", c.Grid.Step)}
	}
	if c.Grid.UpGrids < 0 || c.Grid.DownGrids < 0 {
		return &domain.ConfigError{Field: "grid.up_grids/down_grids", Err: errors.New("must not be negative")}
	}
	if c.Lot() <= 0 {
		return &domain.ConfigError{Field: "grid.lot_per_grid", Err: fmt.Errorf("lot must be positive, got %d", c.Lot())}
	}
	if c.Grid.Baseline != nil && !c.Grid.Baseline.IsPositive() {
		return &domain.ConfigError{Field: "grid.baseline", Err: errors.New("must be positive when set")}
	}
	if c.Runtime.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "runtime.poll_interval_ms", Err: errors.New("must be positive")}
	}
	if _, err := time.LoadLocation(c.Runtime.TimeZone); err != nil {
		return &domain.ConfigError{Field: "runtime.time_zone", Err: err}
	}

	switch c.Feed.Kind {
	case FeedReplay:
		if c.Feed.ReplayFile == "" {
			return &domain.ConfigError{Field: "feed.replay_file", Err: errors.New("required for replay feed")}
		}
	case FeedHTTP:
		if !hasPrefix(c.Feed.URL, "http://") && !hasPrefix(c.Feed.URL, "https://") {
			return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("invalid HTTP URL: %s", c.Feed.URL)}
		}
	case FeedWS:
		if !hasPrefix(c.Feed.URL, "ws://") && !hasPrefix(c.Feed.URL, "wss://") {
			return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("invalid WS URL: %s", c.Feed.URL)}
		}
	default:
		return &domain.ConfigError{Field: "feed.kind", Err: fmt.Errorf("unknown feed kind %q", c.Feed.Kind)}
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("required when storage is enabled")}
	}
	return nil
}

// Lot is the standard order size in shares.
func (c *Config) Lot() int64 {
	return c.Grid.LotPerGrid * c.Grid.HandSize
}

// PollInterval returns the tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Runtime.PollIntervalMS) * time.Millisecond
}

// Replay reports whether ticks come from a recorded file.
func (c *Config) Replay() bool {
	return c.Feed.Kind == FeedReplay
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("GRID_SYMBOL"); v != "" {
		cfg.Grid.Symbol = v
	}
	if v := os.Getenv("GRID_BASELINE"); v != "" {
		b, err := decimal.NewFromString(v)
		if err != nil {
			return &domain.ConfigError{Field: "GRID_BASELINE", Err: err}
		}
		cfg.Grid.Baseline = &b
	}
	if v := os.Getenv("GRID_OUT_DIR"); v != "" {
		cfg.Runtime.OutDir = v
	}
	if v := os.Getenv("GRID_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("GRID_REPLAY_FILE"); v != "" {
		cfg.Feed.ReplayFile = v
		cfg.Feed.Kind = FeedReplay
	}
	if v := os.Getenv("GRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
