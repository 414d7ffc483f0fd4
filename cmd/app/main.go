package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grid_go/internal/app"

	_ "time/tzdata" // Session time zone without a system zoneinfo
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. HTTP Server (metrics + archive API)
	if addr := bootstrap.Config.Metrics.Addr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: bootstrap.HTTPHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("📈 HTTP server started", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// 4. Quote Feed
	stopFeed, err := bootstrap.Start(ctx)
	if err != nil {
		slog.Error("Failed to start quote feed", slog.Any("error", err))
		os.Exit(1)
	}
	defer stopFeed()

	// 5. Trading Loop (blocks until close, exhaustion, or signal)
	sum, err := bootstrap.Runtime.Run(ctx)
	if err != nil {
		slog.Error("Run failed", slog.Any("error", err))
		stopFeed()
		bootstrap.Close()
		os.Exit(1)
	}

	slog.Info("👋 Day complete",
		slog.String("day", sum.Day),
		slog.String("net_pnl", sum.Net.StringFixed(6)),
		slog.Int("trades", sum.TradeCount),
		slog.String("dir", sum.Dir))
}
