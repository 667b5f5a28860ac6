package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitr77/extraliga/internal/app"
	"github.com/pitr77/extraliga/internal/config"
	"github.com/pitr77/extraliga/internal/nhl"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	once := flag.Bool("once", false, "warm the cache once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cache.RedisAddr == "" {
		slog.Error("collector needs REDIS_ADDR to share the warmed cache")
		os.Exit(1)
	}
	a, err := app.New(ctx, cfg, app.Options{Warm: true})
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	run := func() {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		start := time.Now()
		report, err := a.Season.Report(ctx, time.Time{}, time.Time{})
		if err != nil {
			slog.Warn("season warm-up failed", "error", err)
			return
		}
		for _, url := range []string{nhl.StandingsNowURL, nhl.ScoreboardNowURL, nhl.PartnerOddsURL} {
			if _, err := a.NHL.Raw(ctx, url); err != nil {
				slog.Warn("proxy warm-up failed", "url", url, "error", err)
			}
		}
		if err := a.Redis.MarkWarmed(ctx, time.Now()); err != nil {
			slog.Warn("mark warmed failed", "error", err)
		}
		slog.Info("cache warmed",
			"matches", len(report.Matches),
			"teams", len(report.TeamRatings),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	slog.Info("collector started", "interval", cfg.Collector.Interval)
	run()
	if *once {
		return
	}
	ticker := time.NewTicker(cfg.Collector.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("collector shutting down", "reason", ctx.Err())
			return
		case <-ticker.C:
			run()
		}
	}
}
