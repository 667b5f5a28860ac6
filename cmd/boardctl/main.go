package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitr77/extraliga/internal/board"
	"github.com/pitr77/extraliga/internal/config"
	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/match"
)

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(match.DateLayout, s)
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	apiURL := flag.String("api", "", "board API base URL (overrides BOARD_API_URL)")
	fromFlag := flag.String("from", "", "first day, YYYY-MM-DD (default: season start)")
	toFlag := flag.String("to", "", "last day, YYYY-MM-DD (default: today)")
	top := flag.Int("top", board.TopPlayers, "players to list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())
	if *apiURL != "" {
		cfg.Board.APIURL = *apiURL
	}
	from, err := parseDay(*fromFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-from:", err)
		os.Exit(2)
	}
	to, err := parseDay(*toFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-to:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server already caches; the client only needs retries.
	f := fetch.New(nil, fetch.Options{MaxAttempts: cfg.Fetch.MaxAttempts, Timeout: 2 * time.Minute}, nil)
	rep, err := board.NewClient(f, cfg.Board.APIURL).Report(ctx, from, to)
	if err != nil {
		slog.Error("report fetch failed", "api", cfg.Board.APIURL, "error", err)
		os.Exit(1)
	}

	r := board.NewRenderer()
	r.Matches(rep.Matches)
	r.TeamRatings(rep.TeamRatings)
	r.PlayerRatings(rep.PlayerRatings, *top)
	r.Martingale(rep.Martingale)
}
