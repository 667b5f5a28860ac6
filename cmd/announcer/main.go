package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pitr77/extraliga/internal/board"
	"github.com/pitr77/extraliga/internal/config"
	"github.com/pitr77/extraliga/internal/discord"
	"github.com/pitr77/extraliga/internal/fetch"
)

const statusInterval = 3 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	if cfg.Discord.Token == "" {
		slog.Info("DISCORD_BOT_TOKEN not set; announcer disabled")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := fetch.New(nil, fetch.Options{MaxAttempts: cfg.Fetch.MaxAttempts, Timeout: 2 * time.Minute}, fetch.NewCache(cfg.Cache.TTL, nil))
	client := board.NewClient(f, cfg.Board.APIURL)

	bot, err := discord.NewBot(discord.Config{Token: cfg.Discord.Token})
	if err != nil {
		slog.Error("discord bot create failed", "error", err)
		os.Exit(1)
	}
	bot.AddInteractionHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		switch i.ApplicationCommandData().Name {
		case "ping":
			discord.Respond(s, i, discord.PongMessage)
		case "ratings":
			discord.DeferRespond(s, i, func() string {
				rep, err := client.Report(ctx, time.Time{}, time.Time{})
				if err != nil {
					return discord.ErrorMessage("ratings", err)
				}
				return discord.RatingsMessage(rep.TeamRatings, discord.MaxListed)
			})
		case "top3":
			discord.DeferRespond(s, i, func() string {
				rep, err := client.Report(ctx, time.Time{}, time.Time{})
				if err != nil {
					return discord.ErrorMessage("top players", err)
				}
				return discord.Top3Message(rep.Martingale.Top3)
			})
		case "martingale":
			discord.DeferRespond(s, i, func() string {
				rep, err := client.Report(ctx, time.Time{}, time.Time{})
				if err != nil {
					return discord.ErrorMessage("martingale", err)
				}
				return discord.MartingaleMessage(rep.Martingale)
			})
		}
	})
	bot.Session().AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord connected", "user", r.User.Username, "id", r.User.ID)
	})

	slog.Info("connecting to Discord gateway...")
	if err := bot.Session().Open(); err != nil {
		slog.Error("discord open failed", "error", err)
		os.Exit(1)
	}
	defer bot.Session().Close()

	registered, err := bot.RegisterSlashCommands(cfg.Discord.GuildID)
	if err != nil {
		slog.Warn("discord register commands failed", "error", err)
	} else {
		slog.Info("discord slash commands registered", "count", len(registered), "guild_id", cfg.Discord.GuildID)
	}

	runStatusUpdates(ctx, bot, client)
	slog.Info("announcer shutting down", "reason", ctx.Err())
}

// runStatusUpdates shows the live match, if any, as the bot's activity.
func runStatusUpdates(ctx context.Context, bot *discord.Bot, client *board.Client) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	update := func() {
		// Evening games in North America start on the next UTC day.
		today := time.Now().UTC()
		rep, err := client.Report(ctx, today.AddDate(0, 0, -1), today)
		if err != nil {
			slog.Warn("status update: fetch matches failed", "error", err)
			return
		}
		home, away := "", ""
		if m, ok := discord.LiveMatch(rep.Matches); ok {
			home, away = m.HomeTeam.DisplayName, m.AwayTeam.DisplayName
		}
		if err := bot.SetWatchingStatus(home, away); err != nil {
			slog.Warn("status update failed", "error", err)
		}
	}
	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
