// Package discord exposes the season board as Discord slash commands.
package discord

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/pitr77/extraliga/internal/martingale"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/rating"
)

// MaxListed caps the rows a ratings reply lists.
const MaxListed = 10

// Bot wraps a Discord session.
type Bot struct {
	session *discordgo.Session
	mu      sync.Mutex
}

// Config for the Discord bot.
type Config struct {
	Token string
}

// NewBot creates a Discord bot. Token must be non-empty.
func NewBot(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Bot{session: s}, nil
}

// Session returns the discordgo session (for registering handlers and opening).
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Commands lists the slash commands the bot answers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "ratings", Description: "Team ratings for the season so far"},
		{Name: "top3", Description: "The three best-rated players"},
		{Name: "martingale", Description: "Martingale replay totals for the season"},
		{Name: "ping", Description: "Ping the bot to check if it's online"},
	}
}

// RegisterSlashCommands registers Commands. Call after Open() so State is ready.
// An empty guildID registers global commands.
func (b *Bot) RegisterSlashCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID := b.session.State.User.ID
	var registered []*discordgo.ApplicationCommand
	for _, cmd := range Commands() {
		created, err := b.session.ApplicationCommandCreate(appID, guildID, cmd)
		if err != nil {
			return registered, fmt.Errorf("create command %s: %w", cmd.Name, err)
		}
		registered = append(registered, created)
	}
	return registered, nil
}

// AddInteractionHandler registers the handler for slash commands.
func (b *Bot) AddInteractionHandler(handler func(s *discordgo.Session, i *discordgo.InteractionCreate)) {
	b.session.AddHandler(handler)
}

// StatusName returns the "Watching" activity name: "HOME vs AWAY" for a live
// match, "Nothing :(" otherwise.
func StatusName(home, away string) string {
	if home != "" && away != "" {
		return home + " vs " + away
	}
	return "Nothing :("
}

// LiveMatch returns the first in-progress match, if any.
func LiveMatch(recs []match.Record) (match.Record, bool) {
	for _, r := range recs {
		if r.Status == match.StatusInProgress {
			return r, true
		}
	}
	return match.Record{}, false
}

// SetWatchingStatus sets the bot's activity from the live match, if any.
func (b *Bot) SetWatchingStatus(home, away string) error {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Type: discordgo.ActivityTypeWatching,
				Name: StatusName(home, away),
			},
		},
	})
}

// Respond answers an interaction immediately.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		slog.Warn("discord respond failed", "error", err)
	}
}

// DeferRespond acknowledges with "thinking", then posts fn's result as a
// followup, for replies that need the season report.
func DeferRespond(s *discordgo.Session, i *discordgo.InteractionCreate, fn func() string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{},
	})
	if err != nil {
		slog.Warn("discord defer respond failed", "error", err)
		return
	}
	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:         fn(),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		slog.Warn("discord followup failed", "error", err)
	}
}

// PongMessage is the /ping reply.
const PongMessage = "🏒 **Pong!** Extraliga board is online."

// ErrorMessage formats a failed lookup for a reply.
func ErrorMessage(what string, err error) string {
	return "❌ Could not fetch " + what + ": " + err.Error()
}

// RatingsMessage lists the n best teams.
func RatingsMessage(ratings map[string]int64, n int) string {
	rows := rating.RankNames(ratings)
	if len(rows) == 0 {
		return "No rated teams yet."
	}
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	var sb strings.Builder
	sb.WriteString("📊 **Team ratings**")
	for i, e := range rows {
		fmt.Fprintf(&sb, "\n%d. %s: **%d**", i+1, e.Name, e.Rating)
	}
	return sb.String()
}

func outcomeText(o martingale.Outcome) string {
	switch o {
	case martingale.OutcomeWon:
		return "✅ won"
	case martingale.OutcomeLost:
		return "❌ lost"
	}
	return "no bet yet"
}

// Top3Message lists the martingale picks with their stakes.
func Top3Message(picks []martingale.Pick) string {
	if len(picks) == 0 {
		return "No rated players yet."
	}
	var sb strings.Builder
	sb.WriteString("🥅 **Top players**")
	for i, p := range picks {
		fmt.Fprintf(&sb, "\n%d. **%s** (%d) stake %s @ %s, last: %s",
			i+1, p.Name, p.Rating, p.Stake.StringFixed(2), p.Odds.String(), outcomeText(p.LastOutcome))
	}
	return sb.String()
}

// MartingaleMessage summarizes the replay totals.
func MartingaleMessage(res martingale.Result) string {
	s := res.Summary
	sign := ""
	if s.Profit.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("💰 **Martingale** (odds %s, %d betting days)\nStaked: %s\nReturned: %s\nProfit: **%s%s**",
		s.Odds.String(), res.Days, s.TotalStaked.StringFixed(2), s.TotalReturned.StringFixed(2), sign, s.Profit.StringFixed(2))
}
