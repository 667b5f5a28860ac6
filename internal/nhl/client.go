package nhl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitr77/extraliga/internal/fetch"

	"golang.org/x/sync/errgroup"
)

const (
	BaseURL          = "https://api-web.nhle.com/v1"
	ScoreURLFmt      = BaseURL + "/score/%s"
	BoxscoreURLFmt   = BaseURL + "/gamecenter/%s/boxscore"
	LandingURLFmt    = BaseURL + "/gamecenter/%s/landing"
	StandingsNowURL  = BaseURL + "/standings/now"
	ScoreboardNowURL = BaseURL + "/scoreboard/now"
	WhereToWatchURL  = BaseURL + "/where-to-watch"
	PartnerOddsURL   = BaseURL + "/partner-game/CZ/now"
	StatsPlayersURL  = "https://api.nhle.com/stats/rest/en/players"

	// DefaultProxyType is served when the proxy is called without a type.
	DefaultProxyType = "scoreboard"
)

var proxyEndpoints = map[string]string{
	"standings":  StandingsNowURL,
	"scoreboard": ScoreboardNowURL,
	"watch":      WhereToWatchURL,
	"players":    StatsPlayersURL,
	"odds":       PartnerOddsURL,
}

// ProxyURL resolves a proxy type to its upstream URL. An empty type means
// DefaultProxyType.
func ProxyURL(typ string) (string, bool) {
	if typ == "" {
		typ = DefaultProxyType
	}
	u, ok := proxyEndpoints[strings.ToLower(typ)]
	return u, ok
}

func ScoreURL(date string) string     { return fmt.Sprintf(ScoreURLFmt, date) }
func BoxscoreURL(gameID string) string { return fmt.Sprintf(BoxscoreURLFmt, gameID) }
func LandingURL(gameID string) string  { return fmt.Sprintf(LandingURLFmt, gameID) }

// ErrGameNotFound is returned by Details when upstream knows neither the
// landing nor the boxscore of a game.
var ErrGameNotFound = errors.New("game not found")

// Client reads the public NHL web API through a shared fetcher.
type Client struct {
	fetcher *fetch.Fetcher
}

// NewClient returns a client backed by f.
func NewClient(f *fetch.Fetcher) *Client {
	return &Client{fetcher: f}
}

// Raw returns the upstream payload for url unchanged.
func (c *Client) Raw(ctx context.Context, url string) ([]byte, error) {
	return c.fetcher.Get(ctx, fetch.Request{URL: url})
}

// Details loads landing and boxscore for one game concurrently. It fails only
// when neither document could be fetched.
func (c *Client) Details(ctx context.Context, gameID string) (*Details, error) {
	var (
		landing, box       []byte
		landingErr, boxErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		landing, landingErr = c.Raw(ctx, LandingURL(gameID))
		return nil
	})
	g.Go(func() error {
		box, boxErr = c.Raw(ctx, BoxscoreURL(gameID))
		return nil
	})
	_ = g.Wait()

	if fetch.IsNotFound(landingErr) && fetch.IsNotFound(boxErr) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if landingErr != nil && boxErr != nil {
		return nil, fmt.Errorf("game %s details: %w", gameID, errors.Join(landingErr, boxErr))
	}
	if landingErr != nil {
		slog.Warn("landing fetch failed", "game_id", gameID, "error", landingErr)
	}
	if boxErr != nil {
		slog.Warn("boxscore fetch failed", "game_id", gameID, "error", boxErr)
	}
	return ParseDetails(gameID, landing, box)
}

// Odds returns the partner bookmaker lines for today's games.
func (c *Client) Odds(ctx context.Context) ([]OddsGame, error) {
	body, err := c.Raw(ctx, PartnerOddsURL)
	if err != nil {
		return nil, err
	}
	return ParseOdds(body)
}
