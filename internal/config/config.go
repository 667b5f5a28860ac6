// Package config loads settings from an optional YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pitr77/extraliga/internal/fetch"
	"github.com/pitr77/extraliga/internal/martingale"
	"github.com/pitr77/extraliga/internal/match"
	"github.com/pitr77/extraliga/internal/rating"
)

const (
	ProviderNHL        = "nhl"
	ProviderSportradar = "sportradar"

	DefaultSeasonStart = "2025-10-08"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	Season     SeasonConfig     `yaml:"season"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Rating     rating.Config    `yaml:"rating"`
	Martingale MartingaleConfig `yaml:"martingale"`
	Identity   string           `yaml:"identity_policy"` // id | name
	Log        LogConfig        `yaml:"log"`
	Discord    DiscordConfig    `yaml:"discord"`
	Board      BoardConfig      `yaml:"board"`
	Collector  CollectorConfig  `yaml:"collector"`

	policy match.IdentityPolicy
	mart   martingale.Config
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CacheConfig controls the raw payload cache. An empty RedisAddr keeps it in
// memory only.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type SeasonConfig struct {
	Start              string `yaml:"start"` // YYYY-MM-DD
	Provider           string `yaml:"provider"`
	SportradarAPIKey   string `yaml:"sportradar_api_key"`
	SportradarSeasonID string `yaml:"sportradar_season_id"`
}

type FetchConfig struct {
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
}

// MartingaleConfig keeps money as strings so YAML never rounds it.
type MartingaleConfig struct {
	Odds      string `yaml:"odds"`
	BaseStake string `yaml:"base_stake"`
	MaxStake  string `yaml:"max_stake"` // 0 = no cap
	TopN      int    `yaml:"top_n"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

type DiscordConfig struct {
	Token   string `yaml:"token"`
	GuildID string `yaml:"guild_id"`
}

type BoardConfig struct {
	APIURL string `yaml:"api_url"`
}

type CollectorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads path (skipped when empty), then .env, then environment overrides,
// fills defaults and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	// Rating constants are seeded so a partial YAML section keeps the rest.
	cfg := Config{Rating: rating.DefaultConfig()}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.ListenAddr = getEnv("LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.TTL = getDurationEnv("CACHE_TTL", cfg.Cache.TTL)

	cfg.Season.Start = getEnv("SEASON_START", cfg.Season.Start)
	cfg.Season.Provider = getEnv("PROVIDER", cfg.Season.Provider)
	cfg.Season.SportradarAPIKey = getEnv("SPORTRADAR_API_KEY", cfg.Season.SportradarAPIKey)
	cfg.Season.SportradarSeasonID = getEnv("SPORTRADAR_SEASON_ID", cfg.Season.SportradarSeasonID)

	cfg.Fetch.Concurrency = getIntEnv("FETCH_CONCURRENCY", cfg.Fetch.Concurrency)
	cfg.Fetch.MaxAttempts = getIntEnv("FETCH_MAX_ATTEMPTS", cfg.Fetch.MaxAttempts)
	cfg.Fetch.Timeout = getDurationEnv("FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.RatePerSec = getFloatEnv("FETCH_RPS", cfg.Fetch.RatePerSec)

	r := &cfg.Rating
	r.StartRating = getInt64Env("START_RATING", r.StartRating)
	r.GoalPoints = getInt64Env("GOAL_POINTS", r.GoalPoints)
	r.WinPoints = getInt64Env("WIN_POINTS", r.WinPoints)
	r.LossPoints = getInt64Env("LOSS_POINTS", r.LossPoints)
	r.PlayerGoalPoints = getInt64Env("PLAYER_GOAL_POINTS", r.PlayerGoalPoints)
	r.PlayerAssistPoints = getInt64Env("PLAYER_ASSIST_POINTS", r.PlayerAssistPoints)

	cfg.Martingale.Odds = getEnv("MARTINGALE_ODDS", cfg.Martingale.Odds)
	cfg.Martingale.BaseStake = getEnv("MARTINGALE_BASE_STAKE", cfg.Martingale.BaseStake)
	cfg.Martingale.MaxStake = getEnv("MARTINGALE_MAX_STAKE", cfg.Martingale.MaxStake)
	cfg.Martingale.TopN = getIntEnv("MARTINGALE_TOP_N", cfg.Martingale.TopN)

	cfg.Identity = getEnv("IDENTITY_POLICY", cfg.Identity)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Discord.Token = getEnv("DISCORD_BOT_TOKEN", cfg.Discord.Token)
	cfg.Discord.GuildID = getEnv("DISCORD_GUILD_ID", cfg.Discord.GuildID)
	cfg.Board.APIURL = getEnv("BOARD_API_URL", cfg.Board.APIURL)
	cfg.Collector.Interval = getDurationEnv("COLLECTOR_INTERVAL", cfg.Collector.Interval)
}

// setDefaults fills zero values.
func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = fetch.DefaultCacheTTL
	}
	if cfg.Season.Start == "" {
		cfg.Season.Start = DefaultSeasonStart
	}
	if cfg.Season.Provider == "" {
		cfg.Season.Provider = ProviderNHL
	}
	if cfg.Fetch.Concurrency <= 0 {
		cfg.Fetch.Concurrency = fetch.DefaultConcurrency
	}
	if cfg.Fetch.MaxAttempts <= 0 {
		cfg.Fetch.MaxAttempts = fetch.DefaultMaxAttempts
	}
	if cfg.Fetch.Timeout <= 0 {
		cfg.Fetch.Timeout = fetch.DefaultTimeout
	}
	if cfg.Martingale.Odds == "" {
		cfg.Martingale.Odds = "2.5"
	}
	if cfg.Martingale.BaseStake == "" {
		cfg.Martingale.BaseStake = "1"
	}
	if cfg.Martingale.MaxStake == "" {
		cfg.Martingale.MaxStake = "0"
	}
	if cfg.Martingale.TopN <= 0 {
		cfg.Martingale.TopN = 3
	}
	if cfg.Identity == "" {
		cfg.Identity = "id"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Board.APIURL == "" {
		cfg.Board.APIURL = "http://localhost:8080"
	}
	// Refreshing once per TTL keeps the shared cache continuously warm.
	if cfg.Collector.Interval <= 0 {
		cfg.Collector.Interval = cfg.Cache.TTL
	}
}

// Validate checks cross-field rules and parses the derived settings.
func (c *Config) Validate() error {
	if _, err := time.Parse(match.DateLayout, c.Season.Start); err != nil {
		return fmt.Errorf("config: season start %q: %w", c.Season.Start, err)
	}
	switch strings.ToLower(c.Season.Provider) {
	case ProviderNHL:
	case ProviderSportradar:
		if c.Season.SportradarAPIKey == "" || c.Season.SportradarSeasonID == "" {
			return fmt.Errorf("config: provider sportradar needs SPORTRADAR_API_KEY and SPORTRADAR_SEASON_ID")
		}
	default:
		return fmt.Errorf("config: unknown provider %q", c.Season.Provider)
	}
	c.Season.Provider = strings.ToLower(c.Season.Provider)

	policy, err := match.ParseIdentityPolicy(c.Identity)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.policy = policy

	odds, err := decimal.NewFromString(c.Martingale.Odds)
	if err != nil {
		return fmt.Errorf("config: martingale odds: %w", err)
	}
	if !odds.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("config: martingale odds must be above 1, got %s", odds)
	}
	base, err := decimal.NewFromString(c.Martingale.BaseStake)
	if err != nil {
		return fmt.Errorf("config: martingale base stake: %w", err)
	}
	if !base.IsPositive() {
		return fmt.Errorf("config: martingale base stake must be positive, got %s", base)
	}
	maxStake, err := decimal.NewFromString(c.Martingale.MaxStake)
	if err != nil {
		return fmt.Errorf("config: martingale max stake: %w", err)
	}
	if maxStake.IsNegative() || (maxStake.IsPositive() && maxStake.LessThan(base)) {
		return fmt.Errorf("config: martingale max stake %s must be 0 or at least the base stake", maxStake)
	}
	c.mart = martingale.Config{Odds: odds, BaseStake: base, MaxStake: maxStake, TopN: c.Martingale.TopN}
	return nil
}

// IdentityPolicy returns the parsed player identity policy.
func (c *Config) IdentityPolicy() match.IdentityPolicy {
	return c.policy
}

// MartingaleSettings returns the parsed staking parameters.
func (c *Config) MartingaleSettings() martingale.Config {
	return c.mart
}

// FetchOptions returns the fetcher options.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Concurrency: c.Fetch.Concurrency,
		MaxAttempts: c.Fetch.MaxAttempts,
		Timeout:     c.Fetch.Timeout,
		RatePerSec:  c.Fetch.RatePerSec,
	}
}

// SeasonStart returns the first day of the season at midnight UTC.
func (c *Config) SeasonStart() time.Time {
	return match.StartFromDate(c.Season.Start)
}

// SlogLevel maps the configured level name to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.ToLower(c.Log.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return defaultVal
	}
	return d
}

func getIntEnv(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return defaultVal
	}
	return n
}

func getInt64Env(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return defaultVal
	}
	return n
}

func getFloatEnv(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
		return defaultVal
	}
	return f
}
