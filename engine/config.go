package engine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/carrersbcn/giuros-engine/engine/config"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	DB          DBConfig          `toml:"db"`
	Payouts     PayoutConfig      `toml:"payouts"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Badges      BadgeConfig       `toml:"badges"`
	Activity    ActivityConfig    `toml:"activity"`
	Migration   MigrationConfig   `toml:"migration"`
	Spaces      struct {
		Key    string `toml:"key"`
		Secret string `toml:"secret"`
		Region string `toml:"region"`
		Bucket string `toml:"bucket"`
		Root   string `toml:"root"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

// PayoutConfig carries the bonus amounts the economy hands out. Zero values
// fall back to the shipped defaults so a sparse config file stays valid.
type PayoutConfig struct {
	StartingBalance int `toml:"starting_balance"`
	DailyLoginBonus int `toml:"daily_login_bonus"`
	ReferralBonus   int `toml:"referral_bonus"`
}

type LeaderboardConfig struct {
	FetchLimit       int `toml:"fetch_limit"`
	BufferMultiplier int `toml:"buffer_multiplier"`
	TeamFetchLimit   int `toml:"team_fetch_limit"`
}

// BadgeConfig holds the session evaluation thresholds plus the street
// pattern table. Patterns are case-insensitive regexes matched against the
// street name of each guess.
type BadgeConfig struct {
	NightStartHour int     `toml:"night_start_hour"`
	NightEndHour   int     `toml:"night_end_hour"`
	QuickGuessTime float64 `toml:"quick_guess_time"`
	FastLossTime   float64 `toml:"fast_loss_time"`
	WrongStreakMin int     `toml:"wrong_streak_min"`

	Categories []CategoryPattern `toml:"categories"`
}

// CategoryPattern ties a street name regex to a badge stats counter. Kind
// controls how matches fold into the counter:
//
//	count   correct guesses on matching streets
//	streak  longest run of consecutive correct guesses on matching streets
//	perfect correct first-attempt guesses on matching streets
//	quick   flag set when a matching street is guessed under quick_guess_time
type CategoryPattern struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
	Kind    string `toml:"kind"`
}

type ActivityConfig struct {
	WebhookID    snowflake.ID `toml:"webhook_id"`
	WebhookToken string       `toml:"webhook_token"`
}

type MigrationConfig struct {
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	BatchSize     int    `toml:"batch_size"`
	Concurrency   int    `toml:"concurrency"`
}

func (c *Config) applyDefaults() {
	if c.Payouts.StartingBalance == 0 {
		c.Payouts.StartingBalance = config.StartingBalance
	}
	if c.Payouts.DailyLoginBonus == 0 {
		c.Payouts.DailyLoginBonus = config.DailyLoginBonus
	}
	if c.Payouts.ReferralBonus == 0 {
		c.Payouts.ReferralBonus = config.ReferralBonus
	}
	if c.Leaderboard.FetchLimit == 0 {
		c.Leaderboard.FetchLimit = config.DefaultFetchLimit
	}
	if c.Leaderboard.BufferMultiplier == 0 {
		c.Leaderboard.BufferMultiplier = config.FetchBufferMultiplier
	}
	if c.Leaderboard.TeamFetchLimit == 0 {
		c.Leaderboard.TeamFetchLimit = config.TeamLeaderboardLimit
	}
	if c.Badges.NightStartHour == 0 {
		c.Badges.NightStartHour = config.NightStartHour
	}
	if c.Badges.NightEndHour == 0 {
		c.Badges.NightEndHour = config.NightEndHour
	}
	if c.Badges.QuickGuessTime == 0 {
		c.Badges.QuickGuessTime = config.QuickGuessTime
	}
	if c.Badges.FastLossTime == 0 {
		c.Badges.FastLossTime = config.FastLossTime
	}
	if c.Badges.WrongStreakMin == 0 {
		c.Badges.WrongStreakMin = config.WrongStreakMin
	}
	if len(c.Badges.Categories) == 0 {
		c.Badges.Categories = DefaultCategories()
	}
	if c.Migration.BatchSize == 0 {
		c.Migration.BatchSize = config.DefaultBatchSize
	}
	if c.Migration.Concurrency == 0 {
		c.Migration.Concurrency = config.MaxConcurrentBatches
	}
}

// DefaultCategories is the pattern table the game shipped with: one counter
// per neighbourhood plus the food street counter and the quick Ramblas flag.
func DefaultCategories() []CategoryPattern {
	return []CategoryPattern{
		{Name: "gothic", Pattern: `gòtic|gothic|call|bisbe|ferran|portal|jaume|pi\b`, Kind: "streak"},
		{Name: "eixample", Pattern: `eixample|diagonal|passeig de gràcia|aragó|valència|mallorca|rosselló`, Kind: "count"},
		{Name: "born", Pattern: `born|ribera|princesa|montcada|passeig del born`, Kind: "count"},
		{Name: "poblenou", Pattern: `poblenou|llacuna|pallars|pujades|pere iv|taulat`, Kind: "count"},
		{Name: "food", Pattern: `verdi|blai|parlament|enric granados|rambla catalunya`, Kind: "perfect"},
		{Name: "ramblas", Pattern: `rambla|ramblas`, Kind: "quick"},
	}
}
