package config

import "time"

// Database and performance constants
const (
	DefaultQueryTimeout = 30 * time.Second
	StatsQueryTimeout   = 10 * time.Second
	BatchQueryTimeout   = 30 * time.Second
	NetworkDialTimeout  = 5 * time.Second
	NetworkKeepAlive    = 30 * time.Second

	// Cache settings
	CatalogCacheTTL  = 5 * time.Minute
	CatalogCacheSize = 1024

	// Batch processing
	DefaultBatchSize     = 1000
	MaxConcurrentBatches = 5
	MaxRetries           = 3
)

// Economy defaults. Runtime values come from config.toml; these back any
// field the file leaves unset and mirror the payouts the game shipped with.
const (
	StartingBalance     = 10
	DailyLoginBonus     = 2
	DailyChallengeBonus = 5
	StreakWeekBonus     = 10
	PerfectScoreBonus   = 20
	ReferralBonus       = 15

	MinQuestReward = 0
	MaxQuestReward = 10000
	MaxQuestTitle  = 100
	MaxQuestDesc   = 500
)

// Leaderboard defaults
const (
	DefaultFetchLimit     = 50
	FetchBufferMultiplier = 4
	TeamLeaderboardLimit  = 10000
)

// Badge evaluation defaults
const (
	NightStartHour = 2
	NightEndHour   = 5
	QuickGuessTime = 3.0 // seconds
	FastLossTime   = 60.0
	WrongStreakMin = 5
)
