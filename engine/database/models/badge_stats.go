package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BadgeStats is the per-player rolling statistics row that feeds badge
// unlock checks. Every numeric field is monotonic non-decreasing and every
// boolean is monotonic OR; the repository folds a whole session's delta in a
// single upsert so concurrent sessions cannot lose updates.
//
// The per-category counters (gothic_streak, eixample_corners, ...) hold the
// best value reached in any single session, not a lifetime sum.
type BadgeStats struct {
	bun.BaseModel `bun:"table:badge_stats,alias:bs"`

	PlayerID string `bun:"player_id,pk"`

	GamesPlayed          int64 `bun:"games_played,notnull,default:0"`
	BestScore            int   `bun:"best_score,notnull,default:0"`
	WrongStreak          int   `bun:"wrong_streak,notnull,default:0"`
	ConsecutiveDays      int   `bun:"consecutive_days,notnull,default:0"`
	GamesWithoutQuitting int64 `bun:"games_without_quitting,notnull,default:0"`

	GothicStreak       int `bun:"gothic_streak,notnull,default:0"`
	EixampleCorners    int `bun:"eixample_corners,notnull,default:0"`
	BornGuesses        int `bun:"born_guesses,notnull,default:0"`
	PoblenouGuesses    int `bun:"poblenou_guesses,notnull,default:0"`
	FoodStreetsPerfect int `bun:"food_streets_perfect,notnull,default:0"`

	NightPlay         bool `bun:"night_play,notnull,default:false"`
	RamblasQuickGuess bool `bun:"ramblas_quick_guess,notnull,default:false"`
	FastLoss          bool `bun:"fast_loss,notnull,default:false"`

	InviteCount  int       `bun:"invite_count,notnull,default:0"`
	LastPlayDate string    `bun:"last_play_date"` // YYYY-MM-DD, UTC
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// StatsDelta is the outcome of scanning one completed session. The
// repository merges it into badge_stats with GREATEST/OR folds; counters are
// per-session values, never pre-summed totals.
type StatsDelta struct {
	Score        int
	Completed    bool
	WrongStreak  int
	NightPlay    bool
	FastLoss     bool
	RamblasQuick bool
	PlayDate     string

	// Per-category session results, keyed by category name.
	Categories map[string]int
}
