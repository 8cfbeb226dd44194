package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

type BadgeStatsRepository interface {
	Get(ctx context.Context, playerID string) (*models.BadgeStats, error)
	MergeSession(ctx context.Context, playerID string, delta *models.StatsDelta, yesterday string) error
	IncrementInviteCount(ctx context.Context, playerID string) error
}

type badgeStatsRepository struct {
	*BaseRepository
}

func NewBadgeStatsRepository(db *bun.DB) BadgeStatsRepository {
	return &badgeStatsRepository{BaseRepository: NewBaseRepository(db)}
}

// Get returns the stats row, or a zero-valued row when the player has not
// played yet.
func (r *badgeStatsRepository) Get(ctx context.Context, playerID string) (*models.BadgeStats, error) {
	stats := new(models.BadgeStats)
	err := r.db.NewSelect().
		Model(stats).
		Where("player_id = ?", playerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.BadgeStats{PlayerID: playerID}, nil
		}
		return nil, r.HandleErrorWithID("get", "badge stats", playerID, err)
	}

	return stats, nil
}

// MergeSession folds one session's delta into badge_stats as a single
// upsert. All folds run server-side: sums for lifetime counters, GREATEST
// for historical maxima and best-single-session counters, OR for flags, and
// a CASE expression for the consecutive-day streak, so concurrent sessions
// for the same player cannot lose updates.
func (r *badgeStatsRepository) MergeSession(ctx context.Context, playerID string, delta *models.StatsDelta, yesterday string) error {
	row := &models.BadgeStats{
		PlayerID:           playerID,
		GamesPlayed:        1,
		BestScore:          delta.Score,
		WrongStreak:        delta.WrongStreak,
		ConsecutiveDays:    1,
		GothicStreak:       delta.Categories["gothic"],
		EixampleCorners:    delta.Categories["eixample"],
		BornGuesses:        delta.Categories["born"],
		PoblenouGuesses:    delta.Categories["poblenou"],
		FoodStreetsPerfect: delta.Categories["food"],
		NightPlay:          delta.NightPlay,
		RamblasQuickGuess:  delta.RamblasQuick,
		FastLoss:           delta.FastLoss,
		LastPlayDate:       delta.PlayDate,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if delta.Completed {
		row.GamesWithoutQuitting = 1
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (player_id) DO UPDATE").
		Set("games_played = bs.games_played + 1").
		Set("best_score = GREATEST(bs.best_score, EXCLUDED.best_score)").
		Set("wrong_streak = GREATEST(bs.wrong_streak, EXCLUDED.wrong_streak)").
		Set("games_without_quitting = bs.games_without_quitting + EXCLUDED.games_without_quitting").
		Set(`consecutive_days = CASE
			WHEN bs.last_play_date = ? THEN bs.consecutive_days + 1
			WHEN bs.last_play_date IS DISTINCT FROM EXCLUDED.last_play_date THEN 1
			ELSE bs.consecutive_days END`, yesterday).
		Set("gothic_streak = GREATEST(bs.gothic_streak, EXCLUDED.gothic_streak)").
		Set("eixample_corners = GREATEST(bs.eixample_corners, EXCLUDED.eixample_corners)").
		Set("born_guesses = GREATEST(bs.born_guesses, EXCLUDED.born_guesses)").
		Set("poblenou_guesses = GREATEST(bs.poblenou_guesses, EXCLUDED.poblenou_guesses)").
		Set("food_streets_perfect = GREATEST(bs.food_streets_perfect, EXCLUDED.food_streets_perfect)").
		Set("night_play = bs.night_play OR EXCLUDED.night_play").
		Set("ramblas_quick_guess = bs.ramblas_quick_guess OR EXCLUDED.ramblas_quick_guess").
		Set("fast_loss = bs.fast_loss OR EXCLUDED.fast_loss").
		Set("last_play_date = EXCLUDED.last_play_date").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		slog.Error("Failed to merge session stats",
			slog.String("type", "db"),
			slog.String("operation", "MergeSession"),
			slog.String("player_id", playerID),
			slog.Any("error", err))
		return r.HandleErrorWithID("merge_session", "badge stats", playerID, err)
	}

	return nil
}

// IncrementInviteCount bumps invite_count when a referral settles.
func (r *badgeStatsRepository) IncrementInviteCount(ctx context.Context, playerID string) error {
	row := &models.BadgeStats{
		PlayerID:    playerID,
		InviteCount: 1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (player_id) DO UPDATE").
		Set("invite_count = bs.invite_count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return r.HandleErrorWithID("increment_invite_count", "badge stats", playerID, err)
}
