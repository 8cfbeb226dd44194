package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/cache"
	"github.com/carrersbcn/giuros-engine/engine/config"
	"github.com/carrersbcn/giuros-engine/engine/database"
	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/engine/services"
)

// ErrUnauthorized rejects a caller acting on another player's behalf before
// any mutation happens.
var ErrUnauthorized = errors.New("caller is not authorized to act as this player")

// Engine wires the repositories and services into the economy core. Callers
// (game-completion flow, profile screens, admin tooling) use the exported
// services directly; RecordSession is the one orchestrated entry point.
type Engine struct {
	Cfg *Config
	DB  *database.DB

	ScoreRepo    repositories.ScoreEventRepository
	ReferralRepo repositories.ReferralRepository

	Ledger       *services.LedgerService
	Leaderboard  *services.LeaderboardService
	Teams        *services.TeamService
	Quests       *services.QuestService
	Achievements *services.AchievementService
	Referrals    *services.ReferralService
	Catalog      *services.CatalogService
	Publisher    *services.ActivityPublisher
	Archive      *services.StandingsArchiveService
}

func New(ctx context.Context, cfg *Config) (*Engine, error) {
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{Cfg: cfg, DB: db}
	e.wire()
	return e, nil
}

func (e *Engine) wire() {
	bunDB := e.DB.BunDB()

	currencyRepo := repositories.NewCurrencyRepository(bunDB)
	shopRepo := repositories.NewShopRepository(bunDB)
	activityRepo := repositories.NewActivityRepository(bunDB)
	questRepo := repositories.NewQuestRepository(bunDB)
	statsRepo := repositories.NewBadgeStatsRepository(bunDB)
	teamRepo := repositories.NewTeamRepository(bunDB)
	e.ScoreRepo = repositories.NewScoreEventRepository(bunDB)
	e.ReferralRepo = repositories.NewReferralRepository(bunDB)

	catalogCache := cache.NewTTLCache(config.CatalogCacheSize, config.CatalogCacheTTL)

	e.Ledger = services.NewLedgerService(
		currencyRepo, shopRepo, activityRepo,
		int64(e.Cfg.Payouts.StartingBalance),
		int64(e.Cfg.Payouts.DailyLoginBonus),
	)
	e.Leaderboard = services.NewLeaderboardService(
		e.ScoreRepo,
		e.Cfg.Leaderboard.FetchLimit,
		e.Cfg.Leaderboard.BufferMultiplier,
	)
	e.Teams = services.NewTeamService(teamRepo, e.Leaderboard, e.Cfg.Leaderboard.TeamFetchLimit)
	e.Quests = services.NewQuestService(questRepo, activityRepo, e.Ledger, catalogCache)
	e.Achievements = services.NewAchievementService(statsRepo, services.AchievementConfig{
		NightStartHour: e.Cfg.Badges.NightStartHour,
		NightEndHour:   e.Cfg.Badges.NightEndHour,
		QuickGuessTime: e.Cfg.Badges.QuickGuessTime,
		FastLossTime:   e.Cfg.Badges.FastLossTime,
		WrongStreakMin: e.Cfg.Badges.WrongStreakMin,
		Categories:     services.CompileCategories(e.categoryDefs()),
	})
	e.Referrals = services.NewReferralService(
		e.ReferralRepo, statsRepo, activityRepo, e.Ledger,
		int64(e.Cfg.Payouts.ReferralBonus),
	)
	e.Catalog = services.NewCatalogService(shopRepo, catalogCache)
	e.Publisher = services.NewActivityPublisher(e.Cfg.Activity.WebhookID, e.Cfg.Activity.WebhookToken)

	if e.Cfg.Spaces.Key != "" {
		archive, err := services.NewStandingsArchiveService(
			e.Leaderboard,
			e.Cfg.Spaces.Key, e.Cfg.Spaces.Secret,
			e.Cfg.Spaces.Region, e.Cfg.Spaces.Bucket, e.Cfg.Spaces.Root,
		)
		if err != nil {
			slog.Warn("Standings archive disabled", slog.Any("error", err))
		} else {
			e.Archive = archive
		}
	}
}

func (e *Engine) categoryDefs() []services.CategoryPatternDef {
	defs := make([]services.CategoryPatternDef, 0, len(e.Cfg.Badges.Categories))
	for _, c := range e.Cfg.Badges.Categories {
		defs = append(defs, services.CategoryPatternDef{Name: c.Name, Pattern: c.Pattern, Kind: c.Kind})
	}
	return defs
}

// RecordSession ingests one finished game for a player. The actor must be
// the player; the check runs before any write. The score event is the only
// mandatory write: achievement, quest and referral processing log their own
// failures without failing the ingest.
func (e *Engine) RecordSession(ctx context.Context, actor string, session *services.Session) error {
	if actor != session.PlayerID {
		return ErrUnauthorized
	}
	if session.PlayedAt.IsZero() {
		session.PlayedAt = time.Now().UTC()
	}

	event := &models.ScoreEvent{
		PlayerID:        session.PlayerID,
		Score:           session.Score,
		DurationSeconds: session.DurationSeconds,
		PlayedAt:        session.PlayedAt,
		Platform:        session.Platform,
		CorrectAnswers:  session.CorrectCount(),
		QuestionCount:   len(session.Guesses),
		StreakAtPlay:    session.StreakAtPlay,
		IsBonus:         session.IsBonus,
	}
	if err := e.ScoreRepo.Create(ctx, event); err != nil {
		return err
	}

	if _, err := e.Achievements.Record(ctx, session); err != nil {
		slog.Error("Achievement merge failed for session",
			slog.String("type", "error"),
			slog.String("player_id", session.PlayerID),
			slog.Any("error", err))
	}

	e.Quests.OnSessionCompleted(ctx, session)

	// Settlement is a conditional update that pays at most once, so every
	// completed game may try it; the first one that lands is the qualifying
	// event and later calls are free no-ops. A transient failure here is
	// retried by the player's next session instead of losing the bonus.
	if _, err := e.Referrals.Settle(ctx, session.PlayerID); err != nil {
		slog.Error("Referral settlement failed for session",
			slog.String("type", "error"),
			slog.String("player_id", session.PlayerID),
			slog.Any("error", err))
	}

	return nil
}

// ClaimDailyLoginBonus credits the daily bonus and, when it actually
// granted, advances login streak quests.
func (e *Engine) ClaimDailyLoginBonus(ctx context.Context, actor, playerID string) (int64, bool, error) {
	if actor != playerID {
		return 0, false, ErrUnauthorized
	}

	now := time.Now()
	newBalance, granted, err := e.Ledger.ClaimDailyLoginBonus(ctx, playerID, now)
	if err != nil {
		return 0, false, err
	}
	if granted {
		e.Quests.OnDailyLogin(ctx, playerID, now)
	}
	return newBalance, granted, nil
}

// Purchase buys a shop item for the player and announces it.
func (e *Engine) Purchase(ctx context.Context, actor, playerID, itemID string) (int64, error) {
	if actor != playerID {
		return 0, ErrUnauthorized
	}

	newBalance, err := e.Ledger.Purchase(ctx, playerID, itemID)
	if err != nil {
		return newBalance, err
	}

	e.Publisher.Publish(&models.Activity{
		PlayerID: playerID,
		Kind:     models.ActivityPurchase,
		ItemID:   itemID,
		Detail:   itemID,
	})

	return newBalance, nil
}

// ClaimQuest pays out a completed quest for the player and announces it.
func (e *Engine) ClaimQuest(ctx context.Context, actor, playerID, questID string) (*services.ClaimResult, error) {
	if actor != playerID {
		return nil, ErrUnauthorized
	}

	result, err := e.Quests.Claim(ctx, playerID, questID)
	if err != nil {
		return result, err
	}

	e.Publisher.Publish(&models.Activity{
		PlayerID: playerID,
		Kind:     models.ActivityQuestClaim,
		Detail:   questID,
	})

	return result, nil
}

// Close shuts down the engine's external connections.
func (e *Engine) Close(ctx context.Context) {
	e.Publisher.Close(ctx)
	e.DB.Close()
}
