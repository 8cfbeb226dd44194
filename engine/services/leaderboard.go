package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/engine/utils"
	"github.com/carrersbcn/giuros-engine/internal/domain/standings"
)

// Leaderboard periods
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "alltime"
)

var ErrUnknownPeriod = errors.New("unknown leaderboard period")

// LeaderboardService builds ranked standings from the score event log. It
// over-fetches raw events by a buffer multiplier because deduplication can
// only shrink the candidate set, then reduces client-side.
type LeaderboardService struct {
	scoreRepo repositories.ScoreEventRepository

	fetchLimit       int
	bufferMultiplier int
}

func NewLeaderboardService(scoreRepo repositories.ScoreEventRepository, fetchLimit, bufferMultiplier int) *LeaderboardService {
	return &LeaderboardService{
		scoreRepo:        scoreRepo,
		fetchLimit:       fetchLimit,
		bufferMultiplier: bufferMultiplier,
	}
}

// Standings returns the ranked leaderboard for the period containing now,
// capped at limit rows (the default fetch limit when limit <= 0).
//
// Daily keeps each player's single best game. Longer periods sum each
// player's per-day best, so one very grindy day never beats steady play.
func (s *LeaderboardService) Standings(ctx context.Context, period string, limit int, now time.Time) ([]standings.Row, error) {
	if limit <= 0 {
		limit = s.fetchLimit
	}

	var since *time.Time
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		start := utils.PeriodStart(period, now)
		since = &start
	case PeriodAllTime:
		since = nil
	default:
		return nil, ErrUnknownPeriod
	}

	events, err := s.scoreRepo.GetSince(ctx, since, limit*s.bufferMultiplier)
	if err != nil {
		return nil, err
	}

	entries := toEntries(events)

	var rows []standings.Row
	if period == PeriodDaily {
		rows = standings.DeduplicateBest(entries)
	} else {
		rows = standings.AggregateDaily(entries)
	}

	slog.Debug("Standings built",
		slog.String("type", "sys"),
		slog.String("period", period),
		slog.Int("events", len(events)),
		slog.Int("rows", len(rows)))

	return standings.Top(rows, limit), nil
}

func toEntries(events []*models.ScoreEvent) []standings.Entry {
	entries := make([]standings.Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, standings.Entry{
			PlayerID: e.PlayerID,
			Handle:   e.PlayerID,
			Score:    e.Score,
			Time:     e.DurationSeconds,
			PlayedAt: e.PlayedAt,
		})
	}
	return entries
}
