package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

func event(playerID string, score int, playedAt time.Time) *models.ScoreEvent {
	return &models.ScoreEvent{
		PlayerID:        playerID,
		Score:           score,
		DurationSeconds: 5,
		PlayedAt:        playedAt,
	}
}

func TestDailyStandingsKeepBestSessionOnly(t *testing.T) {
	// Wednesday 2026-05-06
	now := time.Date(2026, 5, 6, 18, 0, 0, 0, time.UTC)
	scoreRepo := &fakeScoreRepo{events: []*models.ScoreEvent{
		event("anna", 50, now.Add(-8*time.Hour)),
		event("anna", 80, now.Add(-4*time.Hour)),
		event("berta", 60, now.Add(-2*time.Hour)),
		event("anna", 200, now.Add(-30*time.Hour)), // yesterday, outside the daily window
	}}
	s := NewLeaderboardService(scoreRepo, 50, 4)

	rows, err := s.Standings(context.Background(), PeriodDaily, 10, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "anna", rows[0].PlayerID)
	assert.Equal(t, 80, rows[0].Score, "daily keeps the single best game of the day")
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "berta", rows[1].PlayerID)
}

func TestWeeklyStandingsSumPerDayBest(t *testing.T) {
	// Wednesday 2026-05-06; the week started Monday 2026-05-04
	now := time.Date(2026, 5, 6, 18, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	scoreRepo := &fakeScoreRepo{events: []*models.ScoreEvent{
		// anna, Monday: two games, only the 80 counts
		event("anna", 50, monday.Add(9*time.Hour)),
		event("anna", 80, monday.Add(15*time.Hour)),
		// anna, Tuesday
		event("anna", 30, monday.Add(33*time.Hour)),
		// berta, Monday
		event("berta", 100, monday.Add(10*time.Hour)),
		// previous week never counts
		event("anna", 999, monday.Add(-10*time.Hour)),
	}}
	s := NewLeaderboardService(scoreRepo, 50, 4)

	rows, err := s.Standings(context.Background(), PeriodWeekly, 10, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "anna", rows[0].PlayerID)
	assert.Equal(t, 110, rows[0].Score, "80 from Monday best plus 30 from Tuesday")
	assert.Equal(t, 2, rows[0].Games, "one contributing day each")

	assert.Equal(t, "berta", rows[1].PlayerID)
	assert.Equal(t, 100, rows[1].Score)
}

func TestAllTimeStandingsIncludeEverything(t *testing.T) {
	now := time.Date(2026, 5, 6, 18, 0, 0, 0, time.UTC)
	scoreRepo := &fakeScoreRepo{events: []*models.ScoreEvent{
		event("anna", 100, now.AddDate(0, -3, 0)),
		event("anna", 50, now),
	}}
	s := NewLeaderboardService(scoreRepo, 50, 4)

	rows, err := s.Standings(context.Background(), PeriodAllTime, 10, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 150, rows[0].Score)
}

func TestStandingsUnknownPeriod(t *testing.T) {
	s := NewLeaderboardService(&fakeScoreRepo{}, 50, 4)

	_, err := s.Standings(context.Background(), "hourly", 10, time.Now())
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestStandingsLimitAndDefault(t *testing.T) {
	now := time.Date(2026, 5, 6, 18, 0, 0, 0, time.UTC)
	scoreRepo := &fakeScoreRepo{}
	for i := 0; i < 5; i++ {
		scoreRepo.events = append(scoreRepo.events, event(string(rune('a'+i)), 100+i, now.Add(-time.Hour)))
	}
	s := NewLeaderboardService(scoreRepo, 3, 4)

	rows, err := s.Standings(context.Background(), PeriodDaily, 2, now)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.Standings(context.Background(), PeriodDaily, 0, now)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "limit <= 0 falls back to the configured fetch limit")
}
