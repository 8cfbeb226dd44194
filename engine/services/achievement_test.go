package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAchievementConfig() AchievementConfig {
	return AchievementConfig{
		NightStartHour: 2,
		NightEndHour:   5,
		QuickGuessTime: 3.0,
		FastLossTime:   60.0,
		WrongStreakMin: 5,
		Categories: CompileCategories([]CategoryPatternDef{
			{Name: "gothic", Pattern: `gòtic|gothic|call|bisbe|ferran|portal|jaume|pi\b`, Kind: "streak"},
			{Name: "eixample", Pattern: `eixample|diagonal|passeig de gràcia|aragó|valència|mallorca|rosselló`, Kind: "count"},
			{Name: "food", Pattern: `verdi|blai|parlament|enric granados|rambla catalunya`, Kind: "perfect"},
			{Name: "ramblas", Pattern: `rambla|ramblas`, Kind: "quick"},
		}),
	}
}

func newAchievementService(statsRepo *fakeStatsRepo) *AchievementService {
	return NewAchievementService(statsRepo, testAchievementConfig())
}

func daySession(playerID string, hour int, guesses ...Guess) *Session {
	return &Session{
		PlayerID:  playerID,
		Score:     100,
		Completed: true,
		PlayedAt:  time.Date(2026, 5, 3, hour, 30, 0, 0, time.UTC),
		Guesses:   guesses,
	}
}

func TestEvaluateWrongStreakThreshold(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	session := daySession("anna", 12)
	session.WrongStreak = 4
	assert.Equal(t, 0, s.Evaluate(session).WrongStreak, "below the badge threshold nothing is recorded")

	session.WrongStreak = 5
	assert.Equal(t, 5, s.Evaluate(session).WrongStreak)
}

func TestEvaluateNightWindow(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	assert.False(t, s.Evaluate(daySession("anna", 1)).NightPlay)
	assert.True(t, s.Evaluate(daySession("anna", 2)).NightPlay)
	assert.True(t, s.Evaluate(daySession("anna", 4)).NightPlay)
	assert.False(t, s.Evaluate(daySession("anna", 5)).NightPlay, "end hour is exclusive")
}

func TestEvaluateNightWindowUsesLocalHour(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	// 02:30 on a Barcelona summer clock is 00:30 UTC; the wall clock decides
	cest := time.FixedZone("CEST", 2*3600)
	session := &Session{
		PlayerID:  "anna",
		Score:     100,
		Completed: true,
		PlayedAt:  time.Date(2026, 5, 3, 2, 30, 0, 0, cest),
	}
	assert.True(t, s.Evaluate(session).NightPlay)

	session.PlayedAt = time.Date(2026, 5, 3, 6, 30, 0, 0, cest)
	assert.False(t, s.Evaluate(session).NightPlay)
}

func TestEvaluateFastLoss(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	session := daySession("anna", 12, Guess{StreetName: "Carrer de Sants", Correct: false})
	session.DurationSeconds = 45
	assert.True(t, s.Evaluate(session).FastLoss)

	// Any correct answer disqualifies
	session.Guesses[0].Correct = true
	assert.False(t, s.Evaluate(session).FastLoss)

	// Too slow to count as a fast loss
	session.Guesses[0].Correct = false
	session.DurationSeconds = 61
	assert.False(t, s.Evaluate(session).FastLoss)
}

func TestEvaluateStreakCategory(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	delta := s.Evaluate(daySession("anna", 12,
		Guess{StreetName: "Carrer del Bisbe", Correct: true},
		Guess{StreetName: "Carrer de Sants", Correct: false}, // non-matching street does not break the run
		Guess{StreetName: "Carrer de Ferran", Correct: true},
		Guess{StreetName: "Carrer del Call", Correct: false}, // wrong answer on a matching street resets
		Guess{StreetName: "Plaça de Sant Jaume", Correct: true},
	))

	assert.Equal(t, 2, delta.Categories["gothic"])
}

func TestEvaluateCountAndPerfectCategories(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	delta := s.Evaluate(daySession("anna", 12,
		Guess{StreetName: "Avinguda Diagonal", Correct: true, Attempts: 2},
		Guess{StreetName: "Carrer d'Aragó", Correct: true, Attempts: 1},
		Guess{StreetName: "Carrer de Mallorca", Correct: false, Attempts: 3},
		Guess{StreetName: "Carrer de Verdi", Correct: true, Attempts: 1},
		Guess{StreetName: "Carrer de Blai", Correct: true, Attempts: 2}, // retried, not perfect
	))

	assert.Equal(t, 2, delta.Categories["eixample"], "wrong answers never count")
	assert.Equal(t, 1, delta.Categories["food"], "perfect requires first-attempt correct")
}

func TestEvaluateQuickGuess(t *testing.T) {
	s := newAchievementService(newFakeStatsRepo())

	delta := s.Evaluate(daySession("anna", 12,
		Guess{StreetName: "La Rambla", Correct: true, Time: 2.4},
	))
	assert.True(t, delta.RamblasQuick)

	delta = s.Evaluate(daySession("anna", 12,
		Guess{StreetName: "La Rambla", Correct: true, Time: 3.0},
	))
	assert.False(t, delta.RamblasQuick, "threshold is strict")

	delta = s.Evaluate(daySession("anna", 12,
		Guess{StreetName: "La Rambla", Correct: false, Time: 1.0},
	))
	assert.False(t, delta.RamblasQuick)
}

func TestRecordMergesWithYesterdayAnchor(t *testing.T) {
	statsRepo := newFakeStatsRepo()
	s := newAchievementService(statsRepo)

	session := daySession("anna", 12)
	_, err := s.Record(context.Background(), session)
	require.NoError(t, err)

	require.Len(t, statsRepo.merges, 1)
	merge := statsRepo.merges[0]
	assert.Equal(t, "anna", merge.playerID)
	assert.Equal(t, "2026-05-03", merge.delta.PlayDate)
	assert.Equal(t, "2026-05-02", merge.yesterday)
}

func TestCompileCategoriesSkipsInvalidPatterns(t *testing.T) {
	matchers := CompileCategories([]CategoryPatternDef{
		{Name: "good", Pattern: `rambla`, Kind: "count"},
		{Name: "broken", Pattern: `([`, Kind: "count"},
	})

	require.Len(t, matchers, 1)
	assert.Equal(t, "good", matchers[0].Name)
	assert.True(t, matchers[0].Pattern.MatchString("LA RAMBLA"), "patterns compile case-insensitive")
}
