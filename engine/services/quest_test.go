package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrersbcn/giuros-engine/engine/cache"
	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

func newQuestService(questRepo *fakeQuestRepo, ledger *LedgerService) *QuestService {
	return NewQuestService(questRepo, &fakeActivityRepo{}, ledger, cache.NewTTLCache(16, time.Minute))
}

func scoreQuest(id string, target string, reward int64) *models.Quest {
	return &models.Quest{
		ID:            id,
		Title:         id,
		CriteriaType:  models.CriteriaScoreAttack,
		CriteriaValue: target,
		RewardGiuros:  reward,
		IsActive:      true,
	}
}

func sessionAt(playerID string, score int, guesses ...Guess) *Session {
	return &Session{
		PlayerID: playerID,
		Score:    score,
		PlayedAt: time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC),
		Guesses:  guesses,
	}
}

func TestScoreAttackAccumulatesAcrossSessions(t *testing.T) {
	questRepo := newFakeQuestRepo(scoreQuest("score_500", "500", 3))
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 200))
	s.OnSessionCompleted(context.Background(), sessionAt("anna", 150))

	p, err := questRepo.GetProgress(context.Background(), "anna", "score_500")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 350, p.Progress)
	assert.False(t, p.IsCompleted)
}

func TestProgressClampsAtTarget(t *testing.T) {
	questRepo := newFakeQuestRepo(scoreQuest("score_500", "500", 3))
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 480))
	s.OnSessionCompleted(context.Background(), sessionAt("anna", 300))

	p, err := questRepo.GetProgress(context.Background(), "anna", "score_500")
	require.NoError(t, err)
	assert.Equal(t, 500, p.Progress, "progress never exceeds the target")
	assert.True(t, p.IsCompleted)
	require.NotNil(t, p.CompletedAt)

	// Further sessions leave a completed quest alone
	completedAt := *p.CompletedAt
	s.OnSessionCompleted(context.Background(), sessionAt("anna", 999))
	p, _ = questRepo.GetProgress(context.Background(), "anna", "score_500")
	assert.Equal(t, 500, p.Progress)
	assert.Equal(t, completedAt, *p.CompletedAt)
}

func TestFindStreetMatchesExactNameCaseInsensitively(t *testing.T) {
	questRepo := newFakeQuestRepo(&models.Quest{
		ID:            "find_rambla",
		Title:         "Tourist Trap",
		CriteriaType:  models.CriteriaFindStreet,
		CriteriaValue: "La Rambla",
		RewardGiuros:  2,
		IsActive:      true,
	})
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 100,
		Guess{StreetName: "la rambla", Correct: true},
		Guess{StreetName: "Rambla de Catalunya", Correct: true}, // different street, no credit
		Guess{StreetName: "La Rambla", Correct: false},          // wrong answers never count
	))

	p, err := questRepo.GetProgress(context.Background(), "anna", "find_rambla")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Progress)
	assert.True(t, p.IsCompleted, "target of a name-valued quest defaults to 1")
}

func TestDistrictExplorerCountsCorrectAnswersInDistrict(t *testing.T) {
	questRepo := newFakeQuestRepo(&models.Quest{
		ID:            "explore_gracia",
		Title:         "Local Pride",
		CriteriaType:  models.CriteriaDistrictExplorer,
		CriteriaValue: "Gràcia",
		RewardGiuros:  4,
		IsActive:      true,
	})
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 100,
		Guess{StreetName: "Carrer Verdi", District: "Gràcia", Correct: true},
		Guess{StreetName: "Carrer d'Astúries", District: "GRÀCIA", Correct: true},
		Guess{StreetName: "Carrer de Blai", District: "Sants-Montjuïc", Correct: true},
	))

	p, err := questRepo.GetProgress(context.Background(), "anna", "explore_gracia")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsCompleted)
}

func TestUnknownCriteriaContributesNothing(t *testing.T) {
	questRepo := newFakeQuestRepo(&models.Quest{
		ID:            "mystery",
		CriteriaType:  "treasure_hunt",
		CriteriaValue: "3",
		IsActive:      true,
	})
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 100))

	p, err := questRepo.GetProgress(context.Background(), "anna", "mystery")
	require.NoError(t, err)
	assert.Nil(t, p, "unknown criteria never writes progress")
}

func TestOnDailyLoginAdvancesLoginStreakQuests(t *testing.T) {
	questRepo := newFakeQuestRepo(
		&models.Quest{ID: "weekly_streak_5", CriteriaType: models.CriteriaLoginStreak, CriteriaValue: "5", RewardGiuros: 10, IsActive: true},
		scoreQuest("score_500", "500", 3),
	)
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	now := time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC)
	s.OnDailyLogin(context.Background(), "anna", now)
	s.OnDailyLogin(context.Background(), "anna", now.Add(24*time.Hour))

	p, err := questRepo.GetProgress(context.Background(), "anna", "weekly_streak_5")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Progress)

	score, _ := questRepo.GetProgress(context.Background(), "anna", "score_500")
	assert.Nil(t, score, "login only advances login_streak quests")
}

func TestClaimPaysRewardOnce(t *testing.T) {
	questRepo := newFakeQuestRepo(scoreQuest("score_500", "500", 3))
	currency := newFakeCurrencyRepo()
	s := newQuestService(questRepo, newLedger(currency, newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 600))

	result, err := s.Claim(context.Background(), "anna", "score_500")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Reward)
	assert.Equal(t, int64(13), result.NewBalance, "starting balance plus the reward")

	_, err = s.Claim(context.Background(), "anna", "score_500")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, int64(13), currency.balance("anna"), "second claim pays nothing")
}

func TestClaimRequiresCompletion(t *testing.T) {
	questRepo := newFakeQuestRepo(scoreQuest("score_500", "500", 3))
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	_, err := s.Claim(context.Background(), "anna", "score_500")
	assert.ErrorIs(t, err, ErrQuestNotCompleted)

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 100))
	_, err = s.Claim(context.Background(), "anna", "score_500")
	assert.ErrorIs(t, err, ErrQuestNotCompleted)
}

func TestClaimUnknownQuest(t *testing.T) {
	s := newQuestService(newFakeQuestRepo(), newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	_, err := s.Claim(context.Background(), "anna", "missing")
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestClaimCreditFailureReportsPartialFailure(t *testing.T) {
	questRepo := newFakeQuestRepo(scoreQuest("score_500", "500", 3))
	currency := newFakeCurrencyRepo()
	currency.failAddBalance = true
	s := newQuestService(questRepo, newLedger(currency, newFakeShopRepo(), &fakeActivityRepo{}))

	s.OnSessionCompleted(context.Background(), sessionAt("anna", 600))

	result, err := s.Claim(context.Background(), "anna", "score_500")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.True(t, result.PartialFailure)

	// The claim is burned; a retry cannot double-pay once the credit is fixed
	_, err = s.Claim(context.Background(), "anna", "score_500")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestActiveQuestsRespectsActiveDate(t *testing.T) {
	date := "2026-05-03"
	other := "2026-05-04"
	questRepo := newFakeQuestRepo(
		&models.Quest{ID: "always", CriteriaType: models.CriteriaScoreAttack, CriteriaValue: "100", IsActive: true},
		&models.Quest{ID: "today_only", CriteriaType: models.CriteriaScoreAttack, CriteriaValue: "100", IsActive: true, ActiveDate: &date},
		&models.Quest{ID: "tomorrow", CriteriaType: models.CriteriaScoreAttack, CriteriaValue: "100", IsActive: true, ActiveDate: &other},
		&models.Quest{ID: "disabled", CriteriaType: models.CriteriaScoreAttack, CriteriaValue: "100", IsActive: false},
	)
	s := newQuestService(questRepo, newLedger(newFakeCurrencyRepo(), newFakeShopRepo(), &fakeActivityRepo{}))

	quests, err := s.ActiveQuests(context.Background(), time.Date(2026, 5, 3, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, q := range quests {
		ids[q.ID] = true
	}
	assert.True(t, ids["always"])
	assert.True(t, ids["today_only"])
	assert.False(t, ids["tomorrow"])
	assert.False(t, ids["disabled"])
}
