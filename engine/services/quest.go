package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/cache"
	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/engine/utils"
)

var (
	ErrQuestNotFound     = errors.New("quest not found")
	ErrQuestNotCompleted = errors.New("quest not completed")
	ErrAlreadyClaimed    = errors.New("quest reward already claimed")
)

const activeQuestsCacheKey = "quests:active:"

// ClaimResult reports the outcome of a reward claim. PartialFailure marks
// the narrow case where the claim flag flipped but crediting the reward
// failed: the claim is burned, the credit must be reconciled by ops.
type ClaimResult struct {
	QuestID        string
	Reward         int64
	NewBalance     int64
	PartialFailure bool
}

// QuestService evaluates sessions against the active quest set and pays out
// claims. Progress writes are monotonic upserts; the claim flip is a
// conditional update, so double-claims lose the race instead of double-paying.
type QuestService struct {
	questRepo    repositories.QuestRepository
	activityRepo repositories.ActivityRepository
	ledger       *LedgerService
	catalog      *cache.TTLCache
}

func NewQuestService(
	questRepo repositories.QuestRepository,
	activityRepo repositories.ActivityRepository,
	ledger *LedgerService,
	catalog *cache.TTLCache,
) *QuestService {
	return &QuestService{
		questRepo:    questRepo,
		activityRepo: activityRepo,
		ledger:       ledger,
		catalog:      catalog,
	}
}

// ActiveQuests returns the quest set runnable on now's UTC date, cached per
// date for the catalog TTL.
func (s *QuestService) ActiveQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	date := utils.DateKey(now)
	key := activeQuestsCacheKey + date

	if cached, ok := s.catalog.Get(key); ok {
		return cached.([]*models.Quest), nil
	}

	quests, err := s.questRepo.GetActiveQuests(ctx, date)
	if err != nil {
		return nil, err
	}

	s.catalog.Set(key, quests)
	return quests, nil
}

// OnSessionCompleted advances every active quest the session touches.
// Failures on one quest are logged and do not stop the rest; the session
// flow never fails because a quest write did.
func (s *QuestService) OnSessionCompleted(ctx context.Context, session *Session) {
	quests, err := s.ActiveQuests(ctx, session.PlayedAt)
	if err != nil {
		slog.Error("Failed to load active quests for session",
			slog.String("type", "error"),
			slog.String("player_id", session.PlayerID),
			slog.Any("error", err))
		return
	}

	for _, quest := range quests {
		delta := evaluateQuest(quest, session)
		if delta <= 0 {
			continue
		}
		if err := s.advance(ctx, session.PlayerID, quest, delta); err != nil {
			slog.Error("Failed to advance quest progress",
				slog.String("type", "error"),
				slog.String("player_id", session.PlayerID),
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		}
	}
}

// OnDailyLogin advances login_streak quests by one. Callers invoke it only
// when the daily bonus was actually granted, which caps it at once per day.
func (s *QuestService) OnDailyLogin(ctx context.Context, playerID string, now time.Time) {
	quests, err := s.ActiveQuests(ctx, now)
	if err != nil {
		slog.Error("Failed to load active quests for login",
			slog.String("type", "error"),
			slog.String("player_id", playerID),
			slog.Any("error", err))
		return
	}

	for _, quest := range quests {
		if quest.CriteriaType != models.CriteriaLoginStreak {
			continue
		}
		if err := s.advance(ctx, playerID, quest, 1); err != nil {
			slog.Error("Failed to advance login streak quest",
				slog.String("type", "error"),
				slog.String("player_id", playerID),
				slog.String("quest_id", quest.ID),
				slog.Any("error", err))
		}
	}
}

// advance folds delta into the player's progress row. Reads the current row
// first so progress accumulates; the upsert's GREATEST/OR guards keep a
// concurrent advance from regressing anything.
func (s *QuestService) advance(ctx context.Context, playerID string, quest *models.Quest, delta int) error {
	progress, err := s.questRepo.GetProgress(ctx, playerID, quest.ID)
	if err != nil {
		return err
	}
	if progress == nil {
		progress = &models.QuestProgress{PlayerID: playerID, QuestID: quest.ID}
	}
	if progress.IsCompleted {
		return nil
	}

	progress.Apply(delta, quest.Target())
	return s.questRepo.UpsertProgress(ctx, progress)
}

// Claim pays out a completed quest. Exactly one concurrent claim wins the
// conditional flag flip; losers get ErrAlreadyClaimed. If the credit after a
// won flip fails, the result carries PartialFailure=true alongside the error.
func (s *QuestService) Claim(ctx context.Context, playerID, questID string) (*ClaimResult, error) {
	quest, err := s.questRepo.GetQuest(ctx, questID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}

	progress, err := s.questRepo.GetProgress(ctx, playerID, questID)
	if err != nil {
		return nil, err
	}
	if progress == nil || !progress.IsCompleted {
		return nil, ErrQuestNotCompleted
	}
	if progress.IsClaimed {
		return nil, ErrAlreadyClaimed
	}

	won, err := s.questRepo.ClaimProgress(ctx, playerID, questID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Completed but the flip lost: another claim got there first
		return nil, ErrAlreadyClaimed
	}

	result := &ClaimResult{QuestID: questID, Reward: quest.RewardGiuros}

	newBalance, err := s.ledger.Award(ctx, playerID, quest.RewardGiuros, "quest:"+questID)
	if err != nil {
		result.PartialFailure = true
		slog.Error("Quest claim flipped but credit failed",
			slog.String("type", "error"),
			slog.String("player_id", playerID),
			slog.String("quest_id", questID),
			slog.Int64("reward", quest.RewardGiuros),
			slog.Any("error", err))
		return result, fmt.Errorf("quest %s claimed but reward credit failed: %w", questID, err)
	}
	result.NewBalance = newBalance

	if err := s.activityRepo.Create(ctx, &models.Activity{
		PlayerID: playerID,
		Kind:     models.ActivityQuestClaim,
		Detail:   quest.Title,
	}); err != nil {
		slog.Warn("Failed to record quest claim activity",
			slog.String("player_id", playerID),
			slog.String("quest_id", questID),
			slog.Any("error", err))
	}

	return result, nil
}

// Progress lists the player's progress rows with their quest definitions.
func (s *QuestService) Progress(ctx context.Context, playerID string) ([]*models.QuestProgress, error) {
	return s.questRepo.GetPlayerProgress(ctx, playerID)
}

// evaluateQuest maps one session onto one quest's progress delta. All
// criteria accumulate across sessions; unknown criteria types contribute
// nothing.
func evaluateQuest(quest *models.Quest, session *Session) int {
	switch quest.CriteriaType {
	case models.CriteriaScoreAttack:
		return session.Score
	case models.CriteriaFindStreet:
		target := quest.TargetName()
		n := 0
		for _, g := range session.Guesses {
			if g.Correct && strings.EqualFold(g.StreetName, target) {
				n++
			}
		}
		return n
	case models.CriteriaDistrictExplorer:
		target := quest.TargetName()
		n := 0
		for _, g := range session.Guesses {
			if g.Correct && strings.EqualFold(g.District, target) {
				n++
			}
		}
		return n
	default:
		return 0
	}
}
