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

type QuestRepository interface {
	// Quest definitions (written by content tooling, read by the engine)
	GetQuest(ctx context.Context, questID string) (*models.Quest, error)
	GetActiveQuests(ctx context.Context, date string) ([]*models.Quest, error)
	GetAllQuests(ctx context.Context) ([]*models.Quest, error)
	CreateQuest(ctx context.Context, quest *models.Quest) error
	UpdateQuest(ctx context.Context, quest *models.Quest) error
	DeleteQuest(ctx context.Context, questID string) error

	// Player progress
	GetProgress(ctx context.Context, playerID string, questID string) (*models.QuestProgress, error)
	GetPlayerProgress(ctx context.Context, playerID string) ([]*models.QuestProgress, error)
	UpsertProgress(ctx context.Context, progress *models.QuestProgress) error
	ClaimProgress(ctx context.Context, playerID string, questID string) (bool, error)
}

type questRepository struct {
	*BaseRepository
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *questRepository) GetQuest(ctx context.Context, questID string) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.db.NewSelect().
		Model(quest).
		Where("id = ?", questID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "quest", ID: questID}
		}
		return nil, r.HandleErrorWithID("get", "quest", questID, err)
	}

	return quest, nil
}

// GetActiveQuests returns quests runnable on the given UTC date: active and
// either undated or dated for that day.
func (r *questRepository) GetActiveQuests(ctx context.Context, date string) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Where("is_active = ?", true).
		Where("active_date IS NULL OR active_date = ?", date).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_active", "quests", err)
	}

	return quests, nil
}

func (r *questRepository) GetAllQuests(ctx context.Context) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Order("created_at DESC").
		Scan(ctx)

	return quests, r.HandleError("get_all", "quests", err)
}

func (r *questRepository) CreateQuest(ctx context.Context, quest *models.Quest) error {
	quest.CreatedAt = time.Now()
	quest.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(quest).Exec(ctx)
	return r.HandleError("create", "quest", err)
}

func (r *questRepository) UpdateQuest(ctx context.Context, quest *models.Quest) error {
	quest.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(quest).
		WherePK().
		Exec(ctx)
	return r.HandleErrorWithID("update", "quest", quest.ID, err)
}

func (r *questRepository) DeleteQuest(ctx context.Context, questID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Quest)(nil)).
		Where("id = ?", questID).
		Exec(ctx)
	return r.HandleErrorWithID("delete", "quest", questID, err)
}

func (r *questRepository) GetProgress(ctx context.Context, playerID string, questID string) (*models.QuestProgress, error) {
	progress := new(models.QuestProgress)
	err := r.db.NewSelect().
		Model(progress).
		Relation("Quest").
		Where("qp.player_id = ? AND qp.quest_id = ?", playerID, questID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.HandleErrorWithID("get_progress", "quest progress", playerID, err)
	}

	return progress, nil
}

func (r *questRepository) GetPlayerProgress(ctx context.Context, playerID string) ([]*models.QuestProgress, error) {
	var progress []*models.QuestProgress
	err := r.db.NewSelect().
		Model(&progress).
		Relation("Quest").
		Where("qp.player_id = ?", playerID).
		Order("qp.quest_id ASC").
		Scan(ctx)

	if err != nil {
		slog.Error("Failed to get player quest progress",
			slog.String("type", "db"),
			slog.String("operation", "GetPlayerProgress"),
			slog.String("player_id", playerID),
			slog.Any("error", err))
		return nil, r.HandleErrorWithID("get_player_progress", "quest progress", playerID, err)
	}

	return progress, nil
}

// UpsertProgress persists an evaluation result keyed by (player, quest). The
// conflict clause folds monotonically: progress only grows and the completed
// flag never clears, so re-running an evaluation is idempotent.
func (r *questRepository) UpsertProgress(ctx context.Context, progress *models.QuestProgress) error {
	now := time.Now()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (player_id, quest_id) DO UPDATE").
		Set("progress = GREATEST(qp.progress, EXCLUDED.progress)").
		Set("is_completed = qp.is_completed OR EXCLUDED.is_completed").
		Set("completed_at = COALESCE(qp.completed_at, EXCLUDED.completed_at)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return r.HandleErrorWithID("upsert_progress", "quest progress", progress.PlayerID, err)
}

// ClaimProgress flips is_claimed in one conditional update that only
// succeeds when the quest is completed and still unclaimed. Returns whether
// this call won the flip; a false result with nil error means some other
// call already claimed it or the quest is not claimable.
func (r *questRepository) ClaimProgress(ctx context.Context, playerID string, questID string) (bool, error) {
	now := time.Now()
	res, err := r.db.NewUpdate().
		Model((*models.QuestProgress)(nil)).
		Set("is_claimed = ?", true).
		Set("claimed_at = ?", now).
		Set("updated_at = ?", now).
		Where("player_id = ? AND quest_id = ?", playerID, questID).
		Where("is_completed = ?", true).
		Where("is_claimed = ?", false).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("claim_progress", "quest progress", playerID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, r.HandleErrorWithID("claim_progress", "quest progress", playerID, err)
	}

	return rows > 0, nil
}
