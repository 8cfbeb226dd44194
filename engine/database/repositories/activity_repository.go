package repositories

import (
	"context"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetRecent(ctx context.Context, limit int) ([]*models.Activity, error)
	GetByPlayer(ctx context.Context, playerID string, limit int) ([]*models.Activity, error)
}

type activityRepository struct {
	*BaseRepository
}

func NewActivityRepository(db *bun.DB) ActivityRepository {
	return &activityRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(activity).Exec(ctx)
	return r.HandleErrorWithID("create", "activity", activity.PlayerID, err)
}

func (r *activityRepository) GetRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	err := r.db.NewSelect().
		Model(&activities).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	return activities, r.HandleError("get_recent", "activities", err)
}

func (r *activityRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	err := r.db.NewSelect().
		Model(&activities).
		Where("player_id = ?", playerID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	return activities, r.HandleErrorWithID("get_by_player", "activities", playerID, err)
}
