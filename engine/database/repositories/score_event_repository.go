package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

// ScoreEventRepository is insert-and-read only: score events are immutable
// once written.
type ScoreEventRepository interface {
	Create(ctx context.Context, event *models.ScoreEvent) error
	GetSince(ctx context.Context, since *time.Time, limit int) ([]*models.ScoreEvent, error)
}

type scoreEventRepository struct {
	*BaseRepository
}

func NewScoreEventRepository(db *bun.DB) ScoreEventRepository {
	return &scoreEventRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *scoreEventRepository) Create(ctx context.Context, event *models.ScoreEvent) error {
	if event.PlayedAt.IsZero() {
		event.PlayedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		slog.Error("Failed to insert score event",
			slog.String("type", "db"),
			slog.String("operation", "Create"),
			slog.String("player_id", event.PlayerID),
			slog.Any("error", err))
		return r.HandleErrorWithID("create", "score event", event.PlayerID, err)
	}
	return nil
}

// GetSince fetches events with played_at >= since (all events when since is
// nil), ordered by score descending and capped at limit. The aggregators
// over-fetch by a buffer multiplier and reduce client-side.
func (r *scoreEventRepository) GetSince(ctx context.Context, since *time.Time, limit int) ([]*models.ScoreEvent, error) {
	var events []*models.ScoreEvent
	q := r.db.NewSelect().Model(&events)
	if since != nil {
		q = q.Where("played_at >= ?", *since)
	}
	err := q.
		Order("score DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_since", "score events", err)
	}

	return events, nil
}
