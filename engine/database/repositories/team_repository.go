package repositories

import (
	"context"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

type TeamRepository interface {
	GetPlayerTeams(ctx context.Context) ([]*models.PlayerTeam, error)
	SetPlayerTeam(ctx context.Context, playerID, team, district string) error
}

type teamRepository struct {
	*BaseRepository
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *teamRepository) GetPlayerTeams(ctx context.Context) ([]*models.PlayerTeam, error) {
	var teams []*models.PlayerTeam
	err := r.db.NewSelect().
		Model(&teams).
		Scan(ctx)

	return teams, r.HandleError("get_player_teams", "player teams", err)
}

func (r *teamRepository) SetPlayerTeam(ctx context.Context, playerID, team, district string) error {
	row := &models.PlayerTeam{
		PlayerID:  playerID,
		Team:      team,
		District:  district,
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (player_id) DO UPDATE").
		Set("team = EXCLUDED.team").
		Set("district = EXCLUDED.district").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return r.HandleErrorWithID("set_player_team", "player teams", playerID, err)
}
