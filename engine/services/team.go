package services

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/internal/domain/standings"
)

// TeamStanding is one district's aggregate over the period leaderboard.
type TeamStanding struct {
	TeamID      string
	TeamName    string
	TotalScore  int
	MemberCount int
	AvgScore    float64
}

// TeamService reduces the individual leaderboard into district totals. It
// feeds from the period-aggregated standings, not raw events, so the same
// per-day-best policy applies to teams.
type TeamService struct {
	teamRepo    repositories.TeamRepository
	leaderboard *LeaderboardService

	fetchLimit int
}

func NewTeamService(teamRepo repositories.TeamRepository, leaderboard *LeaderboardService, fetchLimit int) *TeamService {
	return &TeamService{
		teamRepo:    teamRepo,
		leaderboard: leaderboard,
		fetchLimit:  fetchLimit,
	}
}

// Standings returns district totals for the period, sorted by total score
// descending. Players whose stored team resolves to no known district are
// skipped.
func (s *TeamService) Standings(ctx context.Context, period string, now time.Time) ([]TeamStanding, error) {
	var (
		memberships []*models.PlayerTeam
		rows        []standings.Row
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memberships, err = s.teamRepo.GetPlayerTeams(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.leaderboard.Standings(gctx, period, s.fetchLimit, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// player -> district
	byPlayer := make(map[string]*models.District, len(memberships))
	for _, m := range memberships {
		key := m.Team
		if key == "" {
			key = m.District
		}
		if d := models.FindDistrict(key); d != nil {
			byPlayer[m.PlayerID] = d
		}
	}

	totals := make(map[string]*TeamStanding)
	for _, row := range rows {
		d, ok := byPlayer[row.PlayerID]
		if !ok {
			continue
		}
		t, ok := totals[d.ID]
		if !ok {
			t = &TeamStanding{TeamID: d.ID, TeamName: d.TeamName}
			totals[d.ID] = t
		}
		t.TotalScore += row.Score
		t.MemberCount++
	}

	out := make([]TeamStanding, 0, len(totals))
	for _, t := range totals {
		if t.MemberCount > 0 {
			t.AvgScore = float64(t.TotalScore) / float64(t.MemberCount)
		}
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].TeamID < out[j].TeamID
	})

	return out, nil
}

// SetTeam stores the player's team pick.
func (s *TeamService) SetTeam(ctx context.Context, playerID, team, district string) error {
	return s.teamRepo.SetPlayerTeam(ctx, playerID, team, district)
}
