package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// PlayerTeam stores the team/district a player picked at sign-up. The value
// is free text from the registration flow and is resolved against the fixed
// district table at aggregation time.
type PlayerTeam struct {
	bun.BaseModel `bun:"table:player_teams,alias:pt"`

	PlayerID  string    `bun:"player_id,pk"`
	Team      string    `bun:"team"`
	District  string    `bun:"district"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// District is one of the ten fixed Barcelona districts players compete for.
type District struct {
	ID       string
	Name     string
	TeamName string
}

// Districts is the fixed team table. IDs and team names match the ones the
// client ships; aggregation resolves free-text team fields against it.
var Districts = []District{
	{ID: "ciutat_vella", Name: "Ciutat Vella", TeamName: "Ciutat Vella Bats"},
	{ID: "eixample", Name: "Eixample", TeamName: "Eixample Dragons"},
	{ID: "sants_montjuic", Name: "Sants-Montjuïc", TeamName: "Sants Lions"},
	{ID: "les_corts", Name: "Les Corts", TeamName: "Les Corts Eagles"},
	{ID: "sarria_sant_gervasi", Name: "Sarrià-Sant Gervasi", TeamName: "Sarrià Foxes"},
	{ID: "gracia", Name: "Gràcia", TeamName: "Gràcia Cats"},
	{ID: "horta_guinardo", Name: "Horta-Guinardó", TeamName: "Horta Boars"},
	{ID: "nou_barris", Name: "Nou Barris", TeamName: "Nou Barris Wolves"},
	{ID: "sant_andreu", Name: "Sant Andreu", TeamName: "Sant Andreu Bears"},
	{ID: "sant_marti", Name: "Sant Martí", TeamName: "Sant Martí Sharks"},
}

// FindDistrict resolves a stored team or district value case-insensitively
// against id, team name, then display name. First match wins; unknown values
// return nil and the player simply does not count toward any team.
func FindDistrict(key string) *District {
	if key == "" {
		return nil
	}
	k := strings.ToLower(strings.TrimSpace(key))
	for i := range Districts {
		d := &Districts[i]
		if strings.ToLower(d.ID) == k || strings.ToLower(d.TeamName) == k || strings.ToLower(d.Name) == k {
			return d
		}
	}
	return nil
}
