package models

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

type Quest struct {
	bun.BaseModel `bun:"table:quests,alias:q"`

	ID            string    `bun:"id,pk"`
	Title         string    `bun:"title,notnull"`
	Description   string    `bun:"description"`
	CriteriaType  string    `bun:"criteria_type,notnull"`
	CriteriaValue string    `bun:"criteria_value,notnull"` // numeric target or a target name, per criteria type
	RewardGiuros  int64     `bun:"reward_giuros,notnull,default:0"`
	ActiveDate    *string   `bun:"active_date"` // YYYY-MM-DD; nil = always active
	IsActive      bool      `bun:"is_active,notnull,default:true"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// Criteria type constants
const (
	CriteriaScoreAttack      = "score_attack"
	CriteriaFindStreet       = "find_street"
	CriteriaDistrictExplorer = "district_explorer"
	CriteriaLoginStreak      = "login_streak"
)

// Target returns the numeric completion target. Name-valued criteria
// (find_street, district_explorer) complete on the first matching answer,
// so a non-numeric value defaults to 1.
func (q *Quest) Target() int {
	if n, err := strconv.Atoi(q.CriteriaValue); err == nil && n > 0 {
		return n
	}
	return 1
}

// TargetName returns the criteria value interpreted as a name, for criteria
// types that match against street or district names.
func (q *Quest) TargetName() string {
	return q.CriteriaValue
}

// ActiveOn reports whether the quest runs on the given UTC date string.
func (q *Quest) ActiveOn(date string) bool {
	if !q.IsActive {
		return false
	}
	return q.ActiveDate == nil || *q.ActiveDate == date
}
