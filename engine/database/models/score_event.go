package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScoreEvent is one immutable record of a completed game session. Rows are
// append-only: nothing in the engine updates or deletes them.
type ScoreEvent struct {
	bun.BaseModel `bun:"table:score_events,alias:se"`

	ID              int64     `bun:"id,pk,autoincrement"`
	PlayerID        string    `bun:"player_id,notnull"`
	Score           int       `bun:"score,notnull"`
	DurationSeconds float64   `bun:"duration_seconds,notnull"`
	PlayedAt        time.Time `bun:"played_at,notnull"`
	Platform        string    `bun:"platform,notnull,default:'web'"`
	CorrectAnswers  int       `bun:"correct_answers,notnull,default:0"`
	QuestionCount   int       `bun:"question_count,notnull,default:10"`
	StreakAtPlay    int       `bun:"streak_at_play,notnull,default:0"`
	IsBonus         bool      `bun:"is_bonus,notnull,default:false"`
}

// DayKey returns the UTC calendar day of the event, used to bucket events
// when building cumulative standings.
func (e *ScoreEvent) DayKey() string {
	return e.PlayedAt.UTC().Format("2006-01-02")
}
