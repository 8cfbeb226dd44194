package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestProgress tracks one player's progress on one quest. There is at most
// one row per (player, quest); the repository upserts on that key so repeated
// evaluations never create duplicates. Progress and the two flags are
// monotonic: they never regress once advanced.
type QuestProgress struct {
	bun.BaseModel `bun:"table:quest_progress,alias:qp"`

	ID          int64      `bun:"id,pk,autoincrement"`
	PlayerID    string     `bun:"player_id,notnull"`
	QuestID     string     `bun:"quest_id,notnull"`
	Progress    int        `bun:"progress,notnull,default:0"`
	IsCompleted bool       `bun:"is_completed,notnull,default:false"`
	IsClaimed   bool       `bun:"is_claimed,notnull,default:false"`
	CompletedAt *time.Time `bun:"completed_at"`
	ClaimedAt   *time.Time `bun:"claimed_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`

	// Relations
	Quest *Quest `bun:"rel:has-one,join:quest_id=id"`
}

// Apply folds delta into the progress, clamping at target and flipping
// is_completed exactly once.
func (p *QuestProgress) Apply(delta, target int) {
	if p.IsCompleted || delta <= 0 {
		return
	}
	p.Progress += delta
	if p.Progress >= target {
		p.Progress = target
		p.IsCompleted = true
		now := time.Now()
		p.CompletedAt = &now
	}
}
