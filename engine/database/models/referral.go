package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Referral records that one player signed up through another player's
// referral link. BonusAwarded flips true exactly once, when the referred
// player reaches the qualifying event.
type Referral struct {
	bun.BaseModel `bun:"table:referrals,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Referrer     string    `bun:"referrer,notnull"`
	Referred     string    `bun:"referred,notnull"`
	BonusAwarded bool      `bun:"bonus_awarded,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}
