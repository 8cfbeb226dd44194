package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Activity is a feed entry emitted as a side effect of economy operations
// (cosmetic purchases, quest claims, settled referrals). Activity writes are
// fire-and-forget: a failed insert is logged and never rolls back the
// operation that produced it.
type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:act"`

	ID        int64     `bun:"id,pk,autoincrement"`
	PlayerID  string    `bun:"player_id,notnull"`
	Kind      string    `bun:"kind,notnull"`
	ItemID    string    `bun:"item_id"`
	Detail    string    `bun:"detail"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Activity kinds
const (
	ActivityPurchase   = "purchase"
	ActivityQuestClaim = "quest_claim"
	ActivityReferral   = "referral"
)
