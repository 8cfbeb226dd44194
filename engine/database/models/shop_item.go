package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ShopItem is one entry of the cosmetic catalog. The catalog is managed by
// content tooling; the engine only reads it (through the TTL cache) to price
// and validate spends.
type ShopItem struct {
	bun.BaseModel `bun:"table:shop_items,alias:si"`

	ID        string    `bun:"id,pk"` // e.g. badge_nightowl, frame_gold, title_cartographer
	Name      string    `bun:"name,notnull"`
	Kind      string    `bun:"kind,notnull"` // badge, frame, title, handle_change
	Cost      int64     `bun:"cost,notnull"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Repeatable reports whether the item may be bought more than once.
// Handle changes are consumable; everything else is owned permanently.
func (i *ShopItem) Repeatable() bool {
	return strings.HasPrefix(i.ID, "handle_change")
}

// OwnedItem marks that a player owns a cosmetic.
type OwnedItem struct {
	bun.BaseModel `bun:"table:owned_items,alias:oi"`

	ID          int64     `bun:"id,pk,autoincrement"`
	PlayerID    string    `bun:"player_id,notnull"`
	ItemID      string    `bun:"item_id,notnull"`
	PurchasedAt time.Time `bun:"purchased_at,notnull"`
}
