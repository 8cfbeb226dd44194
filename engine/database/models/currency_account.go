package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CurrencyAccount holds a player's Giuros balance. The balance column carries
// a CHECK (balance >= 0) constraint and is only ever mutated through the
// atomic increment/decrement statements in the currency repository.
type CurrencyAccount struct {
	bun.BaseModel `bun:"table:currency_accounts,alias:ca"`

	PlayerID      string    `bun:"player_id,pk"`
	Balance       int64     `bun:"balance,notnull,default:0"`
	LastLoginDate string    `bun:"last_login_date"` // YYYY-MM-DD, UTC
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}
