package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

// CurrencyRepository owns all balance mutations. Every mutation is a single
// server-side statement (atomic increment, conditional decrement, or
// conditional date-guarded increment) so concurrent callers for the same
// player can never lose or double-apply an update.
type CurrencyRepository interface {
	GetAccount(ctx context.Context, playerID string) (*models.CurrencyAccount, error)
	CreateAccount(ctx context.Context, playerID string, startingBalance int64) error
	AddBalance(ctx context.Context, playerID string, amount int64) (int64, error)
	SpendBalance(ctx context.Context, playerID string, cost int64) (int64, bool, error)
	ClaimLoginBonus(ctx context.Context, playerID string, bonus int64, today string) (int64, bool, error)
	GetOwnedItems(ctx context.Context, playerID string) ([]string, error)
	AddOwnedItem(ctx context.Context, playerID string, itemID string) error
}

type currencyRepository struct {
	*BaseRepository
}

func NewCurrencyRepository(db *bun.DB) CurrencyRepository {
	return &currencyRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *currencyRepository) GetAccount(ctx context.Context, playerID string) (*models.CurrencyAccount, error) {
	account := new(models.CurrencyAccount)
	err := r.db.NewSelect().
		Model(account).
		Where("player_id = ?", playerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "currency account", ID: playerID}
		}
		return nil, r.HandleErrorWithID("get", "currency account", playerID, err)
	}

	return account, nil
}

// CreateAccount inserts the account if it does not exist yet. Racing
// creations collapse into one row via ON CONFLICT DO NOTHING.
func (r *currencyRepository) CreateAccount(ctx context.Context, playerID string, startingBalance int64) error {
	account := &models.CurrencyAccount{
		PlayerID:  playerID,
		Balance:   startingBalance,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(account).
		On("CONFLICT (player_id) DO NOTHING").
		Exec(ctx)

	return r.HandleErrorWithID("create", "currency account", playerID, err)
}

// AddBalance credits amount as an atomic server-side increment and returns
// the new balance. A read-modify-write here would race concurrent awards.
func (r *currencyRepository) AddBalance(ctx context.Context, playerID string, amount int64) (int64, error) {
	var newBalance int64
	err := r.db.NewUpdate().
		Model((*models.CurrencyAccount)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("player_id = ?", playerID).
		Returning("balance").
		Scan(ctx, &newBalance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &NotFoundError{Entity: "currency account", ID: playerID}
		}
		return 0, r.HandleErrorWithID("add_balance", "currency account", playerID, err)
	}

	slog.Debug("Balance credited",
		slog.String("type", "db"),
		slog.String("operation", "AddBalance"),
		slog.String("player_id", playerID),
		slog.Int64("amount", amount),
		slog.Int64("new_balance", newBalance))

	return newBalance, nil
}

// SpendBalance debits cost in one conditional update that only fires when
// the balance covers it. Returns (newBalance, spent). spent=false with a nil
// error means insufficient funds; the caller maps that to its own error.
func (r *currencyRepository) SpendBalance(ctx context.Context, playerID string, cost int64) (int64, bool, error) {
	var newBalance int64
	err := r.db.NewUpdate().
		Model((*models.CurrencyAccount)(nil)).
		Set("balance = balance - ?", cost).
		Set("updated_at = ?", time.Now()).
		Where("player_id = ?", playerID).
		Where("balance >= ?", cost).
		Returning("balance").
		Scan(ctx, &newBalance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the account is missing or the balance was short; the
			// caller distinguishes the two with a follow-up read.
			return 0, false, nil
		}
		return 0, false, r.HandleErrorWithID("spend_balance", "currency account", playerID, err)
	}

	slog.Debug("Balance debited",
		slog.String("type", "db"),
		slog.String("operation", "SpendBalance"),
		slog.String("player_id", playerID),
		slog.Int64("cost", cost),
		slog.Int64("new_balance", newBalance))

	return newBalance, true, nil
}

// ClaimLoginBonus credits the daily bonus at most once per UTC calendar day.
// The date guard and the increment are one statement, so two devices
// claiming at the same moment produce exactly one credit.
func (r *currencyRepository) ClaimLoginBonus(ctx context.Context, playerID string, bonus int64, today string) (int64, bool, error) {
	var newBalance int64
	err := r.db.NewUpdate().
		Model((*models.CurrencyAccount)(nil)).
		Set("balance = balance + ?", bonus).
		Set("last_login_date = ?", today).
		Set("updated_at = ?", time.Now()).
		Where("player_id = ?", playerID).
		Where("last_login_date IS DISTINCT FROM ?", today).
		Returning("balance").
		Scan(ctx, &newBalance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, r.HandleErrorWithID("claim_login_bonus", "currency account", playerID, err)
	}

	return newBalance, true, nil
}

func (r *currencyRepository) GetOwnedItems(ctx context.Context, playerID string) ([]string, error) {
	var itemIDs []string
	err := r.db.NewSelect().
		Model((*models.OwnedItem)(nil)).
		Column("item_id").
		Where("player_id = ?", playerID).
		Order("purchased_at ASC").
		Scan(ctx, &itemIDs)

	if err != nil {
		return nil, r.HandleErrorWithID("get_owned_items", "owned items", playerID, err)
	}

	return itemIDs, nil
}

func (r *currencyRepository) AddOwnedItem(ctx context.Context, playerID string, itemID string) error {
	owned := &models.OwnedItem{
		PlayerID:    playerID,
		ItemID:      itemID,
		PurchasedAt: time.Now(),
	}
	_, err := r.db.NewInsert().Model(owned).Exec(ctx)
	return r.HandleErrorWithID("add_owned_item", "owned items", playerID, err)
}
