package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/engine/utils"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("currency account not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrItemNotFound      = errors.New("shop item not found")
	ErrAlreadyOwned      = errors.New("item already owned")
)

// PurchaseGrantError reports a purchase where the debit committed but the
// item grant failed. The player paid; ops reconciles from the activity log.
type PurchaseGrantError struct {
	PlayerID string
	ItemID   string
	Err      error
}

func (e *PurchaseGrantError) Error() string {
	return fmt.Sprintf("purchase debited but grant failed for player %s item %s: %v", e.PlayerID, e.ItemID, e.Err)
}

func (e *PurchaseGrantError) Unwrap() error { return e.Err }

// LedgerService owns every Giuros balance movement: awards, purchases and the
// daily login bonus. It never computes balances client-side; all arithmetic
// happens in the currency repository's atomic statements.
type LedgerService struct {
	currencyRepo repositories.CurrencyRepository
	shopRepo     repositories.ShopRepository
	activityRepo repositories.ActivityRepository

	startingBalance int64
	dailyLoginBonus int64
}

func NewLedgerService(
	currencyRepo repositories.CurrencyRepository,
	shopRepo repositories.ShopRepository,
	activityRepo repositories.ActivityRepository,
	startingBalance int64,
	dailyLoginBonus int64,
) *LedgerService {
	return &LedgerService{
		currencyRepo:    currencyRepo,
		shopRepo:        shopRepo,
		activityRepo:    activityRepo,
		startingBalance: startingBalance,
		dailyLoginBonus: dailyLoginBonus,
	}
}

// EnsureAccount creates the player's account with the starting balance if it
// does not exist yet. Safe to call on every request.
func (s *LedgerService) EnsureAccount(ctx context.Context, playerID string) error {
	return s.currencyRepo.CreateAccount(ctx, playerID, s.startingBalance)
}

// Balance returns the player's current balance and owned item ids.
func (s *LedgerService) Balance(ctx context.Context, playerID string) (int64, []string, error) {
	account, err := s.currencyRepo.GetAccount(ctx, playerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return 0, nil, ErrAccountNotFound
		}
		return 0, nil, err
	}

	items, err := s.currencyRepo.GetOwnedItems(ctx, playerID)
	if err != nil {
		return 0, nil, err
	}

	return account.Balance, items, nil
}

// Award credits amount to the player and returns the new balance. The
// account is created lazily so a reward can land before the player ever
// checked their wallet.
func (s *LedgerService) Award(ctx context.Context, playerID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	if err := s.EnsureAccount(ctx, playerID); err != nil {
		return 0, err
	}

	newBalance, err := s.currencyRepo.AddBalance(ctx, playerID, amount)
	if err != nil {
		return 0, err
	}

	slog.Info("Giuros awarded",
		slog.String("type", "sys"),
		slog.String("player_id", playerID),
		slog.Int64("amount", amount),
		slog.String("reason", reason),
		slog.Int64("new_balance", newBalance))

	return newBalance, nil
}

// Purchase debits the item price and grants the item. Non-repeatable items
// reject a second purchase before any money moves. The debit itself is a
// conditional decrement, so two concurrent purchases can never overdraw.
func (s *LedgerService) Purchase(ctx context.Context, playerID, itemID string) (int64, error) {
	item, err := s.shopRepo.GetItem(ctx, itemID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return 0, ErrItemNotFound
		}
		return 0, err
	}

	if err := s.EnsureAccount(ctx, playerID); err != nil {
		return 0, err
	}

	if !item.Repeatable() {
		owned, err := s.currencyRepo.GetOwnedItems(ctx, playerID)
		if err != nil {
			return 0, err
		}
		for _, id := range owned {
			if id == itemID {
				return 0, ErrAlreadyOwned
			}
		}
	}

	newBalance, spent, err := s.currencyRepo.SpendBalance(ctx, playerID, item.Cost)
	if err != nil {
		return 0, err
	}
	if !spent {
		return 0, ErrInsufficientFunds
	}

	if err := s.currencyRepo.AddOwnedItem(ctx, playerID, itemID); err != nil {
		return newBalance, &PurchaseGrantError{PlayerID: playerID, ItemID: itemID, Err: err}
	}

	if err := s.activityRepo.Create(ctx, &models.Activity{
		PlayerID: playerID,
		Kind:     models.ActivityPurchase,
		ItemID:   itemID,
		Detail:   item.Name,
	}); err != nil {
		// The purchase itself stands; the feed entry is best effort
		slog.Warn("Failed to record purchase activity",
			slog.String("player_id", playerID),
			slog.String("item_id", itemID),
			slog.Any("error", err))
	}

	slog.Info("Item purchased",
		slog.String("type", "sys"),
		slog.String("player_id", playerID),
		slog.String("item_id", itemID),
		slog.Int64("cost", item.Cost),
		slog.Int64("new_balance", newBalance))

	return newBalance, nil
}

// ClaimDailyLoginBonus credits the login bonus at most once per UTC day.
// granted=false means the player already claimed today.
func (s *LedgerService) ClaimDailyLoginBonus(ctx context.Context, playerID string, now time.Time) (int64, bool, error) {
	if err := s.EnsureAccount(ctx, playerID); err != nil {
		return 0, false, err
	}

	today := utils.DateKey(now)
	newBalance, granted, err := s.currencyRepo.ClaimLoginBonus(ctx, playerID, s.dailyLoginBonus, today)
	if err != nil {
		return 0, false, err
	}

	if granted {
		slog.Info("Daily login bonus claimed",
			slog.String("type", "sys"),
			slog.String("player_id", playerID),
			slog.String("date", today),
			slog.Int64("new_balance", newBalance))
	}

	return newBalance, granted, nil
}
