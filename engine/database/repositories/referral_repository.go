package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/uptrace/bun"
)

type ReferralRepository interface {
	Create(ctx context.Context, referrer, referred string) error
	SettleBonus(ctx context.Context, referred string) (string, error)
	CountByReferrerSince(ctx context.Context, referrer string, since time.Time) (int, error)
}

type referralRepository struct {
	*BaseRepository
}

func NewReferralRepository(db *bun.DB) ReferralRepository {
	return &referralRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *referralRepository) Create(ctx context.Context, referrer, referred string) error {
	referral := &models.Referral{
		Referrer:  referrer,
		Referred:  referred,
		CreatedAt: time.Now(),
	}
	// A player has exactly one referrer; the first recorded link wins
	_, err := r.db.NewInsert().
		Model(referral).
		On("CONFLICT (referred) DO NOTHING").
		Exec(ctx)
	return r.HandleErrorWithID("create", "referral", referred, err)
}

// SettleBonus marks the most recent unsettled referral for the referred
// player and returns the referrer to credit. The lookup and the flag flip
// are one conditional update, so two concurrent settlements for the same
// player can only produce one winner; the loser gets sql.ErrNoRows mapped to
// an empty referrer with nil error.
func (r *referralRepository) SettleBonus(ctx context.Context, referred string) (string, error) {
	var referrer string
	err := r.db.NewUpdate().
		Model((*models.Referral)(nil)).
		Set("bonus_awarded = ?", true).
		Where(`id = (SELECT id FROM referrals
			WHERE referred = ? AND bonus_awarded = false
			ORDER BY created_at DESC LIMIT 1)`, referred).
		Where("bonus_awarded = ?", false).
		Returning("referrer").
		Scan(ctx, &referrer)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", r.HandleErrorWithID("settle_bonus", "referral", referred, err)
	}

	return referrer, nil
}

// CountByReferrerSince reports how many referrals a player has had settled
// since the given time, for daily referral reward checks.
func (r *referralRepository) CountByReferrerSince(ctx context.Context, referrer string, since time.Time) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Referral)(nil)).
		Where("referrer = ?", referrer).
		Where("bonus_awarded = ?", true).
		Where("created_at >= ?", since).
		Count(ctx)

	if err != nil {
		return 0, r.HandleErrorWithID("count_by_referrer", "referrals", referrer, err)
	}

	return count, nil
}
