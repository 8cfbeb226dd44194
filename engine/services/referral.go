package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
)

var ErrSelfReferral = errors.New("players cannot refer themselves")

// ReferralService records sign-up referrals and pays the one-shot bonus when
// the referred player reaches the qualifying event (their first completed
// game). Settlement is a single conditional update, so a doubled trigger
// produces exactly one payout.
type ReferralService struct {
	referralRepo repositories.ReferralRepository
	statsRepo    repositories.BadgeStatsRepository
	activityRepo repositories.ActivityRepository
	ledger       *LedgerService

	bonus int64
}

func NewReferralService(
	referralRepo repositories.ReferralRepository,
	statsRepo repositories.BadgeStatsRepository,
	activityRepo repositories.ActivityRepository,
	ledger *LedgerService,
	bonus int64,
) *ReferralService {
	return &ReferralService{
		referralRepo: referralRepo,
		statsRepo:    statsRepo,
		activityRepo: activityRepo,
		ledger:       ledger,
		bonus:        bonus,
	}
}

// RecordReferral stores the referral at sign-up time. The caller runs it
// once per referred player; the one-shot guarantee lives in settlement, not
// here.
func (s *ReferralService) RecordReferral(ctx context.Context, referrer, referred string) error {
	if referrer == referred {
		return ErrSelfReferral
	}
	return s.referralRepo.Create(ctx, referrer, referred)
}

// Settle pays the referral bonus for referred's qualifying event. Returns
// the credited referrer, or "" when there was nothing to settle. Invoked on
// every completed game; the conditional update makes repeats free.
func (s *ReferralService) Settle(ctx context.Context, referred string) (string, error) {
	referrer, err := s.referralRepo.SettleBonus(ctx, referred)
	if err != nil {
		return "", err
	}
	if referrer == "" {
		return "", nil
	}

	if _, err := s.ledger.Award(ctx, referrer, s.bonus, "referral:"+referred); err != nil {
		// The flag is already flipped; surface loudly, never re-settle
		slog.Error("Referral settled but bonus credit failed",
			slog.String("type", "error"),
			slog.String("referrer", referrer),
			slog.String("referred", referred),
			slog.Int64("bonus", s.bonus),
			slog.Any("error", err))
		return referrer, err
	}

	if err := s.statsRepo.IncrementInviteCount(ctx, referrer); err != nil {
		slog.Warn("Failed to bump invite count",
			slog.String("referrer", referrer),
			slog.Any("error", err))
	}

	if err := s.activityRepo.Create(ctx, &models.Activity{
		PlayerID: referrer,
		Kind:     models.ActivityReferral,
		Detail:   referred,
	}); err != nil {
		slog.Warn("Failed to record referral activity",
			slog.String("referrer", referrer),
			slog.Any("error", err))
	}

	slog.Info("Referral bonus settled",
		slog.String("type", "sys"),
		slog.String("referrer", referrer),
		slog.String("referred", referred),
		slog.Int64("bonus", s.bonus))

	return referrer, nil
}

// SettledCountSince reports how many referrals the player has had settled
// since the given time.
func (s *ReferralService) SettledCountSince(ctx context.Context, referrer string, since time.Time) (int, error) {
	return s.referralRepo.CountByReferrerSince(ctx, referrer, since)
}
