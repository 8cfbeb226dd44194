package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

func newReferralService(referralRepo *fakeReferralRepo, statsRepo *fakeStatsRepo, activity *fakeActivityRepo, currency *fakeCurrencyRepo) *ReferralService {
	ledger := NewLedgerService(currency, newFakeShopRepo(), activity, 10, 2)
	return NewReferralService(referralRepo, statsRepo, activity, ledger, 15)
}

func TestRecordReferralRejectsSelf(t *testing.T) {
	s := newReferralService(&fakeReferralRepo{}, newFakeStatsRepo(), &fakeActivityRepo{}, newFakeCurrencyRepo())

	err := s.RecordReferral(context.Background(), "anna", "anna")
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestSettlePaysBonusExactlyOnce(t *testing.T) {
	referralRepo := &fakeReferralRepo{}
	statsRepo := newFakeStatsRepo()
	activity := &fakeActivityRepo{}
	currency := newFakeCurrencyRepo()
	s := newReferralService(referralRepo, statsRepo, activity, currency)

	require.NoError(t, s.RecordReferral(context.Background(), "anna", "berta"))

	referrer, err := s.Settle(context.Background(), "berta")
	require.NoError(t, err)
	assert.Equal(t, "anna", referrer)
	assert.Equal(t, int64(25), currency.balance("anna"), "starting balance plus the referral bonus")
	assert.Equal(t, 1, statsRepo.inviteCount["anna"])

	require.Len(t, activity.activities, 1)
	assert.Equal(t, models.ActivityReferral, activity.activities[0].Kind)
	assert.Equal(t, "berta", activity.activities[0].Detail)

	// The qualifying event fires again; nothing moves
	referrer, err = s.Settle(context.Background(), "berta")
	require.NoError(t, err)
	assert.Empty(t, referrer)
	assert.Equal(t, int64(25), currency.balance("anna"))
	assert.Equal(t, 1, statsRepo.inviteCount["anna"])
}

func TestSettleWithoutReferralIsNoop(t *testing.T) {
	currency := newFakeCurrencyRepo()
	s := newReferralService(&fakeReferralRepo{}, newFakeStatsRepo(), &fakeActivityRepo{}, currency)

	referrer, err := s.Settle(context.Background(), "berta")
	require.NoError(t, err)
	assert.Empty(t, referrer)
}

func TestSettleCreditFailureNeverResettles(t *testing.T) {
	referralRepo := &fakeReferralRepo{}
	currency := newFakeCurrencyRepo()
	currency.failAddBalance = true
	s := newReferralService(referralRepo, newFakeStatsRepo(), &fakeActivityRepo{}, currency)

	require.NoError(t, s.RecordReferral(context.Background(), "anna", "berta"))

	referrer, err := s.Settle(context.Background(), "berta")
	require.Error(t, err)
	assert.Equal(t, "anna", referrer, "the settled referrer is reported for reconciliation")

	// The flag is burned; a retry settles nothing rather than double-paying
	currency.failAddBalance = false
	referrer, err = s.Settle(context.Background(), "berta")
	require.NoError(t, err)
	assert.Empty(t, referrer)
}

func TestSettleOnEverySessionPaysOnceAndRecovers(t *testing.T) {
	referralRepo := &fakeReferralRepo{}
	statsRepo := newFakeStatsRepo()
	currency := newFakeCurrencyRepo()
	s := newReferralService(referralRepo, statsRepo, &fakeActivityRepo{}, currency)

	require.NoError(t, s.RecordReferral(context.Background(), "anna", "berta"))

	// The first game's settlement fails before the flag flips; nothing is lost
	referralRepo.failSettle = true
	_, err := s.Settle(context.Background(), "berta")
	require.Error(t, err)
	assert.Equal(t, int64(-1), currency.balance("anna"), "no account is touched on a failed settle")

	// The next game retries and pays; every game after that is a free no-op
	referralRepo.failSettle = false
	for i := 0; i < 3; i++ {
		_, err = s.Settle(context.Background(), "berta")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(25), currency.balance("anna"), "bonus paid exactly once across repeated sessions")
	assert.Equal(t, 1, statsRepo.inviteCount["anna"])
}

func TestRecordReferralFirstReferrerWins(t *testing.T) {
	referralRepo := &fakeReferralRepo{}
	currency := newFakeCurrencyRepo()
	s := newReferralService(referralRepo, newFakeStatsRepo(), &fakeActivityRepo{}, currency)

	require.NoError(t, s.RecordReferral(context.Background(), "anna", "carla"))
	require.NoError(t, s.RecordReferral(context.Background(), "berta", "carla"))

	referrer, err := s.Settle(context.Background(), "carla")
	require.NoError(t, err)
	assert.Equal(t, "anna", referrer)
}
