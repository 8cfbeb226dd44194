package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
)

// In-memory repository fakes. Conditional mutations mirror the SQL guards
// (date checks, balance checks, claim flips) so the services see the same
// contract the real repositories provide.

type fakeCurrencyRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.CurrencyAccount
	owned    map[string][]string

	failAddBalance bool
	failAddOwned   bool
}

func newFakeCurrencyRepo() *fakeCurrencyRepo {
	return &fakeCurrencyRepo{
		accounts: make(map[string]*models.CurrencyAccount),
		owned:    make(map[string][]string),
	}
}

func (f *fakeCurrencyRepo) GetAccount(_ context.Context, playerID string) (*models.CurrencyAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[playerID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "currency account", ID: playerID}
	}
	cp := *account
	return &cp, nil
}

func (f *fakeCurrencyRepo) CreateAccount(_ context.Context, playerID string, startingBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[playerID]; !ok {
		f.accounts[playerID] = &models.CurrencyAccount{PlayerID: playerID, Balance: startingBalance}
	}
	return nil
}

func (f *fakeCurrencyRepo) AddBalance(_ context.Context, playerID string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddBalance {
		return 0, errors.New("add balance failed")
	}
	account, ok := f.accounts[playerID]
	if !ok {
		return 0, &repositories.NotFoundError{Entity: "currency account", ID: playerID}
	}
	account.Balance += amount
	return account.Balance, nil
}

func (f *fakeCurrencyRepo) SpendBalance(_ context.Context, playerID string, cost int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[playerID]
	if !ok || account.Balance < cost {
		return 0, false, nil
	}
	account.Balance -= cost
	return account.Balance, true, nil
}

func (f *fakeCurrencyRepo) ClaimLoginBonus(_ context.Context, playerID string, bonus int64, today string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[playerID]
	if !ok || account.LastLoginDate == today {
		return 0, false, nil
	}
	account.Balance += bonus
	account.LastLoginDate = today
	return account.Balance, true, nil
}

func (f *fakeCurrencyRepo) GetOwnedItems(_ context.Context, playerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.owned[playerID]...), nil
}

func (f *fakeCurrencyRepo) AddOwnedItem(_ context.Context, playerID string, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddOwned {
		return errors.New("add owned item failed")
	}
	f.owned[playerID] = append(f.owned[playerID], itemID)
	return nil
}

func (f *fakeCurrencyRepo) balance(playerID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[playerID]; ok {
		return account.Balance
	}
	return -1
}

type fakeShopRepo struct {
	items map[string]*models.ShopItem
}

func newFakeShopRepo(items ...*models.ShopItem) *fakeShopRepo {
	f := &fakeShopRepo{items: make(map[string]*models.ShopItem)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeShopRepo) GetItem(_ context.Context, itemID string) (*models.ShopItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "shop item", ID: itemID}
	}
	return item, nil
}

func (f *fakeShopRepo) GetActiveItems(_ context.Context) ([]*models.ShopItem, error) {
	var items []*models.ShopItem
	for _, item := range f.items {
		if item.IsActive {
			items = append(items, item)
		}
	}
	return items, nil
}

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities []*models.Activity
}

func (f *fakeActivityRepo) Create(_ context.Context, activity *models.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, activity)
	return nil
}

func (f *fakeActivityRepo) GetRecent(_ context.Context, limit int) ([]*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.activities) {
		limit = len(f.activities)
	}
	return f.activities[len(f.activities)-limit:], nil
}

func (f *fakeActivityRepo) GetByPlayer(_ context.Context, playerID string, limit int) ([]*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Activity
	for _, a := range f.activities {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeQuestRepo struct {
	mu       sync.Mutex
	quests   map[string]*models.Quest
	progress map[string]*models.QuestProgress // player|quest
}

func newFakeQuestRepo(quests ...*models.Quest) *fakeQuestRepo {
	f := &fakeQuestRepo{
		quests:   make(map[string]*models.Quest),
		progress: make(map[string]*models.QuestProgress),
	}
	for _, q := range quests {
		f.quests[q.ID] = q
	}
	return f
}

func progressKey(playerID, questID string) string { return playerID + "|" + questID }

func (f *fakeQuestRepo) GetQuest(_ context.Context, questID string) (*models.Quest, error) {
	q, ok := f.quests[questID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "quest", ID: questID}
	}
	return q, nil
}

func (f *fakeQuestRepo) GetActiveQuests(_ context.Context, date string) ([]*models.Quest, error) {
	var out []*models.Quest
	for _, q := range f.quests {
		if q.ActiveOn(date) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestRepo) GetAllQuests(_ context.Context) ([]*models.Quest, error) {
	var out []*models.Quest
	for _, q := range f.quests {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestRepo) CreateQuest(_ context.Context, quest *models.Quest) error {
	f.quests[quest.ID] = quest
	return nil
}

func (f *fakeQuestRepo) UpdateQuest(_ context.Context, quest *models.Quest) error {
	f.quests[quest.ID] = quest
	return nil
}

func (f *fakeQuestRepo) DeleteQuest(_ context.Context, questID string) error {
	delete(f.quests, questID)
	return nil
}

func (f *fakeQuestRepo) GetProgress(_ context.Context, playerID, questID string) (*models.QuestProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[progressKey(playerID, questID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeQuestRepo) GetPlayerProgress(_ context.Context, playerID string) ([]*models.QuestProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.QuestProgress
	for _, p := range f.progress {
		if p.PlayerID == playerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuestRepo) UpsertProgress(_ context.Context, progress *models.QuestProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := progressKey(progress.PlayerID, progress.QuestID)
	existing, ok := f.progress[key]
	if !ok {
		cp := *progress
		f.progress[key] = &cp
		return nil
	}
	// Monotonic folds, same as the SQL conflict clause
	if progress.Progress > existing.Progress {
		existing.Progress = progress.Progress
	}
	existing.IsCompleted = existing.IsCompleted || progress.IsCompleted
	if existing.CompletedAt == nil {
		existing.CompletedAt = progress.CompletedAt
	}
	return nil
}

func (f *fakeQuestRepo) ClaimProgress(_ context.Context, playerID, questID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[progressKey(playerID, questID)]
	if !ok || !p.IsCompleted || p.IsClaimed {
		return false, nil
	}
	p.IsClaimed = true
	now := time.Now()
	p.ClaimedAt = &now
	return true, nil
}

type mergeCall struct {
	playerID  string
	delta     *models.StatsDelta
	yesterday string
}

type fakeStatsRepo struct {
	mu          sync.Mutex
	merges      []mergeCall
	inviteCount map[string]int
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{inviteCount: make(map[string]int)}
}

func (f *fakeStatsRepo) Get(_ context.Context, playerID string) (*models.BadgeStats, error) {
	return &models.BadgeStats{PlayerID: playerID}, nil
}

func (f *fakeStatsRepo) MergeSession(_ context.Context, playerID string, delta *models.StatsDelta, yesterday string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges = append(f.merges, mergeCall{playerID: playerID, delta: delta, yesterday: yesterday})
	return nil
}

func (f *fakeStatsRepo) IncrementInviteCount(_ context.Context, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inviteCount[playerID]++
	return nil
}

type fakeScoreRepo struct {
	mu     sync.Mutex
	events []*models.ScoreEvent
}

func (f *fakeScoreRepo) Create(_ context.Context, event *models.ScoreEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeScoreRepo) GetSince(_ context.Context, since *time.Time, limit int) ([]*models.ScoreEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ScoreEvent
	for _, e := range f.events {
		if since == nil || !e.PlayedAt.Before(*since) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTeamRepo struct {
	teams []*models.PlayerTeam
}

func (f *fakeTeamRepo) GetPlayerTeams(_ context.Context) ([]*models.PlayerTeam, error) {
	return f.teams, nil
}

func (f *fakeTeamRepo) SetPlayerTeam(_ context.Context, playerID, team, district string) error {
	for _, t := range f.teams {
		if t.PlayerID == playerID {
			t.Team = team
			t.District = district
			return nil
		}
	}
	f.teams = append(f.teams, &models.PlayerTeam{PlayerID: playerID, Team: team, District: district})
	return nil
}

type fakeReferralRepo struct {
	mu         sync.Mutex
	referrals  []*models.Referral
	failSettle bool
}

func (f *fakeReferralRepo) Create(_ context.Context, referrer, referred string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.referrals {
		if r.Referred == referred {
			return nil // first referrer wins
		}
	}
	f.referrals = append(f.referrals, &models.Referral{
		Referrer:  referrer,
		Referred:  referred,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeReferralRepo) SettleBonus(_ context.Context, referred string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSettle {
		// The statement never lands, so the flag stays unburned
		return "", errors.New("settle failed")
	}
	for _, r := range f.referrals {
		if r.Referred == referred && !r.BonusAwarded {
			r.BonusAwarded = true
			return r.Referrer, nil
		}
	}
	return "", nil
}

func (f *fakeReferralRepo) CountByReferrerSince(_ context.Context, referrer string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.referrals {
		if r.Referrer == referrer && r.BonusAwarded && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
