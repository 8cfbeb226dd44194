package migration

import (
	"strconv"
	"strings"
	"time"

	"github.com/carrersbcn/giuros-engine/engine/config"
	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

func (m *Migrator) convertUser(mu MongoUser) (*models.CurrencyAccount, *models.BadgeStats) {
	now := time.Now()

	balance := int64(config.StartingBalance)
	if mu.Giuros != nil && *mu.Giuros >= 0 {
		balance = *mu.Giuros
	}

	account := &models.CurrencyAccount{
		PlayerID:  cleanseUsername(mu.Username),
		Balance:   balance,
		CreatedAt: millisToTime(mu.JoinedAt, now),
		UpdatedAt: now,
	}

	stats := &models.BadgeStats{
		PlayerID:        account.PlayerID,
		ConsecutiveDays: mu.Streak,
		LastPlayDate:    mu.LastPlayDate,
		CreatedAt:       account.CreatedAt,
		UpdatedAt:       now,
	}

	return account, stats
}

func (m *Migrator) convertScore(ms MongoScore) *models.ScoreEvent {
	questions := 10
	if ms.QuestionCount != nil && *ms.QuestionCount > 0 {
		questions = *ms.QuestionCount
	}
	correct := 0
	if ms.CorrectAnswers != nil {
		correct = *ms.CorrectAnswers
	}

	return &models.ScoreEvent{
		PlayerID:        cleanseUsername(ms.Username),
		Score:           ms.Score,
		DurationSeconds: parseAvgTime(ms.AvgTime) * float64(questions),
		PlayedAt:        millisToTime(ms.Timestamp, time.Now()),
		Platform:        "legacy",
		CorrectAnswers:  correct,
		QuestionCount:   questions,
		IsBonus:         ms.IsBonus,
	}
}

func (m *Migrator) convertOwnedItems(mu MongoUser) []*models.OwnedItem {
	now := time.Now()
	items := make([]*models.OwnedItem, 0, len(mu.PurchasedCosmetics))
	for _, itemID := range mu.PurchasedCosmetics {
		itemID = strings.TrimSpace(itemID)
		if itemID == "" {
			continue
		}
		items = append(items, &models.OwnedItem{
			PlayerID:    cleanseUsername(mu.Username),
			ItemID:      itemID,
			PurchasedAt: now,
		})
	}
	return items
}

func (m *Migrator) convertTeam(mu MongoUser) *models.PlayerTeam {
	if strings.TrimSpace(mu.Team) == "" {
		return nil
	}
	return &models.PlayerTeam{
		PlayerID:  cleanseUsername(mu.Username),
		Team:      strings.TrimSpace(mu.Team),
		UpdatedAt: time.Now(),
	}
}

// parseAvgTime handles the legacy avgTime field, which was stored as a
// formatted string ("4.2s", "4.2") in old documents and a plain number in
// newer ones.
func parseAvgTime(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "s")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

func millisToTime(millis int64, fallback time.Time) time.Time {
	if millis <= 0 {
		return fallback
	}
	return time.UnixMilli(millis).UTC()
}

func cleanseUsername(s string) string {
	return strings.TrimSpace(s)
}
