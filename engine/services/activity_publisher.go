package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

// ActivityPublisher announces economy events to a Discord webhook. Announces
// are fire-and-forget: they run on their own goroutine with their own
// timeout and only ever log failures. A publisher built without a webhook id
// is a no-op, so the engine runs fine with the section unconfigured.
type ActivityPublisher struct {
	client webhook.Client
}

func NewActivityPublisher(webhookID snowflake.ID, token string) *ActivityPublisher {
	if webhookID == 0 || token == "" {
		return &ActivityPublisher{}
	}
	return &ActivityPublisher{client: webhook.New(webhookID, token)}
}

// Publish announces one activity. Returns immediately.
func (p *ActivityPublisher) Publish(activity *models.Activity) {
	if p.client == nil {
		return
	}

	content := formatActivity(activity)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.client.CreateContent(content, rest.WithCtx(ctx)); err != nil {
			slog.Warn("Failed to announce activity",
				slog.String("player_id", activity.PlayerID),
				slog.String("kind", activity.Kind),
				slog.Any("error", err))
		}
	}()
}

// Close releases the webhook client's rest resources.
func (p *ActivityPublisher) Close(ctx context.Context) {
	if p.client != nil {
		p.client.Close(ctx)
	}
}

func formatActivity(activity *models.Activity) string {
	switch activity.Kind {
	case models.ActivityPurchase:
		return fmt.Sprintf("🛍️ **%s** bought %s", activity.PlayerID, activity.Detail)
	case models.ActivityQuestClaim:
		return fmt.Sprintf("✅ **%s** completed the quest \"%s\"", activity.PlayerID, activity.Detail)
	case models.ActivityReferral:
		return fmt.Sprintf("🤝 **%s** brought %s into the game", activity.PlayerID, activity.Detail)
	default:
		return fmt.Sprintf("**%s**: %s", activity.PlayerID, activity.Detail)
	}
}
