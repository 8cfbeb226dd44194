package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/carrersbcn/giuros-engine/engine/utils"
	"github.com/carrersbcn/giuros-engine/internal/domain/standings"
)

// StandingsArchiveService snapshots leaderboards to DO Spaces as JSON so the
// site can serve historical standings without hitting the engine.
type StandingsArchiveService struct {
	client      *s3.Client
	leaderboard *LeaderboardService
	bucket      string
	root        string
}

func NewStandingsArchiveService(leaderboard *LeaderboardService, spacesKey, spacesSecret, region, bucket, root string) (*StandingsArchiveService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	return &StandingsArchiveService{
		client:      s3.NewFromConfig(cfg),
		leaderboard: leaderboard,
		bucket:      bucket,
		root:        strings.TrimPrefix(root, "/"),
	}, nil
}

type archivedStandings struct {
	Period     string          `json:"period"`
	ArchivedAt time.Time       `json:"archived_at"`
	Rows       []standings.Row `json:"rows"`
}

// Archive snapshots the period's standings to
// <root>/standings/<period>/<date>.json.
func (s *StandingsArchiveService) Archive(ctx context.Context, period string, limit int, now time.Time) error {
	rows, err := s.leaderboard.Standings(ctx, period, limit, now)
	if err != nil {
		return fmt.Errorf("failed to build standings for archive: %w", err)
	}

	payload, err := json.Marshal(archivedStandings{
		Period:     period,
		ArchivedAt: now.UTC(),
		Rows:       rows,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	key := fmt.Sprintf("%s/standings/%s/%s.json", s.root, period, utils.DateKey(now))
	contentType := "application/json"

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload standings snapshot: %w", err)
	}

	slog.Info("Standings archived",
		slog.String("type", "sys"),
		slog.String("period", period),
		slog.String("key", key),
		slog.Int("rows", len(rows)))

	return nil
}
