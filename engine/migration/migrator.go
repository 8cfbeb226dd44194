package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
)

// Migrator imports the legacy Mongo data set (users, scores, referrals)
// into the Postgres schema. Imports are idempotent: every insert either
// upserts by primary key or skips on conflict, so a crashed run can be
// restarted from the top.
type Migrator struct {
	pgDB      *bun.DB
	mongoDB   *mongo.Database
	batchSize int

	stats MigrationStats

	// Tuning
	concurrency int
	useCopy     bool
	pool        *pgxpool.Pool

	// Mongo collection names (overrideable)
	collNames map[string]string
}

func NewMigrator(pgDB *bun.DB, client *mongo.Client, dbName string) *Migrator {
	return &Migrator{
		pgDB:        pgDB,
		mongoDB:     client.Database(dbName),
		batchSize:   1000,
		concurrency: 1,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"users":     "users",
			"scores":    "scores",
			"referrals": "referrals",
		},
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for
// poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetConcurrency sets how many score batches insert in parallel
func (m *Migrator) SetConcurrency(n int) {
	if n > 0 {
		m.concurrency = n
	}
}

// SetUseCopy enables COPY FROM mode using pgx for score events (fast path)
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// UsePool sets the pgx pool for COPY operations
func (m *Migrator) UsePool(pool *pgxpool.Pool) { m.pool = pool }

// SetMongoCollectionName overrides the collection name for a given kind
func (m *Migrator) SetMongoCollectionName(kind, name string) {
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) getColl(kind string) *mongo.Collection {
	return m.mongoDB.Collection(m.collNames[kind])
}

func (m *Migrator) tableStats(name string) *TableStats {
	ts, ok := m.stats.Tables[name]
	if !ok {
		ts = &TableStats{}
		m.stats.Tables[name] = ts
	}
	return ts
}

// MigrateAll runs the full legacy import. Order preserves referential
// sanity: accounts first, then the score history, then referrals.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting legacy Mongo migration")
	m.stats.StartTime = time.Now()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", m.MigrateUsers},
		{"score_events", m.MigrateScores},
		{"referrals", m.MigrateReferrals},
	}

	for _, step := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", step.name))
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", step.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateUsers imports legacy profiles into currency_accounts, badge_stats
// and owned_items.
func (m *Migrator) MigrateUsers(ctx context.Context) error {
	cur, err := m.getColl("users").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer cur.Close(ctx)

	ts := m.tableStats("users")

	var accounts []*models.CurrencyAccount
	var stats []*models.BadgeStats
	var owned []*models.OwnedItem
	var teams []*models.PlayerTeam
	seen := make(map[string]bool)

	flush := func() error {
		if len(accounts) == 0 {
			return nil
		}
		if err := m.batchInsertAccounts(ctx, accounts, stats, owned, teams); err != nil {
			return err
		}
		ts.Imported += len(accounts)
		accounts = accounts[:0]
		stats = stats[:0]
		owned = owned[:0]
		teams = teams[:0]
		return nil
	}

	for cur.Next(ctx) {
		var mu MongoUser
		if err := cur.Decode(&mu); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++

		playerID := cleanseUsername(mu.Username)
		if playerID == "" {
			ts.Skipped++
			continue
		}
		if seen[playerID] {
			ts.Skipped++
			logProgress(fmt.Sprintf("Duplicate username found: %s (keeping first record)", playerID))
			continue
		}
		seen[playerID] = true

		account, stat := m.convertUser(mu)
		accounts = append(accounts, account)
		stats = append(stats, stat)
		owned = append(owned, m.convertOwnedItems(mu)...)
		if team := m.convertTeam(mu); team != nil {
			teams = append(teams, team)
		}

		if len(accounts) >= m.batchSize {
			if err := flush(); err != nil {
				return err
			}
			logProgress(fmt.Sprintf("Processed %d users so far", ts.Imported))
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	logProgress(fmt.Sprintf("User migration completed: %d read, %d imported, %d skipped",
		ts.Read, ts.Imported, ts.Skipped))
	return nil
}

// MigrateScores imports the legacy game history into score_events. Score
// batches insert concurrently; rows are append-only so order does not
// matter.
func (m *Migrator) MigrateScores(ctx context.Context) error {
	cur, err := m.getColl("scores").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query scores: %w", err)
	}
	defer cur.Close(ctx)

	ts := m.tableStats("score_events")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	var batch []*models.ScoreEvent
	for cur.Next(ctx) {
		var ms MongoScore
		if err := cur.Decode(&ms); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++

		if cleanseUsername(ms.Username) == "" || ms.Incomplete {
			ts.Skipped++
			continue
		}

		batch = append(batch, m.convertScore(ms))
		if len(batch) >= m.batchSize {
			events := batch
			batch = nil
			g.Go(func() error {
				return m.batchInsertScoreEvents(gctx, events)
			})
			ts.Imported += len(events)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		events := batch
		g.Go(func() error {
			return m.batchInsertScoreEvents(gctx, events)
		})
		ts.Imported += len(events)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logProgress(fmt.Sprintf("Score migration completed: %d read, %d imported, %d skipped",
		ts.Read, ts.Imported, ts.Skipped))
	return nil
}

// MigrateReferrals imports referrer links. Legacy referrals were paid at
// sign-up, so imported rows arrive pre-settled to keep the one-shot
// guarantee from paying them again.
func (m *Migrator) MigrateReferrals(ctx context.Context) error {
	cur, err := m.getColl("users").Find(ctx, bson.M{"referrer": bson.M{"$nin": bson.A{nil, ""}}})
	if err != nil {
		return fmt.Errorf("failed to query referrers: %w", err)
	}
	defer cur.Close(ctx)

	ts := m.tableStats("referrals")

	var batch []*models.Referral
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.batchInsertReferrals(ctx, batch); err != nil {
			return err
		}
		ts.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		var mu MongoUser
		if err := cur.Decode(&mu); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++

		referrer := cleanseUsername(mu.Referrer)
		referred := cleanseUsername(mu.Username)
		if referrer == "" || referred == "" || referrer == referred {
			ts.Skipped++
			continue
		}

		batch = append(batch, &models.Referral{
			Referrer:     referrer,
			Referred:     referred,
			BonusAwarded: true,
			CreatedAt:    millisToTime(mu.JoinedAt, time.Now()),
		})
		if len(batch) >= m.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	logProgress(fmt.Sprintf("Referral migration completed: %d read, %d imported, %d skipped",
		ts.Read, ts.Imported, ts.Skipped))
	return nil
}

func (m *Migrator) batchInsertAccounts(ctx context.Context, accounts []*models.CurrencyAccount, stats []*models.BadgeStats, owned []*models.OwnedItem, teams []*models.PlayerTeam) error {
	startTime := time.Now()

	_, err := m.pgDB.NewInsert().
		Model(&accounts).
		On("CONFLICT (player_id) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert currency accounts batch: %w", err)
	}

	_, err = m.pgDB.NewInsert().
		Model(&stats).
		On("CONFLICT (player_id) DO UPDATE").
		Set("consecutive_days = GREATEST(badge_stats.consecutive_days, EXCLUDED.consecutive_days)").
		Set("last_play_date = GREATEST(badge_stats.last_play_date, EXCLUDED.last_play_date)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert badge stats batch: %w", err)
	}

	if len(owned) > 0 {
		_, err = m.pgDB.NewInsert().
			Model(&owned).
			On("CONFLICT (player_id, item_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert owned items batch: %w", err)
		}
	}

	if len(teams) > 0 {
		_, err = m.pgDB.NewInsert().
			Model(&teams).
			On("CONFLICT (player_id) DO UPDATE").
			Set("team = EXCLUDED.team").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert player teams batch: %w", err)
		}
	}

	slog.Info("Batch insert of users completed",
		"accounts", len(accounts),
		"owned_items", len(owned),
		"duration", time.Since(startTime))
	return nil
}

func (m *Migrator) batchInsertScoreEvents(ctx context.Context, events []*models.ScoreEvent) error {
	if m.useCopy && m.pool != nil {
		if err := m.copyInsertScoreEvents(ctx, events); err == nil {
			return nil
		} else {
			slog.Warn("Score events COPY path failed; falling back to batch insert", "error", err)
		}
	}

	if _, err := m.pgDB.NewInsert().Model(&events).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert score events batch: %w", err)
	}
	return nil
}

// copyInsertScoreEvents uses pgx CopyFrom for the fastest bulk path.
func (m *Migrator) copyInsertScoreEvents(ctx context.Context, events []*models.ScoreEvent) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = []interface{}{
			e.PlayerID, e.Score, e.DurationSeconds, e.PlayedAt,
			e.Platform, e.CorrectAnswers, e.QuestionCount, e.StreakAtPlay, e.IsBonus,
		}
	}

	_, err = conn.Conn().CopyFrom(ctx,
		pgx.Identifier{"score_events"},
		[]string{"player_id", "score", "duration_seconds", "played_at", "platform", "correct_answers", "question_count", "streak_at_play", "is_bonus"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (m *Migrator) batchInsertReferrals(ctx context.Context, referrals []*models.Referral) error {
	_, err := m.pgDB.NewInsert().
		Model(&referrals).
		On("CONFLICT (referred) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert referrals batch: %w", err)
	}
	return nil
}

func (m *Migrator) generateMigrationReport() error {
	report, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("migration_report_%s.json", m.stats.EndTime.Format("20060102_150405"))
	return os.WriteFile(name, report, 0o644)
}

func (m *Migrator) logFinalStats() {
	for name, ts := range m.stats.Tables {
		slog.Info("Migration table summary",
			"table", name,
			"read", ts.Read,
			"imported", ts.Imported,
			"skipped", ts.Skipped)
	}
	slog.Info("Migration finished",
		"duration", m.stats.EndTime.Sub(m.stats.StartTime))
}

func logProgress(msg string) {
	slog.Info(msg, slog.String("type", "job"))
}
