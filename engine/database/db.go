package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"log/slog"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/internal/domain/logger"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
	schemaVersion        = 1 // bump when schema/migrations change
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Add retry logic for initial connection
	var conn net.Conn
	var err error

	tryDial := func() (net.Conn, error) {
		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
		force4 := os.Getenv("DB_DIAL_FORCE_IPV4") == "1"
		force6 := os.Getenv("DB_DIAL_FORCE_IPV6") == "1"

		if force4 {
			return net.DialTimeout("tcp4", addr, defaultConnTimeout)
		}
		if force6 {
			return net.DialTimeout("tcp6", addr, defaultConnTimeout)
		}

		// Prefer IPv4, then fall back to IPv6
		if c, e := net.DialTimeout("tcp4", addr, defaultConnTimeout); e == nil {
			return c, nil
		}
		return net.DialTimeout("tcp6", addr, defaultConnTimeout)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = tryDial()
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Configure pool settings
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	return createDB(ctx, poolConfig)
}

// Helper function to build connection string
func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

// Helper function to create DB instance
func createDB(ctx context.Context, poolConfig *pgxpool.Config) (*DB, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	bunDB := newBunDB(pool)
	return &DB{pool: pool, bunDB: bunDB}, nil
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	// Default to disabling SSL for Bun unless explicitly overridden by env
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ResetAppTables truncates application tables for a fresh start (PostgreSQL only)
func (db *DB) ResetAppTables(ctx context.Context) error {
	if db.bunDB == nil {
		return fmt.Errorf("bun DB not initialized")
	}

	// Candidate tables managed by this application
	candidates := []string{
		"owned_items",
		"shop_items",
		"activities",
		"quest_progress",
		"quests",
		"referrals",
		"badge_stats",
		"player_teams",
		"score_events",
		"currency_accounts",
	}

	// Verify present tables to avoid failures on missing ones
	rows, err := db.pool.Query(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			present[name] = true
		}
	}

	var toTruncate []string
	for _, t := range candidates {
		if present[t] {
			toTruncate = append(toTruncate, t)
		}
	}

	if len(toTruncate) == 0 {
		slog.Warn("No app tables found to reset")
		return nil
	}

	stmt := "TRUNCATE TABLE " + joinIdentifiers(toTruncate) + " RESTART IDENTITY CASCADE;"
	if _, err := db.ExecWithLog(ctx, stmt); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	slog.Info("App tables truncated successfully", "tables", toTruncate)
	return nil
}

// joinIdentifiers joins identifiers with proper quoting
func joinIdentifiers(names []string) string {
	if len(names) == 0 {
		return ""
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("\"%s\"", n)
	}
	return out
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ql := logger.NewQueryLogger("exec", sql, args...)
	result, err := db.pool.Exec(ctx, sql, args...)
	ql.Log(err, result.RowsAffected())
	return result, err
}

func (db *DB) QueryWithLog(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ql := logger.NewQueryLogger("query", sql, args...)
	rows, err := db.pool.Query(ctx, sql, args...)
	ql.Log(err, 0)
	return rows, err
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates all required database tables and indexes
func (db *DB) InitializeSchema(ctx context.Context) error {
	// Fast init path for development: skip when schema version matches
	fastInit := os.Getenv("DB_FAST_INIT") == "1"
	if fastInit {
		if err := db.ensureAppMeta(ctx); err == nil {
			if v, _ := db.getAppMeta(ctx, "schema_version"); v == fmt.Sprintf("%d", schemaVersion) {
				slog.Info("Fast DB init: schema up-to-date, skipping initialization",
					slog.String("mode", "DB_FAST_INIT"),
					slog.Int("schema_version", schemaVersion))
				return nil
			}
		}
	}

	if err := db.ensureUTF8Encoding(ctx); err != nil {
		return fmt.Errorf("failed to ensure UTF-8 encoding: %w", err)
	}

	tables := []interface{}{
		(*models.CurrencyAccount)(nil),
		(*models.ScoreEvent)(nil),
		(*models.Quest)(nil),
		(*models.QuestProgress)(nil),
		(*models.BadgeStats)(nil),
		(*models.Referral)(nil),
		(*models.Activity)(nil),
		(*models.ShopItem)(nil),
		(*models.OwnedItem)(nil),
		(*models.PlayerTeam)(nil),
	}

	for _, model := range tables {
		query := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists()

		_, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Apply schema migrations for existing tables FIRST
	if err := db.MigrateSchema(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Create indexes AFTER schema migrations
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_score_events_played_at ON score_events(played_at);",
		"CREATE INDEX IF NOT EXISTS idx_score_events_player_id ON score_events(player_id);",
		"CREATE INDEX IF NOT EXISTS idx_score_events_score ON score_events(score DESC);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_quest_progress_player_quest ON quest_progress(player_id, quest_id);",
		"CREATE INDEX IF NOT EXISTS idx_quest_progress_claimable ON quest_progress(player_id) WHERE is_completed = true AND is_claimed = false;",
		"CREATE INDEX IF NOT EXISTS idx_quests_active ON quests(active_date) WHERE is_active = true;",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_referrals_referred ON referrals(referred);",
		"CREATE INDEX IF NOT EXISTS idx_referrals_referred_pending ON referrals(referred, created_at DESC) WHERE bonus_awarded = false;",
		"CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer);",
		"CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_activities_player_id ON activities(player_id, created_at DESC);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_owned_items_player_item ON owned_items(player_id, item_id);",
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.InitializeShopData(ctx); err != nil {
		return fmt.Errorf("failed to initialize shop data: %w", err)
	}

	if err := db.InitializeQuestData(ctx); err != nil {
		return fmt.Errorf("failed to initialize quest data: %w", err)
	}

	// Update schema version marker (safe upsert)
	if err := db.ensureAppMeta(ctx); err == nil {
		_ = db.setAppMeta(ctx, "schema_version", fmt.Sprintf("%d", schemaVersion))
	}

	return nil
}

// ensureAppMeta creates the app_meta table if not exists
func (db *DB) ensureAppMeta(ctx context.Context) error {
	_, err := db.ExecWithLog(ctx, `CREATE TABLE IF NOT EXISTS app_meta (key TEXT PRIMARY KEY, value TEXT)`)
	return err
}

func (db *DB) getAppMeta(ctx context.Context, key string) (string, error) {
	row := db.pool.QueryRow(ctx, `SELECT value FROM app_meta WHERE key = $1`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (db *DB) setAppMeta(ctx context.Context, key, value string) error {
	sql := `INSERT INTO app_meta(key, value) VALUES($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := db.pool.Exec(ctx, sql, key, value)
	return err
}

// MigrateSchema applies necessary schema changes to existing tables
func (db *DB) MigrateSchema(ctx context.Context) error {
	// The balance check backs the spend path: a concurrent decrement that
	// would go negative must fail at the database, not just at the query guard.
	balanceCheckSQL := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint
				WHERE conname = 'currency_accounts_balance_non_negative'
			) THEN
				ALTER TABLE currency_accounts
				ADD CONSTRAINT currency_accounts_balance_non_negative
				CHECK (balance >= 0);
			END IF;
		END $$;
	`

	if _, err := db.ExecWithLog(ctx, balanceCheckSQL); err != nil {
		slog.Warn("Failed to add balance check constraint (may already exist)",
			slog.Any("error", err))
	}

	// Columns added after the first release
	alterSQL := []string{
		`ALTER TABLE currency_accounts ADD COLUMN IF NOT EXISTS last_login_date TEXT;`,
		`ALTER TABLE badge_stats ADD COLUMN IF NOT EXISTS invite_count INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE quests ADD COLUMN IF NOT EXISTS active_date TEXT;`,
	}

	for _, sql := range alterSQL {
		if _, err := db.ExecWithLog(ctx, sql); err != nil {
			return fmt.Errorf("failed to apply schema migration: %w", err)
		}
	}

	return nil
}

// Ping verifies both database connections are working
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgxpool ping failed: %w", err)
	}

	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}

	return nil
}

// ensureUTF8Encoding checks and ensures the database is using UTF-8 encoding
func (db *DB) ensureUTF8Encoding(ctx context.Context) error {
	var encoding string
	err := db.pool.QueryRow(ctx, "SHOW server_encoding;").Scan(&encoding)
	if err != nil {
		return fmt.Errorf("failed to check database encoding: %w", err)
	}

	slog.Info("Database encoding", "encoding", encoding)

	// If not UTF-8, log a warning but continue (changing encoding requires superuser)
	if encoding != "UTF8" {
		slog.Warn("Database is not using UTF-8 encoding, this may cause character encoding issues",
			"current_encoding", encoding,
			"recommended", "UTF8")
	}

	_, err = db.pool.Exec(ctx, "SET client_encoding TO 'UTF8';")
	if err != nil {
		return fmt.Errorf("failed to set client encoding to UTF-8: %w", err)
	}

	return nil
}

// InitializeShopData inserts the default shop items
func (db *DB) InitializeShopData(ctx context.Context) error {
	var itemCount int
	err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shop_items WHERE id IN ('handle_change', 'badge_veteran', 'badge_cartographer')").Scan(&itemCount)
	if err == nil && itemCount >= 3 {
		slog.Info("Shop data already initialized, skipping")
		return nil
	}

	items := []struct {
		ID   string
		Name string
		Kind string
		Cost int64
	}{
		{"handle_change", "Handle Change", "handle_change", 5},
		{"badge_veteran", "Veteran Badge", "badge", 25},
		{"badge_cartographer", "Cartographer Badge", "badge", 50},
		{"frame_gold", "Gold Frame", "frame", 40},
		{"title_nightowl", "Night Owl Title", "title", 30},
	}

	insertSQL := `
		INSERT INTO shop_items (id, name, kind, cost, is_active, created_at)
		VALUES ($1, $2, $3, $4, true, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			cost = EXCLUDED.cost;
	`

	for _, item := range items {
		if _, err := db.ExecWithLog(ctx, insertSQL,
			item.ID, item.Name, item.Kind, item.Cost); err != nil {
			return fmt.Errorf("failed to insert shop item %s: %w", item.ID, err)
		}
	}

	slog.Info("Initial shop data initialized successfully")
	return nil
}

// InitializeQuestData inserts or updates the default quest definitions
func (db *DB) InitializeQuestData(ctx context.Context) error {
	type questDef struct {
		ID            string
		Title         string
		Description   string
		CriteriaType  string
		CriteriaValue string
		Reward        int64
	}

	quests := []questDef{
		{"score_500", "Point Chaser", "Rack up 500 points", "score_attack", "500", 3},
		{"score_1000", "High Roller", "Rack up 1000 points", "score_attack", "1000", 5},
		{"explore_gracia", "Local Pride", "Guess a street in Gràcia", "district_explorer", "Gràcia", 4},
		{"weekly_streak_5", "Regular", "Log in 5 days in a row", "login_streak", "5", 10},
		{"find_rambla", "Tourist Trap", "Find La Rambla", "find_street", "La Rambla", 2},
		{"find_bisbe", "Old Town Secrets", "Find Carrer del Bisbe", "find_street", "Carrer del Bisbe", 2},
	}

	insertSQL := `
		INSERT INTO quests (
			id, title, description, criteria_type, criteria_value, reward_giuros,
			is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			true, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		) ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			criteria_type = EXCLUDED.criteria_type,
			criteria_value = EXCLUDED.criteria_value,
			reward_giuros = EXCLUDED.reward_giuros,
			updated_at = CURRENT_TIMESTAMP;
	`

	for _, q := range quests {
		if _, err := db.ExecWithLog(ctx, insertSQL,
			q.ID, q.Title, q.Description, q.CriteriaType, q.CriteriaValue, q.Reward,
		); err != nil {
			return fmt.Errorf("failed to upsert quest %s: %w", q.ID, err)
		}
	}

	slog.Info("Quest definitions initialized/updated successfully", slog.Int("count", len(quests)))
	return nil
}
