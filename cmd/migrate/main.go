package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carrersbcn/giuros-engine/engine"
	"github.com/carrersbcn/giuros-engine/engine/database"
	"github.com/carrersbcn/giuros-engine/engine/logger"
	"github.com/carrersbcn/giuros-engine/engine/migration"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	path := flag.String("config", "config.toml", "path to config")
	mongoURI := flag.String("mongo-uri", "", "legacy MongoDB connection URI (overrides config)")
	mongoDB := flag.String("mongo-db", "", "legacy MongoDB database name (overrides config)")
	batchSize := flag.Int("batch-size", 0, "insert batch size (overrides config)")
	concurrency := flag.Int("concurrency", 0, "parallel score batch inserts (overrides config)")
	useCopy := flag.Bool("use-copy", false, "use pgx COPY for score events")
	resetTables := flag.Bool("reset-tables", false, "DANGER: truncate all app tables before import")
	flag.Parse()

	cfg, err := engine.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	uri := cfg.Migration.MongoURI
	if *mongoURI != "" {
		uri = *mongoURI
	}
	dbName := cfg.Migration.MongoDatabase
	if *mongoDB != "" {
		dbName = *mongoDB
	}
	if uri == "" || dbName == "" {
		slog.Error("Legacy Mongo URI and database name are required (config [migration] or flags)")
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}

	if *resetTables {
		slog.Warn("Truncating all app tables before import")
		if err := db.ResetAppTables(ctx); err != nil {
			slog.Error("Failed to reset tables", slog.Any("error", err))
			os.Exit(-1)
		}
	}

	mongoCtx, mongoCancel := context.WithTimeout(ctx, 30*time.Second)
	defer mongoCancel()
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(uri))
	if err != nil {
		slog.Error("Failed to connect to legacy Mongo", slog.Any("error", err))
		os.Exit(-1)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	if err := client.Ping(mongoCtx, nil); err != nil {
		slog.Error("Legacy Mongo ping failed", slog.Any("error", err))
		os.Exit(-1)
	}

	m := migration.NewMigrator(db.BunDB(), client, dbName)
	if *batchSize > 0 {
		m.SetBatchSize(*batchSize)
	} else {
		m.SetBatchSize(cfg.Migration.BatchSize)
	}
	if *concurrency > 0 {
		m.SetConcurrency(*concurrency)
	} else {
		m.SetConcurrency(cfg.Migration.Concurrency)
	}
	if *useCopy {
		m.SetUseCopy(true)
		m.UsePool(db.GetPool())
	}

	start := time.Now()
	err = m.MigrateAll(ctx)
	logger.LogJob("legacy_migration", time.Since(start), err)
	if err != nil {
		os.Exit(-1)
	}
}
