package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carrersbcn/giuros-engine/engine"
	"github.com/carrersbcn/giuros-engine/engine/logger"
	"github.com/carrersbcn/giuros-engine/engine/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Giuros economy engine",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	shouldSeedData := flag.Bool("seed-data", false, "Whether to seed shop items and quest definitions on startup")
	archiveNow := flag.Bool("archive-now", false, "Whether to archive current standings on startup")
	flag.Parse()

	cfg, err := engine.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	e, err := engine.New(ctx, cfg)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := e.DB.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	if err := e.DB.MigrateSchema(ctx); err != nil {
		slog.Error("Failed to migrate database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	if *shouldSeedData {
		if err := e.DB.InitializeShopData(ctx); err != nil {
			slog.Error("Failed to seed shop data", slog.Any("error", err))
			os.Exit(-1)
		}
		if err := e.DB.InitializeQuestData(ctx); err != nil {
			slog.Error("Failed to seed quest data", slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Seed data initialized successfully")
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		e.Close(ctx)
	}()

	if e.Archive != nil {
		if *archiveNow {
			archiveStandings(e)
		}

		archiveCtx, archiveCancel := context.WithCancel(context.Background())
		defer archiveCancel()

		go func() {
			ticker := time.NewTicker(6 * time.Hour)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					archiveStandings(e)
				case <-archiveCtx.Done():
					return
				}
			}
		}()

		slog.Info("Standings archiver scheduled",
			slog.String("type", "sys"),
			slog.String("bucket", cfg.Spaces.Bucket))
	}

	slog.Info("Engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down engine...")
}

func archiveStandings(e *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	for _, period := range []string{services.PeriodDaily, services.PeriodWeekly, services.PeriodMonthly} {
		start := time.Now()
		err := e.Archive.Archive(ctx, period, e.Cfg.Leaderboard.FetchLimit, now)
		logger.LogJob("archive_standings_"+period, time.Since(start), err)
	}
}
