package logger

import (
	"log/slog"
	"time"
)

// QueryLogger times one pool-level statement and emits it with the engine's
// standard db attrs (type=db, operation, took) when it completes.
type QueryLogger struct {
	operation string
	query     string
	args      []any
	start     time.Time
}

func NewQueryLogger(operation, query string, args ...any) *QueryLogger {
	return &QueryLogger{
		operation: operation,
		query:     query,
		args:      args,
		start:     time.Now(),
	}
}

func (l *QueryLogger) Log(err error, rowsAffected int64) {
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", l.operation),
		slog.String("query", l.query),
		slog.Any("args", l.args),
		slog.Duration("took", time.Since(l.start)),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Info("Query executed", append(attrs, slog.Int64("affected_rows", rowsAffected))...)
}
