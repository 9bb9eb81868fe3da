package history

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	"log/slog"
)

// Cycle is one finished try-on attempt. Only metadata is recorded; the
// images themselves are deleted when the cycle ends.
type Cycle struct {
	CycleID    string        `db:"cycle_id"`
	UserID     int64         `db:"user_id"`
	ChatID     int64         `db:"chat_id"`
	Outcome    string        `db:"outcome"`
	FailReason string        `db:"fail_reason"`
	Duration   time.Duration `db:"-"`
	DurationMS int64         `db:"duration_ms"`
	StartedAt  time.Time     `db:"started_at"`
	FinishedAt time.Time     `db:"finished_at"`
}

// Outcome values stored in the history table.
const (
	OutcomeOK        = "ok"
	OutcomeFail      = "fail"
	OutcomeCancelled = "cancelled"
)

// Recorder persists finished cycles. Recording is best-effort: a failure
// to write history must never fail the user-facing flow.
type Recorder interface {
	Record(ctx context.Context, c Cycle) error
}

// NopRecorder is used when no history database is configured.
type NopRecorder struct{}

// Record discards the cycle.
func (NopRecorder) Record(context.Context, Cycle) error { return nil }

type dbRecorder struct {
	db *sqlx.DB
}

// NewRecorder builds a Recorder writing to the tryon_cycles table.
func NewRecorder(db *sqlx.DB) Recorder {
	return &dbRecorder{db: db}
}

const insertCycle = `
INSERT INTO tryon_cycles (cycle_id, user_id, chat_id, outcome, fail_reason, duration_ms, started_at, finished_at)
VALUES (:cycle_id, :user_id, :chat_id, :outcome, :fail_reason, :duration_ms, :started_at, :finished_at)`

func (r *dbRecorder) Record(ctx context.Context, c Cycle) error {
	if c.FinishedAt.IsZero() {
		c.FinishedAt = time.Now().UTC()
	}
	if c.DurationMS == 0 && c.Duration > 0 {
		c.DurationMS = c.Duration.Milliseconds()
	}

	_, err := r.db.NamedExecContext(ctx, insertCycle, c)
	if err != nil {
		logger.Error(ctx, "service.history", "history.record.fail",
			slog.String("status", "fail"),
			slog.String("cycle_id", c.CycleID),
			slog.String("err", err.Error()),
		)
		return err
	}

	logger.Debug(ctx, "service.history", "history.record",
		slog.String("status", "ok"),
		slog.String("cycle_id", c.CycleID),
		slog.String("outcome", c.Outcome),
	)
	return nil
}

// RecentByUser returns up to limit most recent cycles for a user, newest
// first. Used by the admin stats command.
func RecentByUser(ctx context.Context, db *sqlx.DB, userID int64, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Cycle
	err := db.SelectContext(ctx, &out,
		`SELECT cycle_id, user_id, chat_id, outcome, fail_reason, duration_ms, started_at, finished_at
		 FROM tryon_cycles WHERE user_id = $1 ORDER BY finished_at DESC LIMIT $2`,
		userID, limit,
	)
	return out, err
}

// CountByOutcome returns total cycles grouped by outcome.
func CountByOutcome(ctx context.Context, db *sqlx.DB) (map[string]int64, error) {
	rows, err := db.QueryxContext(ctx,
		`SELECT outcome, COUNT(*) FROM tryon_cycles GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}
