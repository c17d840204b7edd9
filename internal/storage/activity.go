package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ngocnhiem/online-ide/internal/models"
)

const maxDetail = 512

// ActivityLog records relay and share operations.
type ActivityLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewActivityLog wraps a migrated database.
func NewActivityLog(db *sql.DB) *ActivityLog {
	return &ActivityLog{db: db, now: time.Now}
}

// Record inserts one activity row. A nil log discards the entry.
func (l *ActivityLog) Record(ctx context.Context, a models.Activity) (*models.Activity, error) {
	if l == nil {
		return nil, nil
	}
	if a.Operation == "" || a.Outcome == "" {
		return nil, errors.New("operation and outcome are required")
	}
	a.Detail = truncate(a.Detail, maxDetail)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = l.now().UTC()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO activity_log (subject, operation, language, outcome, detail, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Subject, a.Operation, a.Language, a.Outcome, a.Detail, a.DurationMS, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("activity id: %w", err)
	}
	a.ID = id
	return &a, nil
}

// Recent returns the latest entries for subject, newest first.
func (l *ActivityLog) Recent(ctx context.Context, subject string, limit int) ([]models.Activity, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, subject, operation, language, outcome, detail, duration_ms, created_at
		 FROM activity_log WHERE subject = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		subject, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Subject, &a.Operation, &a.Language, &a.Outcome, &a.Detail, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes entries older than the cutoff and reports how many went.
func (l *ActivityLog) Prune(ctx context.Context, before time.Time) (int64, error) {
	if l == nil {
		return 0, nil
	}
	res, err := l.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return res.RowsAffected()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
