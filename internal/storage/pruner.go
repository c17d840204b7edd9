package storage

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultActivityRetention = 30 * 24 * time.Hour
	DefaultPruneInterval     = time.Hour
)

// StartPruner deletes activity older than retention every interval until ctx is done.
func (l *ActivityLog) StartPruner(ctx context.Context, interval, retention time.Duration) {
	if l == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if retention <= 0 {
		retention = DefaultActivityRetention
	}
	go l.pruneLoop(ctx, interval, retention)
}

func (l *ActivityLog) pruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Prune(ctx, l.now().Add(-retention))
			if err != nil {
				slog.Warn("prune activity log failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("pruned activity log", "rows", n)
			}
		}
	}
}
