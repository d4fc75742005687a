package jobs

import (
	"context"
	"time"

	"promptpulse/internal/catalog"
	"promptpulse/internal/logging"
	"promptpulse/internal/metrics"
	"promptpulse/internal/registry"
)

const cursorKey = "refresh:last_sync"

// DefaultInterval is used when the configured refresh interval is missing
// or non-positive.
const DefaultInterval = 30 * time.Minute

// RunRefreshOnce pulls the remote registry index into the catalog and
// records a sync cursor.
func RunRefreshOnce(ctx context.Context, db *catalog.DB, client registry.Client) error {
	start := time.Now()
	metrics.RefreshRuns.Inc()
	prompts, err := client.FetchIndex(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return err
	}
	var upserted int
	for _, p := range prompts {
		if err := db.UpsertPrompt(ctx, p); err != nil {
			metrics.RefreshErrors.Inc()
			return err
		}
		upserted++
	}
	now := time.Now().UTC()
	if err := db.SaveCursor(ctx, cursorKey, now.Format(time.RFC3339Nano)); err != nil {
		logging.Warn("refresh_cursor_save_failed", map[string]any{"error": err.Error()})
	}
	logging.Info("refresh_once", map[string]any{"prompts": upserted})
	metrics.ObserveRefreshDuration(start)
	return nil
}

// RunRefreshLoop runs RunRefreshOnce on a ticker until ctx is cancelled.
// A non-positive interval falls back to DefaultInterval so a sparse config
// cannot feed time.NewTicker a zero duration.
func RunRefreshLoop(ctx context.Context, db *catalog.DB, client registry.Client, interval time.Duration) error {
	if interval <= 0 {
		logging.Warn("refresh_interval_default", map[string]any{"interval": interval.String()})
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if err := RunRefreshOnce(ctx, db, client); err != nil {
		logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("refresh_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if err := RunRefreshOnce(ctx, db, client); err != nil {
				logging.Error("refresh_once_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
