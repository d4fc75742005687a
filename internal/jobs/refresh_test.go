package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptpulse/internal/catalog"
	"promptpulse/internal/model"
)

type fakeRegistry struct {
	prompts []model.Prompt
	err     error
}

func (f fakeRegistry) FetchIndex(ctx context.Context) ([]model.Prompt, error) {
	return f.prompts, f.err
}

func TestRunRefreshOnce(t *testing.T) {
	db, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := fakeRegistry{prompts: []model.Prompt{
		{ID: "p1", Title: "One", Category: "coding", CreatedAt: now, UpdatedAt: now},
		{ID: "p2", Title: "Two", Category: "writing", CreatedAt: now, UpdatedAt: now},
	}}

	if err := RunRefreshOnce(ctx, db, client); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountPrompts(ctx)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, err %v", n, err)
	}
	cursor, err := db.LoadCursor(ctx, cursorKey)
	if err != nil || cursor == "" {
		t.Fatalf("cursor not saved: %q, %v", cursor, err)
	}
	if _, err := time.Parse(time.RFC3339Nano, cursor); err != nil {
		t.Fatalf("cursor not a timestamp: %q", cursor)
	}
}

func TestRunRefreshOncePropagatesError(t *testing.T) {
	db, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	client := fakeRegistry{err: errors.New("registry down")}
	if err := RunRefreshOnce(context.Background(), db, client); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestRunRefreshLoopStopsOnCancel(t *testing.T) {
	db, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunRefreshLoop(ctx, db, fakeRegistry{}, time.Hour) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("loop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestRunRefreshLoopZeroInterval(t *testing.T) {
	db, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	// A sparse config yields RefreshMinutes == 0; the loop must fall back
	// to the default interval instead of panicking in time.NewTicker.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.New("loop panicked")
				return
			}
		}()
		done <- RunRefreshLoop(ctx, db, fakeRegistry{}, 0)
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("loop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
