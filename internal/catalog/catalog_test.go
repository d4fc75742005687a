package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptpulse/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := model.Prompt{
		ID: "p1", Title: "Title", Description: "Desc", Category: "coding",
		Tags:   []string{"go", "api"},
		Author: model.Author{ID: "u1", Handle: "ana"},
		CreatedAt: testNow, UpdatedAt: testNow,
		Stats: model.Stats{Views: 10, Copies: 5, Saves: 2, Rating: 4.0, RatingCount: 4},
	}
	if err := db.UpsertPrompt(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetPrompt(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetPrompt(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing prompt error = %v, want ErrNotFound", err)
	}
	if got.Title != "Title" || got.Category != "coding" || len(got.Tags) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Stats.Rating != 4.0 || got.Stats.RatingCount != 4 {
		t.Fatalf("rating mismatch: %+v", got.Stats)
	}
	if !got.UpdatedAt.Equal(testNow) {
		t.Fatalf("updated_at mismatch: %v", got.UpdatedAt)
	}

	// Upsert replaces fields in place.
	p.Title = "Renamed"
	if err := db.UpsertPrompt(ctx, p); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountPrompts(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
	got, _ = db.GetPrompt(ctx, "p1")
	if got.Title != "Renamed" {
		t.Fatalf("upsert did not replace title: %q", got.Title)
	}
}

func TestRecordEventBumpsCounters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := model.Prompt{ID: "p1", Title: "T", Category: "coding", CreatedAt: testNow, UpdatedAt: testNow}
	if err := db.UpsertPrompt(ctx, p); err != nil {
		t.Fatal(err)
	}
	for _, typ := range []string{"view", "view", "copy", "save"} {
		if err := db.RecordEvent(ctx, testNow, typ, "p1"); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := db.GetPrompt(ctx, "p1")
	if got.Stats.Views != 2 || got.Stats.Copies != 1 || got.Stats.Saves != 1 {
		t.Fatalf("counters: %+v", got.Stats)
	}
	// Engagement must not refresh the content timestamp.
	if !got.UpdatedAt.Equal(testNow) {
		t.Fatalf("updated_at moved on engagement: %v", got.UpdatedAt)
	}
	events, err := db.LoadEvents(ctx, testNow.Add(-time.Hour), testNow.Add(time.Hour), "view")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d view events", len(events))
	}
	if err := db.RecordEvent(ctx, testNow, "view", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown prompt error = %v, want ErrNotFound", err)
	}
	if err := db.RecordEvent(ctx, testNow, "bogus", "p1"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestAddRatingRunningAverage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := model.Prompt{ID: "p1", Title: "T", Category: "coding", CreatedAt: testNow, UpdatedAt: testNow}
	if err := db.UpsertPrompt(ctx, p); err != nil {
		t.Fatal(err)
	}
	for _, r := range []float64{5, 4, 3} {
		if err := db.AddRating(ctx, "p1", r); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := db.GetPrompt(ctx, "p1")
	if got.Stats.RatingCount != 3 || got.Stats.Rating != 4.0 {
		t.Fatalf("rating after three votes: %+v", got.Stats)
	}
	if err := db.AddRating(ctx, "p1", 6); err == nil {
		t.Fatal("expected range error")
	}
	if err := db.AddRating(ctx, "missing", 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown prompt error = %v, want ErrNotFound", err)
	}
}

func TestSearchAndListings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.SeedIfEmpty(ctx, testNow); err != nil {
		t.Fatal(err)
	}
	got, err := db.Search(ctx, "sql", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("expected a hit for 'sql'")
	}
	found := false
	for _, p := range got {
		if p.ID == "sql-explain" {
			found = true
		}
	}
	if !found {
		t.Fatal("sql-explain not found by search")
	}

	cats, err := db.Categories(ctx)
	if err != nil || len(cats) == 0 {
		t.Fatalf("categories: %v, err %v", cats, err)
	}
	if cats[0].Name != "coding" {
		t.Fatalf("largest category = %s, want coding", cats[0].Name)
	}
	tags, err := db.Tags(ctx)
	if err != nil || len(tags) == 0 {
		t.Fatalf("tags: %v, err %v", tags, err)
	}
	if tags[0].Name != "workflow" {
		t.Fatalf("most common tag = %s, want workflow", tags[0].Name)
	}

	// Seeding again is a no-op.
	n, err := db.SeedIfEmpty(ctx, testNow)
	if err != nil || n != 0 {
		t.Fatalf("second seed inserted %d, err %v", n, err)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if v, err := db.LoadCursor(ctx, "refresh:last_sync"); err != nil || v != "" {
		t.Fatalf("missing cursor: %q, %v", v, err)
	}
	if err := db.SaveCursor(ctx, "refresh:last_sync", "2025-06-01T12:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCursor(ctx, "refresh:last_sync", "2025-06-02T12:00:00Z"); err != nil {
		t.Fatal(err)
	}
	v, err := db.LoadCursor(ctx, "refresh:last_sync")
	if err != nil || v != "2025-06-02T12:00:00Z" {
		t.Fatalf("cursor = %q, err %v", v, err)
	}
}
