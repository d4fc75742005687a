package trending

import (
	"math"
	"testing"
	"time"

	"promptpulse/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func prompt(id string, views, copies, saves int, rating float64, ratingCount int, updated time.Time) model.Prompt {
	return model.Prompt{
		ID:        id,
		Category:  "coding",
		UpdatedAt: updated,
		Stats: model.Stats{
			Views: views, Copies: copies, Saves: saves,
			Rating: rating, RatingCount: ratingCount,
		},
	}
}

func TestSubScoreBounds(t *testing.T) {
	items := []model.Prompt{
		prompt("a", 1000, 500, 100, 5, 200, testNow),
		prompt("b", 0, 0, 0, 0, 0, testNow.Add(-52*7*24*time.Hour)),
		prompt("c", 1000, 500, 100, 5, 200, testNow.Add(24*time.Hour)), // future-dated
	}
	ctx := NewContext(items, testNow)
	for _, p := range items {
		b := ComputeScore(p, ctx)
		for name, v := range map[string]float64{
			"views": b.Views, "copies": b.Copies, "saves": b.Saves,
			"rating": b.Rating, "freshness": b.Freshness,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s: %s sub-score %v out of [0,1]", p.ID, name, v)
			}
		}
	}
}

func TestFreshnessHalfLife(t *testing.T) {
	fourWeeksAgo := testNow.Add(-4 * 7 * 24 * time.Hour)
	got := freshnessScore(fourWeeksAgo, testNow)
	want := MinFreshness + (MaxFreshness-MinFreshness)*0.5 // 0.55
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("freshness after one half-life = %v, want %v", got, want)
	}
}

func TestFreshnessMonotonicWithFloor(t *testing.T) {
	updated := testNow.Add(-24 * time.Hour)
	prev := freshnessScore(updated, testNow)
	for weeks := 1; weeks <= 520; weeks *= 2 {
		now := testNow.Add(time.Duration(weeks) * 7 * 24 * time.Hour)
		cur := freshnessScore(updated, now)
		if cur >= prev {
			t.Fatalf("freshness did not decrease at %d weeks: %v >= %v", weeks, cur, prev)
		}
		if cur < MinFreshness {
			t.Fatalf("freshness %v fell below floor %v", cur, MinFreshness)
		}
		prev = cur
	}
	// The zero time is effectively infinitely old and sits on the floor.
	if got := freshnessScore(time.Time{}, testNow); math.Abs(got-MinFreshness) > 1e-9 {
		t.Fatalf("zero-time freshness = %v, want floor %v", got, MinFreshness)
	}
}

func TestRatingConfidenceBlend(t *testing.T) {
	// No ratings: regress fully to the neutral prior.
	if got := ratingScore(5, 0, 100); math.Abs(got-NeutralRating) > 1e-9 {
		t.Fatalf("zero-count rating score = %v, want %v", got, NeutralRating)
	}
	// Full confidence: a perfect rating scores exactly 1.
	if got := ratingScore(5, 100, 100); math.Abs(got-1) > 1e-9 {
		t.Fatalf("full-confidence rating score = %v, want 1", got)
	}
	// Low confidence stays near the prior, not near 1.
	if got := ratingScore(5, 1, 100); got > 0.7 {
		t.Fatalf("low-confidence rating score %v too close to 1", got)
	}
}

func TestTrendingDeterminism(t *testing.T) {
	items := []model.Prompt{
		prompt("a", 100, 50, 10, 4.5, 20, testNow),
		prompt("b", 10, 5, 1, 5, 1, testNow.Add(-8*7*24*time.Hour)),
		prompt("c", 50, 30, 5, 4, 10, testNow.Add(-7*24*time.Hour)),
	}
	first := TrendingPrompts(items, Options{Now: testNow})
	for i := 0; i < 10; i++ {
		again := TrendingPrompts(items, Options{Now: testNow})
		if len(again) != len(first) {
			t.Fatalf("run %d: length %d != %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d: order differs at %d: %s != %s", i, j, again[j].ID, first[j].ID)
			}
		}
	}
}

func TestExcludeAndCategoryFilters(t *testing.T) {
	items := []model.Prompt{
		prompt("a", 100, 50, 10, 4.5, 20, testNow),
		prompt("b", 90, 40, 9, 4, 15, testNow),
		prompt("c", 80, 30, 8, 4, 12, testNow),
	}
	items[2].Category = "writing"

	got := TrendingPrompts(items, Options{ExcludeIDs: []string{"a"}, Now: testNow})
	for _, p := range got {
		if p.ID == "a" {
			t.Fatal("excluded id appeared in output")
		}
	}

	got = TrendingPrompts(items, Options{Category: "writing", Now: testNow})
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("category filter: got %d items", len(got))
	}

	// Category comparison is case-insensitive.
	got = TrendingPrompts(items, Options{Category: "Writing", Now: testNow})
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("case-insensitive category filter: got %d items", len(got))
	}
}

func TestLimitContract(t *testing.T) {
	items := []model.Prompt{
		prompt("a", 100, 50, 10, 4.5, 20, testNow),
		prompt("b", 90, 40, 9, 4, 15, testNow),
		prompt("c", 80, 30, 8, 4, 12, testNow),
	}
	if got := TrendingPrompts(items, Options{Limit: 2, Now: testNow}); len(got) != 2 {
		t.Fatalf("limit 2: got %d", len(got))
	}
	if got := TrendingPrompts(items, Options{Limit: 10, Now: testNow}); len(got) != 3 {
		t.Fatalf("limit beyond pool: got %d, want 3", len(got))
	}
}

func TestMaximaFromUnfilteredPool(t *testing.T) {
	// The whale outside the filtered category still sets the view maximum:
	// the small item must not normalize to a perfect view score.
	small := prompt("small", 10, 5, 1, 4, 5, testNow)
	small.Category = "writing"
	whale := prompt("whale", 1000, 500, 100, 4.5, 50, testNow)
	items := []model.Prompt{small, whale}

	got := TrendingWithScores(items, Options{Category: "writing", Now: testNow})
	if len(got) != 1 {
		t.Fatalf("got %d scored items, want 1", len(got))
	}
	if v := got[0].Score.Views; math.Abs(v-0.01) > 1e-9 {
		t.Fatalf("view sub-score = %v, want 0.01 (normalized against full pool)", v)
	}
}

func TestRankingScenario(t *testing.T) {
	a := prompt("a", 100, 50, 10, 4.5, 20, testNow)
	b := prompt("b", 10, 5, 1, 5, 1, testNow.Add(-8*7*24*time.Hour))
	got := TrendingPrompts([]model.Prompt{b, a}, Options{Now: testNow})
	if len(got) != 2 || got[0].ID != "a" {
		t.Fatalf("expected a ranked first despite b's higher raw rating")
	}
}

func TestSortByTrendingNoFilters(t *testing.T) {
	items := []model.Prompt{
		prompt("old", 100, 50, 10, 4.5, 20, testNow.Add(-20*7*24*time.Hour)),
		prompt("new", 100, 50, 10, 4.5, 20, testNow),
	}
	got := SortByTrending(items, testNow)
	if len(got) != 2 {
		t.Fatalf("got %d items", len(got))
	}
	if got[0].ID != "new" {
		t.Fatal("fresher item should win on equal engagement")
	}
}
