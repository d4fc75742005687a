package suggest

import (
	"strings"
	"testing"

	"promptpulse/internal/model"
)

func pool() []model.Prompt {
	return []model.Prompt{
		{ID: "code-review", Title: "Thorough Code Review", Description: "Review a diff for regressions.", Tags: []string{"code-review", "go"}},
		{ID: "cold-email", Title: "Cold Outreach Email", Description: "Draft an outreach email.", Tags: []string{"email", "sales"}},
		{ID: "sql-explain", Title: "SQL Query Explainer", Description: "Explain a slow query.", Tags: []string{"sql", "performance"}},
	}
}

func TestForTaskRanksKeywordOverlap(t *testing.T) {
	got := ForTask("review my go code", pool(), 5)
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	if got[0].Prompt.ID != "code-review" {
		t.Fatalf("top suggestion = %s, want code-review", got[0].Prompt.ID)
	}
	if got[0].Relevance <= 0 || got[0].Relevance > 1 {
		t.Fatalf("relevance out of range: %v", got[0].Relevance)
	}
	if !strings.Contains(got[0].Reason, "review") && !strings.Contains(got[0].Reason, "go") {
		t.Fatalf("reason does not explain the match: %q", got[0].Reason)
	}
}

func TestForTaskNoMatches(t *testing.T) {
	if got := ForTask("bake sourdough bread", pool(), 5); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
	if got := ForTask("", pool(), 5); got != nil {
		t.Fatalf("empty task should yield nil, got %v", got)
	}
	if got := ForTask("a to of", pool(), 5); got != nil {
		t.Fatalf("short words only should yield nil, got %v", got)
	}
}

func TestForTaskLimit(t *testing.T) {
	got := ForTask("email review query", pool(), 2)
	if len(got) > 2 {
		t.Fatalf("limit exceeded: %d", len(got))
	}
}
