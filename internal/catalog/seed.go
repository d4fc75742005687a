package catalog

import (
	"context"
	"time"

	"promptpulse/internal/model"
)

// SeedIfEmpty loads the bundled starter prompts when the catalog has none.
// Returns how many prompts were inserted.
func (d *DB) SeedIfEmpty(ctx context.Context, now time.Time) (int, error) {
	n, err := d.CountPrompts(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	seeds := BundledPrompts(now)
	for _, p := range seeds {
		if err := d.UpsertPrompt(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(seeds), nil
}

// BundledPrompts is the built-in starter set, stamped with the given time.
func BundledPrompts(now time.Time) []model.Prompt {
	mk := func(id, title, desc, category string, tags []string, author string, ageDays int, s model.Stats) model.Prompt {
		ts := now.Add(-time.Duration(ageDays) * 24 * time.Hour)
		return model.Prompt{
			ID: id, Title: title, Description: desc, Category: category, Tags: tags,
			Author:    model.Author{ID: author, Handle: author},
			CreatedAt: ts, UpdatedAt: ts, Stats: s,
		}
	}
	return []model.Prompt{
		mk("code-review", "Thorough Code Review", "Review a diff for correctness, style, and hidden regressions.",
			"coding", []string{"code-review", "go", "quality"}, "mira", 3,
			model.Stats{Views: 820, Copies: 410, Saves: 96, Rating: 4.6, RatingCount: 41}),
		mk("commit-messages", "Conventional Commit Writer", "Turn a staged diff into a clean conventional commit message.",
			"coding", []string{"git", "commit", "workflow"}, "mira", 12,
			model.Stats{Views: 530, Copies: 300, Saves: 44, Rating: 4.3, RatingCount: 27}),
		mk("bug-repro", "Bug Reproduction Script", "Distill a vague bug report into a minimal reproduction plan.",
			"coding", []string{"debugging", "testing"}, "tomas", 25,
			model.Stats{Views: 340, Copies: 150, Saves: 31, Rating: 4.1, RatingCount: 18}),
		mk("weekly-summary", "Weekly Update Summarizer", "Condense a week of notes into a crisp status update.",
			"writing", []string{"summary", "workflow"}, "jo", 6,
			model.Stats{Views: 610, Copies: 260, Saves: 72, Rating: 4.4, RatingCount: 33}),
		mk("cold-email", "Cold Outreach Email", "Draft a short, specific outreach email that earns a reply.",
			"writing", []string{"email", "sales"}, "jo", 40,
			model.Stats{Views: 450, Copies: 190, Saves: 25, Rating: 3.9, RatingCount: 22}),
		mk("sql-explain", "SQL Query Explainer", "Explain what a query does and where it will be slow.",
			"data", []string{"sql", "performance", "debugging"}, "tomas", 9,
			model.Stats{Views: 390, Copies: 220, Saves: 48, Rating: 4.5, RatingCount: 19}),
		mk("incident-postmortem", "Incident Postmortem Draft", "Structure a blameless postmortem from a raw incident timeline.",
			"ops", []string{"incident", "postmortem", "workflow"}, "mira", 55,
			model.Stats{Views: 280, Copies: 90, Saves: 19, Rating: 4.7, RatingCount: 11}),
		mk("interview-prep", "System Design Interview Prep", "Generate practice questions with follow-ups for a chosen topic.",
			"career", []string{"interview", "system-design"}, "ana", 17,
			model.Stats{Views: 700, Copies: 330, Saves: 81, Rating: 4.2, RatingCount: 38}),
	}
}
