package suggest

import (
	"sort"
	"strings"

	"promptpulse/internal/model"
	"promptpulse/internal/util"
)

// Suggestion pairs a prompt with keyword relevance to a task description
// and a short reason for the match.
type Suggestion struct {
	Prompt    model.Prompt `json:"prompt"`
	Relevance float64      `json:"relevance"`
	Reason    string       `json:"reason"`
}

// Per-field match weights: a title hit beats a tag hit beats a
// description hit.
const (
	titleWeight = 3.0
	tagWeight   = 2.0
	descWeight  = 1.0
)

// minWordLen filters out stop-ish short words like "a" and "to".
const minWordLen = 3

const defaultLimit = 5

// ForTask ranks catalog prompts against a free-form task description by
// keyword overlap. Only prompts with at least one match are returned.
func ForTask(task string, pool []model.Prompt, limit int) []Suggestion {
	if limit <= 0 {
		limit = defaultLimit
	}
	words := taskWords(task)
	if len(words) == 0 {
		return nil
	}
	out := make([]Suggestion, 0, len(pool))
	for _, p := range pool {
		rel, reason := relevance(p, words)
		if rel <= 0 {
			continue
		}
		out = append(out, Suggestion{Prompt: p, Relevance: rel, Reason: reason})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func taskWords(task string) []string {
	var out []string
	for _, w := range util.Tokenize(task) {
		if len(w) >= minWordLen {
			out = append(out, w)
		}
	}
	return out
}

// relevance scores one prompt and explains the strongest matches, e.g.
// "title contains 'review'; tagged as 'go'".
func relevance(p model.Prompt, words []string) (float64, string) {
	title := strings.ToLower(p.Title)
	desc := strings.ToLower(p.Description)
	var score float64
	var parts []string

	titleHit := ""
	for _, w := range words {
		if strings.Contains(title, w) {
			score += titleWeight
			if titleHit == "" {
				titleHit = w
			}
		}
	}
	if titleHit != "" {
		parts = append(parts, "title contains '"+titleHit+"'")
	}
	for _, tag := range p.Tags {
		lt := strings.ToLower(tag)
		for _, w := range words {
			if strings.Contains(lt, w) || strings.Contains(w, lt) {
				score += tagWeight
				parts = append(parts, "tagged as '"+tag+"'")
				break
			}
		}
	}
	for _, w := range words {
		if desc != "" && strings.Contains(desc, w) {
			score += descWeight
			parts = append(parts, "description mentions '"+w+"'")
			break
		}
	}

	if score <= 0 {
		return 0, ""
	}
	// Normalize by the best possible per-word score so longer tasks don't
	// inflate relevance.
	norm := score / (float64(len(words)) * (titleWeight + tagWeight + descWeight))
	if norm > 1 {
		norm = 1
	}
	reason := strings.Join(dedupe(parts), "; ")
	if reason == "" {
		reason = "Related to your task keywords"
	}
	return norm, reason
}

func dedupe(parts []string) []string {
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, p := range parts {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
