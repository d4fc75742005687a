package recommend

import (
	"sort"
	"strings"

	"promptpulse/internal/model"
)

// Signal weights. Tag overlap dominates; popularity is a weak base-interest
// signal that contributes to score but never to reasons.
const (
	WeightTags       = 0.6
	WeightCategory   = 0.2
	WeightAuthor     = 0.1
	WeightPopularity = 0.1
)

// History weighting: saving is a stronger signal than viewing.
const (
	SavedWeight  = 2.0
	ViewedWeight = 1.0
)

// historyMinScore is the fixed keep threshold for history-based scoring.
// Unlike Related's caller-supplied MinScore this is not configurable.
const historyMinScore = 0.1

// coldStartDivisor normalizes raw copy counts in the cold-start fallback.
const coldStartDivisor = 1000.0

const defaultLimit = 10

const maxReasonTags = 3

// Recommendation pairs a candidate prompt with a score and the human-readable
// reasons behind the match. Reasons appear in signal order: tags, category,
// author.
type Recommendation struct {
	Prompt  model.Prompt `json:"prompt"`
	Score   float64      `json:"score"`
	Reasons []string     `json:"reasons"`
}

// Options bounds and filters a recommendation query.
// MinScore applies to Related only; FromHistory uses a fixed threshold.
type Options struct {
	Limit      int
	ExcludeIDs []string
	MinScore   float64
}

// TagSimilarity returns the Jaccard similarity of two tag lists, compared
// case-insensitively. Two empty sets score 0, not 1.
func TagSimilarity(a, b []string) float64 {
	sa := tagSet(a)
	sb := tagSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Related ranks the pool by similarity to one source prompt.
// The source is always excluded, even if absent from ExcludeIDs.
// Candidates are kept only when score is strictly above MinScore.
func Related(source model.Prompt, all []model.Prompt, opts Options) []Recommendation {
	exclude := idSet(opts.ExcludeIDs)
	exclude[source.ID] = struct{}{}
	maxViews, maxCopies := poolMaxima(all)

	recs := make([]Recommendation, 0, len(all))
	for _, cand := range all {
		if _, skip := exclude[cand.ID]; skip {
			continue
		}
		var score float64
		var reasons []string
		if sim := TagSimilarity(source.Tags, cand.Tags); sim > 0 {
			score += sim * WeightTags
			shared := sharedTags(source.Tags, cand.Tags)
			reasons = append(reasons, "Similar tags: "+strings.Join(shared, ", "))
		}
		if cand.MatchesCategory(source.Category) {
			score += WeightCategory
			reasons = append(reasons, "Same category: "+cand.Category)
		}
		if cand.Author.ID == source.Author.ID {
			score += WeightAuthor
			reasons = append(reasons, "Same author: "+authorName(cand.Author))
		}
		score += popularity(cand, maxViews, maxCopies) * WeightPopularity
		if score > opts.MinScore {
			recs = append(recs, Recommendation{Prompt: cand, Score: score, Reasons: reasons})
		}
	}
	return top(recs, opts.Limit)
}

// WeightedSource attaches an affinity weight to a history prompt. Weights
// below 1 are treated as 1.
type WeightedSource struct {
	Prompt model.Prompt
	Weight float64
}

// FromHistory ranks the pool by affinity to a set of prompts the user
// engaged with. Duplicate sources raise frequencies proportionally, so
// callers may weight by repetition; prefer FromWeighted for explicit
// weights. All source IDs are excluded from results.
func FromHistory(sources, all []model.Prompt, opts Options) []Recommendation {
	weighted := make([]WeightedSource, len(sources))
	for i, p := range sources {
		weighted[i] = WeightedSource{Prompt: p, Weight: 1}
	}
	return FromWeighted(weighted, all, opts)
}

// FromWeighted is the weighted-history core behind FromHistory and ForYou.
// Tag and category frequencies accumulate source weights; a candidate's tag
// affinity is the per-tag average of normalized frequencies, so prompts with
// many tags are not favored over focused ones. Only candidates scoring
// strictly above the fixed threshold are kept.
func FromWeighted(sources []WeightedSource, all []model.Prompt, opts Options) []Recommendation {
	exclude := idSet(opts.ExcludeIDs)
	tagFreq := make(map[string]float64)
	catFreq := make(map[string]float64)
	for _, s := range sources {
		w := s.Weight
		if w < 1 {
			w = 1
		}
		exclude[s.Prompt.ID] = struct{}{}
		for _, t := range s.Prompt.Tags {
			tagFreq[strings.ToLower(t)] += w
		}
		catFreq[s.Prompt.Category] += w
	}
	maxTag := maxValue(tagFreq)
	maxCat := maxValue(catFreq)
	maxViews, maxCopies := poolMaxima(all)

	recs := make([]Recommendation, 0, len(all))
	for _, cand := range all {
		if _, skip := exclude[cand.ID]; skip {
			continue
		}
		var score float64
		var reasons []string
		if len(cand.Tags) > 0 && maxTag > 0 {
			var sum float64
			var matched []string
			for _, t := range cand.Tags {
				f := tagFreq[strings.ToLower(t)]
				if f > 0 {
					matched = append(matched, t)
				}
				sum += f / maxTag
			}
			score += sum / float64(len(cand.Tags)) * WeightTags
			if len(matched) > 0 {
				if len(matched) > maxReasonTags {
					matched = matched[:maxReasonTags]
				}
				reasons = append(reasons, "Matches tags you like: "+strings.Join(matched, ", "))
			}
		}
		if maxCat > 0 {
			if f := catFreq[cand.Category]; f > 0 {
				score += f / maxCat * WeightCategory
				reasons = append(reasons, "Category you engage with: "+cand.Category)
			}
		}
		score += popularity(cand, maxViews, maxCopies) * WeightPopularity
		if score > historyMinScore {
			recs = append(recs, Recommendation{Prompt: cand, Score: score, Reasons: reasons})
		}
	}
	return top(recs, opts.Limit)
}

// History is a user's interaction history for ForYou.
type History struct {
	Viewed []model.Prompt
	Saved  []model.Prompt
}

// ForYou produces a personalized feed. Saved prompts weigh double viewed
// ones, and everything in the history is excluded from the results. With no
// history at all it falls back to raw popularity.
func ForYou(h History, all []model.Prompt, opts Options) []Recommendation {
	sources := make([]WeightedSource, 0, len(h.Saved)+len(h.Viewed))
	for _, p := range h.Saved {
		sources = append(sources, WeightedSource{Prompt: p, Weight: SavedWeight})
	}
	for _, p := range h.Viewed {
		sources = append(sources, WeightedSource{Prompt: p, Weight: ViewedWeight})
	}
	if len(sources) == 0 {
		return popularFallback(all, opts)
	}
	return FromWeighted(sources, all, opts)
}

// popularFallback covers the cold start: no history means no affinity
// signal, so rank by raw copies with a fixed normalization divisor.
func popularFallback(all []model.Prompt, opts Options) []Recommendation {
	exclude := idSet(opts.ExcludeIDs)
	recs := make([]Recommendation, 0, len(all))
	for _, p := range all {
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		recs = append(recs, Recommendation{
			Prompt:  p,
			Score:   float64(p.Stats.Copies) / coldStartDivisor,
			Reasons: []string{"Popular in the community"},
		})
	}
	return top(recs, opts.Limit)
}

// popularity is the unweighted mean of normalized views, copies, and rating.
func popularity(p model.Prompt, maxViews, maxCopies int) float64 {
	v := float64(p.Stats.Views) / float64(atLeastOne(maxViews))
	c := float64(p.Stats.Copies) / float64(atLeastOne(maxCopies))
	r := p.Stats.Rating / 5
	return (v + c + r) / 3
}

// sharedTags returns up to maxReasonTags tags present in both lists,
// keeping the candidate's casing and order.
func sharedTags(source, candidate []string) []string {
	ss := tagSet(source)
	var out []string
	seen := make(map[string]struct{})
	for _, t := range candidate {
		lt := strings.ToLower(t)
		if _, ok := ss[lt]; !ok {
			continue
		}
		if _, dup := seen[lt]; dup {
			continue
		}
		seen[lt] = struct{}{}
		out = append(out, t)
		if len(out) == maxReasonTags {
			break
		}
	}
	return out
}

func top(recs []Recommendation, limit int) []Recommendation {
	if limit <= 0 {
		limit = defaultLimit
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func tagSet(tags []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		s[strings.ToLower(t)] = struct{}{}
	}
	return s
}

func idSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func poolMaxima(items []model.Prompt) (maxViews, maxCopies int) {
	for _, p := range items {
		if p.Stats.Views > maxViews {
			maxViews = p.Stats.Views
		}
		if p.Stats.Copies > maxCopies {
			maxCopies = p.Stats.Copies
		}
	}
	return maxViews, maxCopies
}

func maxValue(m map[string]float64) float64 {
	var max float64
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func authorName(a model.Author) string {
	if a.Handle != "" {
		return a.Handle
	}
	return a.ID
}
