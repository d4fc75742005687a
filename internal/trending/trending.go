package trending

import (
	"math"
	"sort"
	"time"

	"promptpulse/internal/model"
)

// Component weights for the composite score. They sum to 1.0.
// Copies weigh more than views: a copy is a stronger utility signal.
const (
	WeightViews     = 0.25
	WeightCopies    = 0.30
	WeightSaves     = 0.15
	WeightRating    = 0.20
	WeightFreshness = 0.10
)

// Freshness decay constants: the freshness component halves every
// HalfLifeWeeks and never drops below MinFreshness, so old content fades
// gradually instead of disappearing.
const (
	HalfLifeWeeks = 4.0
	MinFreshness  = 0.1
	MaxFreshness  = 1.0
)

// NeutralRating is the prior that low-confidence ratings regress toward
// (0.6 = three of five stars). Keeps a single 5-star vote from outranking
// items with hundreds of solid ratings.
const NeutralRating = 0.6

// Context carries per-batch normalization maxima and the reference clock.
// Rebuild it whenever the candidate pool changes; never cache across pools.
type Context struct {
	MaxViews       int
	MaxCopies      int
	MaxSaves       int
	MaxRatingCount int
	Now            time.Time
}

// NewContext computes batch maxima over the full candidate pool.
// A zero now falls back to the current time; pass a fixed now for
// deterministic scoring.
func NewContext(items []model.Prompt, now time.Time) Context {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ctx := Context{Now: now}
	for _, p := range items {
		if p.Stats.Views > ctx.MaxViews {
			ctx.MaxViews = p.Stats.Views
		}
		if p.Stats.Copies > ctx.MaxCopies {
			ctx.MaxCopies = p.Stats.Copies
		}
		if p.Stats.Saves > ctx.MaxSaves {
			ctx.MaxSaves = p.Stats.Saves
		}
		if p.Stats.RatingCount > ctx.MaxRatingCount {
			ctx.MaxRatingCount = p.Stats.RatingCount
		}
	}
	return ctx
}

// Weights records the weight table used for one scoring pass.
type Weights struct {
	Views     float64 `json:"views"`
	Copies    float64 `json:"copies"`
	Saves     float64 `json:"saves"`
	Rating    float64 `json:"rating"`
	Freshness float64 `json:"freshness"`
}

func defaultWeights() Weights {
	return Weights{
		Views:     WeightViews,
		Copies:    WeightCopies,
		Saves:     WeightSaves,
		Rating:    WeightRating,
		Freshness: WeightFreshness,
	}
}

// ScoreBreakdown reports the total trending score and each component
// sub-score for one prompt. Sub-scores are all in [0,1].
type ScoreBreakdown struct {
	PromptID  string  `json:"promptId"`
	Total     float64 `json:"total"`
	Views     float64 `json:"views"`
	Copies    float64 `json:"copies"`
	Saves     float64 `json:"saves"`
	Rating    float64 `json:"rating"`
	Freshness float64 `json:"freshness"`
	Weights   Weights `json:"weights"`
}

// ComputeScore scores one prompt against a batch context.
// Pure function: no side effects, no mutation of the prompt.
func ComputeScore(p model.Prompt, ctx Context) ScoreBreakdown {
	w := defaultWeights()
	b := ScoreBreakdown{
		PromptID:  p.ID,
		Views:     clamp01(float64(p.Stats.Views) / float64(atLeastOne(ctx.MaxViews))),
		Copies:    clamp01(float64(p.Stats.Copies) / float64(atLeastOne(ctx.MaxCopies))),
		Saves:     clamp01(float64(p.Stats.Saves) / float64(atLeastOne(ctx.MaxSaves))),
		Rating:    ratingScore(p.Stats.Rating, p.Stats.RatingCount, ctx.MaxRatingCount),
		Freshness: freshnessScore(p.UpdatedAt, ctx.Now),
		Weights:   w,
	}
	b.Total = b.Views*w.Views + b.Copies*w.Copies + b.Saves*w.Saves +
		b.Rating*w.Rating + b.Freshness*w.Freshness
	return b
}

// ratingScore blends the normalized rating with the neutral prior, weighted
// by confidence = sqrt(ratingCount / maxRatingCount).
func ratingScore(rating float64, count, maxCount int) float64 {
	norm := clamp01(rating / 5)
	conf := clamp01(math.Sqrt(float64(count) / float64(atLeastOne(maxCount))))
	return conf*norm + (1-conf)*NeutralRating
}

// freshnessScore decays exponentially with age since last update.
// Future-dated updates count as brand new; the zero time decays to the
// MinFreshness floor.
func freshnessScore(updatedAt, now time.Time) float64 {
	age := now.Sub(updatedAt)
	if age < 0 {
		age = 0
	}
	ageWeeks := age.Hours() / (7 * 24)
	decay := math.Exp(-ageWeeks * math.Ln2 / HalfLifeWeeks)
	return MinFreshness + (MaxFreshness-MinFreshness)*decay
}

// Options filters and bounds a trending query.
// Zero values mean "no filter"; a zero Now means wall-clock time.
type Options struct {
	Limit      int
	MinScore   float64
	Category   string
	ExcludeIDs []string
	Now        time.Time
}

// ScoredPrompt pairs a prompt with its score breakdown.
type ScoredPrompt struct {
	Prompt model.Prompt   `json:"prompt"`
	Score  ScoreBreakdown `json:"score"`
}

// TrendingPrompts ranks the pool by trending score and returns the prompts.
// Batch maxima come from the full pool before category/exclude filtering, so
// normalization stays stable across filtered views of the same catalog.
func TrendingPrompts(items []model.Prompt, opts Options) []model.Prompt {
	scored := rank(items, opts, true)
	out := make([]model.Prompt, len(scored))
	for i, sp := range scored {
		out[i] = sp.Prompt
	}
	return out
}

// TrendingWithScores returns prompts with their breakdowns for analytics and
// debugging consumers. Only Category, Limit, and Now are honored.
func TrendingWithScores(items []model.Prompt, opts Options) []ScoredPrompt {
	return rank(items, Options{Category: opts.Category, Limit: opts.Limit, Now: opts.Now}, false)
}

// SortByTrending is a drop-in replacement for a naive popularity sort.
func SortByTrending(items []model.Prompt, now time.Time) []model.Prompt {
	return TrendingPrompts(items, Options{Now: now})
}

func rank(items []model.Prompt, opts Options, applyExclusions bool) []ScoredPrompt {
	ctx := NewContext(items, opts.Now)
	exclude := make(map[string]struct{}, len(opts.ExcludeIDs))
	if applyExclusions {
		for _, id := range opts.ExcludeIDs {
			exclude[id] = struct{}{}
		}
	}
	scored := make([]ScoredPrompt, 0, len(items))
	for _, p := range items {
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		if opts.Category != "" && !p.MatchesCategory(opts.Category) {
			continue
		}
		b := ComputeScore(p, ctx)
		if applyExclusions && b.Total < opts.MinScore {
			continue
		}
		scored = append(scored, ScoredPrompt{Prompt: p, Score: b})
	}
	// Stable: equal scores keep catalog order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Total > scored[j].Score.Total
	})
	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
