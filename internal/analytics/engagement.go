package analytics

import (
	"sort"
	"time"

	"promptpulse/internal/model"
)

// HourlyEngagement aggregates catalog events into per-hour buckets keyed by
// event type (view, copy, save).
func HourlyEngagement(events []model.EngagementEvent) map[time.Time]map[string]int {
	buckets := make(map[time.Time]map[string]int)
	for _, e := range events {
		key := e.Timestamp.UTC().Truncate(time.Hour)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][e.Type]++
	}
	return buckets
}

// TopPromptsByEvents counts events per prompt and returns the ids of the
// most engaged prompts, descending, ties by id.
func TopPromptsByEvents(events []model.EngagementEvent, limit int) []string {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.PromptID]++
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
