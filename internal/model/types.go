package model

import (
	"strings"
	"time"
)

// Author identifies the contributor of a prompt.
type Author struct {
	ID     string `json:"id"`
	Handle string `json:"handle,omitempty"`
}

// Stats captures engagement counters for a prompt.
// Counts are non-negative; Rating is an average on a 0-5 scale.
type Stats struct {
	Views       int     `json:"views"`
	Copies      int     `json:"copies"`
	Saves       int     `json:"saves"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"ratingCount"`
}

// Prompt represents one shareable unit of content in the catalog.
// Scoring code treats it as read-only input.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Author      Author    `json:"author"`
	Featured    bool      `json:"featured,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Stats       Stats     `json:"stats"`
}

// HasTag reports whether the prompt carries the tag (case-insensitive).
func (p Prompt) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MatchesCategory compares categories case-insensitively.
func (p Prompt) MatchesCategory(category string) bool {
	return strings.EqualFold(p.Category, category)
}

// EngagementEvent records a single view/copy/save against a prompt.
type EngagementEvent struct {
	Timestamp time.Time
	Type      string // view, copy, save
	PromptID  string
}
