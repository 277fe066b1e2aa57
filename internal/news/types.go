package news

import (
	"context"
	"time"
)

// Item is one raw news item from a provider. ID is provider-scoped and,
// for numeric-ID providers, monotonically increasing.
type Item struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"` // zero when the provider omits it
	Provider    string    `json:"provider"`
}

// SectorImpact is the classifier's read on one affected sector.
type SectorImpact struct {
	Sector     string  `json:"sector"`
	Direction  string  `json:"direction"` // "positive", "negative", "mixed"
	Confidence float64 `json:"confidence"`
}

// Analysis is the classifier output for one item.
type Analysis struct {
	Summary            string         `json:"summary"`
	ImportanceScore    int            `json:"importance_score"` // 0..100
	ImportanceCategory string         `json:"importance_category"`
	ImpactHorizon      string         `json:"impact_horizon"`
	Sectors            []SectorImpact `json:"sectors"`
	RiskNotes          []string       `json:"risk_notes"`
}

// Event is a classified item that cleared its admission threshold.
// Immutable once stored, except for the corroboration counter which is
// bumped when later duplicates of the same story arrive.
type Event struct {
	Item
	Analysis       Analysis  `json:"analysis"`
	MacroMatch     string    `json:"macro_match,omitempty"`
	Tier           int       `json:"tier"` // 0 for macro matches
	Corroborations int       `json:"corroborations"`
	CreatedAt      time.Time `json:"created_at"`
}

// Classifier scores an item's market importance. The model call behind it
// is external; implementations only shuttle the request.
type Classifier interface {
	Classify(ctx context.Context, headline, body string) (*Analysis, error)
}

// Provider fetches the latest items from one news feed.
type Provider interface {
	Name() string
	Latest(ctx context.Context) ([]Item, error)
}
