package messages

import "time"

// AdvisoryGeneratedEvent is published after each successful synthesis so
// downstream consumers (activity feed, analytics) can react without polling.
type AdvisoryGeneratedEvent struct {
	FarmID        string    `json:"farm_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	AdvisoryCount int       `json:"advisory_count"`
	MarketCount   int       `json:"market_count"`
	Language      string    `json:"language,omitempty"`
}
