package entities

// AdvisoryType labels what an advisory asks the farmer to do.
type AdvisoryType string

const (
	AdvisorySetup             AdvisoryType = "setup"
	AdvisoryFertilizer        AdvisoryType = "fertilizer"
	AdvisoryPestControl       AdvisoryType = "pest_control"
	AdvisoryDiseaseManagement AdvisoryType = "disease_management"
	AdvisoryWatering          AdvisoryType = "watering"
	AdvisoryClimate           AdvisoryType = "climate"
	AdvisorySoilManagement    AdvisoryType = "soil_management"
	AdvisoryGuideline         AdvisoryType = "guideline"
)

// Priority of an advisory. Every advisory carries exactly one of these.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NormalizePriority maps free-form template priorities onto the enum.
// Unknown values (including the legacy "normal") become medium.
func NormalizePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// RecommendedInput is a concrete input (fertilizer, treatment) attached to
// an advisory.
type RecommendedInput struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Timing string `json:"timing,omitempty"`
	Method string `json:"method,omitempty"`
}

// Advisory is a single actionable recommendation surfaced to a farmer.
// Advisories are produced fresh per request and never persisted.
type Advisory struct {
	ID                string             `json:"id"`
	Type              AdvisoryType       `json:"type"`
	Crop              string             `json:"crop,omitempty"`
	Title             string             `json:"title"`
	Detail            string             `json:"detail"`
	Priority          Priority           `json:"priority"`
	RecommendedInputs []RecommendedInput `json:"recommended_inputs"`
}
