package advisory

import "time"

// ClimateZone classifies a latitude into a coarse climate band.
func ClimateZone(lat float64) string {
	switch {
	case lat < -60:
		return "polar"
	case lat < -40:
		return "subpolar"
	case lat < -23.5:
		return "temperate"
	case lat < 23.5:
		return "tropical"
	case lat < 40:
		return "subtropical"
	case lat < 60:
		return "temperate"
	default:
		return "polar"
	}
}

// Season maps a month onto the hemisphere's three-month buckets.
func Season(month time.Month, northern bool) string {
	if northern {
		switch {
		case month >= time.March && month <= time.May:
			return "spring"
		case month >= time.June && month <= time.August:
			return "summer"
		case month >= time.September && month <= time.November:
			return "autumn"
		default:
			return "winter"
		}
	}
	switch {
	case month >= time.March && month <= time.May:
		return "autumn"
	case month >= time.June && month <= time.August:
		return "winter"
	case month >= time.September && month <= time.November:
		return "spring"
	default:
		return "summer"
	}
}

// SeasonAt derives the current season from the latitude's hemisphere.
func SeasonAt(lat float64, t time.Time) string {
	return Season(t.Month(), lat >= 0)
}

// seasonalRecommendations is the static climate-zone × season table backing
// the synthetic last-resort guideline.
var seasonalRecommendations = map[string]map[string][]string{
	"tropical": {
		"spring": {"Prepare for monsoon season", "Plant humidity-resistant crops"},
		"summer": {"Implement irrigation systems", "Use shade cloth for sensitive crops"},
		"autumn": {"Focus on pest control", "Prepare for dry season"},
		"winter": {"Plant drought-resistant varieties", "Maintain soil moisture"},
	},
	"subtropical": {
		"spring": {"Plant warm-season crops after last frost risk", "Check irrigation lines"},
		"summer": {"Mulch to conserve moisture", "Watch for heat stress"},
		"autumn": {"Plant cool-season vegetables", "Apply compost"},
		"winter": {"Protect sensitive crops on cold nights", "Plan crop rotation"},
	},
	"temperate": {
		"spring": {"Start early crops", "Prepare soil after frost"},
		"summer": {"Regular irrigation", "Monitor for pests"},
		"autumn": {"Harvest main crops", "Plant cover crops"},
		"winter": {"Protect from frost", "Plan for next season"},
	},
}

// SeasonalRecommendations returns the generic recommendations for a climate
// zone and season, or nil when the table has no entry.
func SeasonalRecommendations(zone, season string) []string {
	return seasonalRecommendations[zone][season]
}
