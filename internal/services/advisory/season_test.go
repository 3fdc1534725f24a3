package advisory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClimateZone(t *testing.T) {
	assert.Equal(t, "tropical", ClimateZone(3.87))      // Yaoundé
	assert.Equal(t, "tropical", ClimateZone(-10))       // Lusaka-ish
	assert.Equal(t, "subtropical", ClimateZone(30))     // Cairo
	assert.Equal(t, "temperate", ClimateZone(48.85))    // Paris
	assert.Equal(t, "temperate", ClimateZone(-35))      // Buenos Aires
	assert.Equal(t, "subpolar", ClimateZone(-50))       // southern Patagonia
	assert.Equal(t, "polar", ClimateZone(70))           // Tromsø
	assert.Equal(t, "polar", ClimateZone(-75))          // Antarctica
	assert.Equal(t, "subtropical", ClimateZone(23.5))   // boundary goes to the higher band
}

func TestSeasonNorthernHemisphere(t *testing.T) {
	assert.Equal(t, "spring", Season(time.April, true))
	assert.Equal(t, "summer", Season(time.July, true))
	assert.Equal(t, "autumn", Season(time.October, true))
	assert.Equal(t, "winter", Season(time.January, true))
	assert.Equal(t, "winter", Season(time.December, true))
}

func TestSeasonSouthernHemisphereIsShifted(t *testing.T) {
	assert.Equal(t, "autumn", Season(time.April, false))
	assert.Equal(t, "winter", Season(time.July, false))
	assert.Equal(t, "spring", Season(time.October, false))
	assert.Equal(t, "summer", Season(time.January, false))
}

func TestSeasonAtUsesLatitudeHemisphere(t *testing.T) {
	july := time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "summer", SeasonAt(3.87, july))
	assert.Equal(t, "winter", SeasonAt(-33.9, july))
	// The equator counts as northern.
	assert.Equal(t, "summer", SeasonAt(0, july))
}

func TestSeasonalRecommendationsTotality(t *testing.T) {
	for _, zone := range []string{"tropical", "subtropical", "temperate"} {
		for _, season := range []string{"spring", "summer", "autumn", "winter"} {
			assert.NotEmpty(t, SeasonalRecommendations(zone, season), "%s/%s", zone, season)
		}
	}
	assert.Nil(t, SeasonalRecommendations("polar", "winter"))
}
