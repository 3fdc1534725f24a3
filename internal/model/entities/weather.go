package entities

// WeatherSnapshot is the transient weather reading fetched per advisory
// request. Temperatures in °C, rainfall in mm.
type WeatherSnapshot struct {
	TempCurrent  float64 `json:"temp_current"`
	TempMax      float64 `json:"temp_max"`
	RecentRainMM float64 `json:"recent_rain_mm"`
	Description  string  `json:"description,omitempty"`
}
