package entities

// TemperatureRange bounds, °C. A nil bound is unconstrained.
type TemperatureRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// TemplateConditions restrict when a guidance template applies. All fields
// are optional; an absent field imposes no constraint.
type TemplateConditions struct {
	TemperatureC *TemperatureRange `json:"temperature_c,omitempty"`
	RainfallMM   *float64          `json:"rainfall_mm,omitempty"` // expected recent rainfall, ±20mm tolerance
	Seasons      []string          `json:"seasons,omitempty"`
}

// GuidanceTemplate is an immutable reference-data rule describing when and
// what to recommend. The four matching fields are nullable: a template with
// all four unset is generic and matches every farm.
type GuidanceTemplate struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Type            string              `json:"type,omitempty"`
	Content         string              `json:"content"`
	SoilType        *string             `json:"soil_type,omitempty"`
	FarmingType     *string             `json:"farming_type,omitempty"`
	Region          *string             `json:"region,omitempty"`
	ClimateZone     *string             `json:"climate_zone,omitempty"`
	Conditions      *TemplateConditions `json:"conditions,omitempty"`
	Priority        string              `json:"priority,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// TemplateCriteria is the strict candidate query: a template qualifies when
// any one of its matching fields equals the corresponding criterion, or when
// all four matching fields are null. Empty criterion strings match nothing.
type TemplateCriteria struct {
	SoilType    string
	FarmingType string
	Region      string
	ClimateZone string
}

// Guideline is a guidance template resolved for a specific farm, in the
// shape the synthesizer consumes.
type Guideline struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Content         string   `json:"content"`
	Recommendations []string `json:"recommendations"`
	Priority        string   `json:"priority"`
}
