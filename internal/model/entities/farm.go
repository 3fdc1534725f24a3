package entities

import "strings"

// CropRef is the normalized crop identity used as a lookup key.
type CropRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Farm is a farmer's registered plot. It is created elsewhere in the
// platform and read-only to the advisory engine. Crops keep their
// registration order.
type Farm struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Location    Coordinate `json:"location"`
	Region      string     `json:"region"`
	SoilType    string     `json:"soil_type,omitempty"`
	FarmingType string     `json:"farming_type,omitempty"`
	Crops       []CropRef  `json:"crops"`
}

// NormalizedSoilType returns the farm's soil type, or "" when it is blank
// or the "Not specified" placeholder some registration flows write.
func (f *Farm) NormalizedSoilType() string {
	s := strings.TrimSpace(f.SoilType)
	if s == "" || strings.EqualFold(s, "not specified") {
		return ""
	}
	return s
}

// CropNames returns the farm's crop names in registration order.
func (f *Farm) CropNames() []string {
	names := make([]string, 0, len(f.Crops))
	for _, c := range f.Crops {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
