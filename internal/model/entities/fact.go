package entities

import (
	"fmt"
	"strings"
)

// AgronomicFact is one region×crop row of the static agronomic reference
// dataset (fertilizer doses, pests, diseases, water needs). Rows are loaded
// once at process start and never mutated. Numeric fields are pointers so
// "no data" stays distinguishable from zero.
type AgronomicFact struct {
	Region              string   `json:"region"`
	Crop                string   `json:"crop"`
	NKgPerHa            *float64 `json:"n_kg_per_ha,omitempty"`
	P2O5KgPerHa         *float64 `json:"p2o5_kg_per_ha,omitempty"`
	K2OKgPerHa          *float64 `json:"k2o_kg_per_ha,omitempty"`
	SplitTiming         string   `json:"split_timing,omitempty"`
	ApplicationMethod   string   `json:"application_method,omitempty"`
	CommonPests         string   `json:"common_pests,omitempty"`
	CommonDiseases      string   `json:"common_diseases,omitempty"`
	PestControlMethods  string   `json:"pest_control_methods,omitempty"`
	EasyTreatments      string   `json:"easy_treatments,omitempty"`
	RainfallRequirement string   `json:"rainfall_requirement,omitempty"`
	AdaptationNotes     string   `json:"adaptation_notes,omitempty"`
}

// HasNPK reports whether any fertilizer dose is present.
func (f *AgronomicFact) HasNPK() bool {
	return f.NKgPerHa != nil || f.P2O5KgPerHa != nil || f.K2OKgPerHa != nil
}

// FertilizerSummary renders the available NPK doses, e.g.
// "N: 120 kg/ha, P₂O₅: 60 kg/ha". Empty when no dose is present.
func (f *AgronomicFact) FertilizerSummary() string {
	var parts []string
	if f.NKgPerHa != nil {
		parts = append(parts, fmt.Sprintf("N: %g kg/ha", *f.NKgPerHa))
	}
	if f.P2O5KgPerHa != nil {
		parts = append(parts, fmt.Sprintf("P₂O₅: %g kg/ha", *f.P2O5KgPerHa))
	}
	if f.K2OKgPerHa != nil {
		parts = append(parts, fmt.Sprintf("K₂O: %g kg/ha", *f.K2OKgPerHa))
	}
	return strings.Join(parts, ", ")
}
