// Package refdata resolves agronomic facts for (region, crop) pairs against
// the static reference dataset, tolerating near-miss names through aliasing
// and fuzzy matching.
package refdata

import (
	"strings"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
	"github.com/mbodji-lab/farm-advisory/pkg/fuzzy"
)

// cropAliases maps common crop synonyms to the canonical dataset name.
var cropAliases = map[string]string{
	"corn":            "maize",
	"field corn":      "maize",
	"sweet corn":      "maize",
	"yardlong bean":   "cowpea",
	"cow pea":         "cowpea",
	"sorghum bicolor": "sorghum",
}

// Fuzzy scoring weights: region similarity counts slightly more than crop
// similarity, and matches below the threshold are rejected.
const (
	regionWeight   = 0.55
	cropWeight     = 0.45
	fuzzyThreshold = 0.65
)

// Resolver answers fact lookups against immutable in-memory reference data.
// Safe for concurrent use.
type Resolver struct {
	full    []entities.AgronomicFact
	summary []entities.AgronomicFact
}

func NewResolver(full, summary []entities.AgronomicFact) *Resolver {
	return &Resolver{full: full, summary: summary}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GetRecommendations resolves the agronomic fact for a (region, crop) pair.
// Lookup order, first hit wins: exact match on the full dataset, exact match
// on the summary dataset, region-only default row, crop-alias substitution,
// then weighted fuzzy match. Returns nil when nothing clears the threshold.
func (r *Resolver) GetRecommendations(region, crop string) *entities.AgronomicFact {
	dataset := r.full
	if len(dataset) == 0 {
		dataset = r.summary
	}
	if len(dataset) == 0 {
		return nil
	}

	targetRegion := norm(region)
	targetCrop := norm(crop)

	if f := findExact(dataset, targetRegion, targetCrop); f != nil {
		return f
	}
	if len(r.summary) > 0 {
		if f := findExact(r.summary, targetRegion, targetCrop); f != nil {
			return f
		}
	}

	// Region-level default rows carry an empty crop.
	for i := range dataset {
		if norm(dataset[i].Region) == targetRegion && norm(dataset[i].Crop) == "" {
			return &dataset[i]
		}
	}
	if len(r.summary) > 0 {
		for i := range r.summary {
			if norm(r.summary[i].Region) == targetRegion && norm(r.summary[i].Crop) == "" {
				return &r.summary[i]
			}
		}
	}

	canonicalCrop := targetCrop
	if alias, ok := cropAliases[targetCrop]; ok {
		canonicalCrop = alias
		if f := findExact(dataset, targetRegion, canonicalCrop); f != nil {
			return f
		}
	}

	// Fuzzy pass over the whole dataset. Strict > keeps the first-encountered
	// row on score ties, which must stay stable in dataset order.
	var best *entities.AgronomicFact
	bestScore := 0.0
	for i := range dataset {
		regionScore := 0.5
		if targetRegion != "" {
			regionScore = fuzzy.Similarity(targetRegion, norm(dataset[i].Region))
		}
		cropScore := 0.5
		if canonicalCrop != "" {
			cropScore = fuzzy.Similarity(canonicalCrop, norm(dataset[i].Crop))
		}
		score := regionWeight*regionScore + cropWeight*cropScore
		if score > bestScore {
			bestScore = score
			best = &dataset[i]
		}
	}
	if best != nil && bestScore >= fuzzyThreshold {
		return best
	}
	return nil
}

func findExact(rows []entities.AgronomicFact, region, crop string) *entities.AgronomicFact {
	for i := range rows {
		if norm(rows[i].Region) == region && norm(rows[i].Crop) == crop {
			return &rows[i]
		}
	}
	return nil
}
