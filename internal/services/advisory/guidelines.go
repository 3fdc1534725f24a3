package advisory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

// TemplateStore provides guidance templates and per-farm guideline links.
type TemplateStore interface {
	FindTemplatesMatching(ctx context.Context, c entities.TemplateCriteria) ([]entities.GuidanceTemplate, error)
	FindRelaxedTemplates(ctx context.Context, limit int) ([]entities.GuidanceTemplate, error)
	UpsertFarmGuideline(ctx context.Context, farmID, templateID string) error
}

// WeatherProvider fetches the transient snapshot for a coordinate.
type WeatherProvider interface {
	GetWeather(ctx context.Context, c entities.Coordinate) (*entities.WeatherSnapshot, error)
}

// FactResolver answers region×crop fact lookups.
type FactResolver interface {
	GetRecommendations(region, crop string) *entities.AgronomicFact
}

const relaxedLimit = 5

// Matcher selects applicable guidance templates for a farm through an
// ordered strategy chain: strict matching with condition filtering, a
// relaxed query, then a synthetic seasonal guideline. It never returns an
// empty list.
type Matcher struct {
	templates TemplateStore
	weather   WeatherProvider
	resolver  FactResolver
	now       func() time.Time
}

func NewMatcher(templates TemplateStore, weather WeatherProvider, resolver FactResolver) *Matcher {
	return &Matcher{templates: templates, weather: weather, resolver: resolver, now: time.Now}
}

// GenerateGuidelines resolves the guidance templates applicable to the farm
// and enriches them with region×crop facts. Store and weather failures
// degrade toward the next strategy; the synthetic fallback keeps the result
// non-empty for any input.
func (m *Matcher) GenerateGuidelines(ctx context.Context, farm *entities.Farm) []entities.Guideline {
	weather, candidates := m.fetchWeatherAndCandidates(ctx, farm)

	relevant := filterByConditions(candidates, weather, farm.Location.Lat, m.now())

	if len(candidates) == 0 || len(relevant) == 0 {
		log.Printf("guidelines: no strict matches for farm %s, trying relaxed query", farm.ID)
		relaxed, err := m.templates.FindRelaxedTemplates(ctx, relaxedLimit)
		if err != nil {
			log.Printf("guidelines: relaxed query failed: %v", err)
		}
		// Relaxed candidates bypass condition filtering.
		relevant = relaxed
	}

	for _, t := range relevant {
		if err := m.templates.UpsertFarmGuideline(ctx, farm.ID, t.ID); err != nil {
			log.Printf("guidelines: failed to link template %s to farm %s: %v", t.ID, farm.ID, err)
		}
	}

	extras := m.cropEnrichment(farm)

	if len(relevant) == 0 {
		return []entities.Guideline{m.syntheticGuideline(farm, extras)}
	}

	out := make([]entities.Guideline, 0, len(relevant))
	for _, t := range relevant {
		g := guidelineFromTemplate(t)
		g.Recommendations = append(g.Recommendations, extras...)
		out = append(out, g)
	}
	log.Printf("guidelines: %d guidelines for farm %s", len(out), farm.ID)
	return out
}

// fetchWeatherAndCandidates runs the weather fetch and the strict candidate
// query concurrently; both degrade to nil/empty on failure.
func (m *Matcher) fetchWeatherAndCandidates(ctx context.Context, farm *entities.Farm) (*entities.WeatherSnapshot, []entities.GuidanceTemplate) {
	type res struct {
		key       string
		weather   *entities.WeatherSnapshot
		templates []entities.GuidanceTemplate
	}
	ch := make(chan res, 2)

	go func() {
		w, err := m.weather.GetWeather(ctx, farm.Location)
		if err != nil {
			log.Printf("guidelines: weather fetch failed for farm %s: %v", farm.ID, err)
			w = nil
		}
		ch <- res{key: "weather", weather: w}
	}()
	go func() {
		criteria := entities.TemplateCriteria{
			SoilType:    farm.NormalizedSoilType(),
			FarmingType: farm.FarmingType,
			Region:      farm.Region,
			ClimateZone: ClimateZone(farm.Location.Lat),
		}
		ts, err := m.templates.FindTemplatesMatching(ctx, criteria)
		if err != nil {
			log.Printf("guidelines: template query failed for farm %s: %v", farm.ID, err)
			ts = nil
		}
		ch <- res{key: "templates", templates: ts}
	}()

	var weather *entities.WeatherSnapshot
	var candidates []entities.GuidanceTemplate
	for i := 0; i < 2; i++ {
		r := <-ch
		switch r.key {
		case "weather":
			weather = r.weather
		case "templates":
			candidates = r.templates
		}
	}
	return weather, candidates
}

// filterByConditions drops candidates whose declared conditions exclude the
// current weather or season. Without a weather snapshot every candidate
// survives.
func filterByConditions(candidates []entities.GuidanceTemplate, weather *entities.WeatherSnapshot, lat float64, now time.Time) []entities.GuidanceTemplate {
	if weather == nil {
		return candidates
	}
	season := SeasonAt(lat, now)

	out := make([]entities.GuidanceTemplate, 0, len(candidates))
	for _, t := range candidates {
		if t.Conditions == nil {
			out = append(out, t)
			continue
		}
		c := t.Conditions
		if tr := c.TemperatureC; tr != nil {
			if tr.Min != nil && weather.TempCurrent < *tr.Min {
				continue
			}
			if tr.Max != nil && weather.TempCurrent > *tr.Max {
				continue
			}
		}
		if c.RainfallMM != nil {
			deviation := weather.RecentRainMM - *c.RainfallMM
			if deviation < 0 {
				deviation = -deviation
			}
			if deviation > 20 {
				continue
			}
		}
		if len(c.Seasons) > 0 && !containsFold(c.Seasons, season) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// cropEnrichment formats one recommendation bullet per crop that has an
// agronomic fact for the farm's region. Only non-empty fields appear.
func (m *Matcher) cropEnrichment(farm *entities.Farm) []string {
	if farm.Region == "" || m.resolver == nil {
		return nil
	}
	var out []string
	for _, crop := range farm.CropNames() {
		fact := m.resolver.GetRecommendations(farm.Region, crop)
		if fact == nil {
			continue
		}
		var parts []string
		if s := fact.FertilizerSummary(); s != "" {
			parts = append(parts, "Fertilizer: "+s)
		}
		if fact.CommonPests != "" {
			parts = append(parts, "Pests: "+fact.CommonPests)
		}
		if fact.CommonDiseases != "" {
			parts = append(parts, "Diseases: "+fact.CommonDiseases)
		}
		if fact.PestControlMethods != "" {
			parts = append(parts, "Pest control: "+fact.PestControlMethods)
		}
		if fact.AdaptationNotes != "" {
			parts = append(parts, "Notes: "+fact.AdaptationNotes)
		}
		if len(parts) > 0 {
			out = append(out, fmt.Sprintf("Crop %s: %s", crop, strings.Join(parts, "; ")))
		}
	}
	return out
}

// syntheticGuideline is the last-resort guideline built from the climate
// zone's seasonal table.
func (m *Matcher) syntheticGuideline(farm *entities.Farm, extras []string) entities.Guideline {
	zone := ClimateZone(farm.Location.Lat)
	season := SeasonAt(farm.Location.Lat, m.now())
	seasonal := SeasonalRecommendations(zone, season)

	content := "No specific templates available for this farm. Follow general best practices and monitor conditions."
	if len(seasonal) > 0 {
		content = strings.Join(seasonal, "; ")
	}
	region := farm.Region
	if region == "" {
		region = "your area"
	}
	log.Printf("guidelines: returning synthetic fallback guideline for farm %s", farm.ID)
	return entities.Guideline{
		ID:              "fallback-" + farm.ID,
		Title:           "General recommendations for " + region,
		Type:            "general",
		Content:         content,
		Recommendations: extras,
		Priority:        string(entities.PriorityLow),
	}
}

func guidelineFromTemplate(t entities.GuidanceTemplate) entities.Guideline {
	typ := t.Type
	if typ == "" {
		typ = "guideline"
	}
	recs := make([]string, len(t.Recommendations))
	copy(recs, t.Recommendations)
	return entities.Guideline{
		ID:              t.ID,
		Title:           t.Title,
		Type:            typ,
		Content:         t.Content,
		Recommendations: recs,
		Priority:        t.Priority,
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
