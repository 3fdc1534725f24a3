package advisory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
	"github.com/mbodji-lab/farm-advisory/internal/model/messages"
	"github.com/mbodji-lab/farm-advisory/pkg/rabbitmq"
)

const (
	marketRadiusKm     = 100 // wide radius for rural coverage
	marketLimit        = 10
	highTempThresholdC = 30
)

// ErrFarmNotFound is returned when the requested farm id does not exist.
var ErrFarmNotFound = errors.New("farm not found")

var advisoriesGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "advisory_advisories_generated_total",
	Help: "Total advisories produced across all syntheses.",
})

// rainfall requirements in the reference data read like "400–800 mm/season";
// both the en dash and the plain hyphen occur.
var rainfallRange = regexp.MustCompile(`(\d+)\s*[–-]\s*(\d+)`)

// FarmStore loads farm profiles.
type FarmStore interface {
	GetFarmByID(ctx context.Context, id string) (*entities.Farm, error)
}

// GuidelineStore reads previously linked active guidelines for a farm.
type GuidelineStore interface {
	ActiveGuidelines(ctx context.Context, farmID string) ([]entities.Guideline, error)
}

// GuidelineGenerator produces guidelines when none are stored.
type GuidelineGenerator interface {
	GenerateGuidelines(ctx context.Context, farm *entities.Farm) []entities.Guideline
}

// MarketFinder ranks sale points around a coordinate.
type MarketFinder interface {
	FindNearbyMarkets(ctx context.Context, center entities.Coordinate, radiusKm float64, cropFilter []string) []entities.RankedMarket
}

// SynthesisRecorder persists an observation point per synthesis.
type SynthesisRecorder interface {
	RecordSynthesis(ctx context.Context, farmID string, advisoryCount, marketCount int, weather *entities.WeatherSnapshot)
}

// Options tune a single synthesis request.
type Options struct {
	Language string // "en" (default) or "fr"
	Debug    bool
}

// Payload is the full advisory response for one farm.
type Payload struct {
	FarmID       string                  `json:"farm_id"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Advisories   []entities.Advisory     `json:"advisories"`
	Markets      []entities.RankedMarket `json:"markets"`
	FarmLocation entities.Coordinate     `json:"farm_location"`
	Debug        *DebugInfo              `json:"_debug,omitempty"`
}

// DebugInfo exposes the intermediate state behind a payload.
type DebugInfo struct {
	Guidelines  []entities.Guideline      `json:"guidelines"`
	Weather     *entities.WeatherSnapshot `json:"weather,omitempty"`
	ClimateZone string                    `json:"climate_zone"`
	Season      string                    `json:"season"`
}

// Synthesizer assembles the advisory payload for a farm: guidelines,
// per-crop rule advisories, weather alerts and nearby markets.
type Synthesizer struct {
	farms     FarmStore
	stored    GuidelineStore
	matcher   GuidelineGenerator
	resolver  FactResolver
	markets   MarketFinder
	weather   WeatherProvider
	publisher rabbitmq.IPublisher
	topicTmpl string
	recorder  SynthesisRecorder
	now       func() time.Time
}

func NewSynthesizer(farms FarmStore, stored GuidelineStore, matcher GuidelineGenerator, resolver FactResolver, markets MarketFinder, weather WeatherProvider) *Synthesizer {
	return &Synthesizer{
		farms:    farms,
		stored:   stored,
		matcher:  matcher,
		resolver: resolver,
		markets:  markets,
		weather:  weather,
		now:      time.Now,
	}
}

// WithPublisher enables the advisory-generated event. topicTmpl may contain
// a "{farm}" placeholder.
func (s *Synthesizer) WithPublisher(p rabbitmq.IPublisher, topicTmpl string) *Synthesizer {
	s.publisher = p
	s.topicTmpl = topicTmpl
	return s
}

// WithRecorder enables time-series recording of syntheses.
func (s *Synthesizer) WithRecorder(r SynthesisRecorder) *Synthesizer {
	s.recorder = r
	return s
}

// GenerateSuggestions builds the advisory payload for one farm.
// Partial data (weather down, market sources down, missing facts) degrades
// to a smaller payload; only an unknown farm id or a storage failure on the
// farm itself is an error.
func (s *Synthesizer) GenerateSuggestions(ctx context.Context, farmID string, opts Options) (payload *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[advisory] panic during synthesis for farm %s: %v", farmID, r)
			payload = nil
			err = fmt.Errorf("advisory synthesis failed: %v", r)
		}
	}()

	farm, err := s.farms.GetFarmByID(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("load farm %s: %w", farmID, err)
	}
	if farm == nil {
		return nil, ErrFarmNotFound
	}

	weather, werr := s.weather.GetWeather(ctx, farm.Location)
	if werr != nil {
		log.Printf("[advisory] weather unavailable for farm %s: %v", farmID, werr)
		weather = nil
	}
	recentRain, tempMax := weatherDefaults(weather)

	guidelines := s.guidelinesFor(ctx, farm)

	crops := farm.CropNames()
	firstCrop := ""
	if len(crops) > 0 {
		firstCrop = crops[0]
	}
	vars := map[string]string{
		"crop":       firstCrop,
		"region":     farm.Region,
		"recentRain": formatNum(recentRain),
		"tempMax":    formatNum(tempMax),
	}

	translate := translator(opts.Language)

	advisories := make([]entities.Advisory, 0, len(guidelines)+4*len(crops)+2)
	for _, g := range guidelines {
		advisories = append(advisories, guidelineAdvisory(g, vars, translate))
	}

	if len(crops) == 0 {
		advisories = append([]entities.Advisory{setupAdvisory(translate)}, advisories...)
	}

	for _, crop := range crops {
		advisories = append(advisories, s.cropAdvisories(farm, crop, weather, recentRain, tempMax)...)
	}

	// One climate alert per synthesis rather than one per crop.
	if len(crops) > 0 && tempMax >= highTempThresholdC {
		advisories = append(advisories, entities.Advisory{
			ID:       "temp-high",
			Type:     entities.AdvisoryClimate,
			Title:    "High temperature alert",
			Detail:   fmt.Sprintf("Current temperature: %s°C. Monitor for heat stress. Increase irrigation frequency.", formatNum(tempMax)),
			Priority: entities.PriorityMedium,
		})
	}

	var marketSuggestions []entities.RankedMarket
	if farm.Location.Valid() && !farm.Location.IsUnset() {
		marketSuggestions = s.markets.FindNearbyMarkets(ctx, farm.Location, marketRadiusKm, crops)
		if len(marketSuggestions) > marketLimit {
			marketSuggestions = marketSuggestions[:marketLimit]
		}
		log.Printf("[advisory] found %d markets for farm %s", len(marketSuggestions), farmID)
	}

	advisoriesGenerated.Add(float64(len(advisories)))

	payload = &Payload{
		FarmID:       farm.ID,
		GeneratedAt:  s.now().UTC(),
		Advisories:   advisories,
		Markets:      marketSuggestions,
		FarmLocation: farm.Location,
	}
	if opts.Debug {
		payload.Debug = &DebugInfo{
			Guidelines:  guidelines,
			Weather:     weather,
			ClimateZone: ClimateZone(farm.Location.Lat),
			Season:      SeasonAt(farm.Location.Lat, s.now()),
		}
	}

	s.notify(payload, opts.Language)
	if s.recorder != nil {
		s.recorder.RecordSynthesis(ctx, farm.ID, len(advisories), len(marketSuggestions), weather)
	}
	return payload, nil
}

// guidelinesFor prefers stored active guidelines and generates fresh ones
// only when none are linked yet.
func (s *Synthesizer) guidelinesFor(ctx context.Context, farm *entities.Farm) []entities.Guideline {
	stored, err := s.stored.ActiveGuidelines(ctx, farm.ID)
	if err != nil {
		log.Printf("[advisory] stored guideline lookup failed for farm %s: %v", farm.ID, err)
	}
	if len(stored) > 0 {
		return stored
	}
	return s.matcher.GenerateGuidelines(ctx, farm)
}

func (s *Synthesizer) notify(p *Payload, lang string) {
	if s.publisher == nil {
		return
	}
	evt := messages.AdvisoryGeneratedEvent{
		FarmID:        p.FarmID,
		GeneratedAt:   p.GeneratedAt,
		AdvisoryCount: len(p.Advisories),
		MarketCount:   len(p.Markets),
		Language:      lang,
	}
	topic := strings.ReplaceAll(s.topicTmpl, "{farm}", p.FarmID)
	if err := s.publisher.PublishMessage(topic, evt); err != nil {
		log.Printf("[advisory] event publish failed for farm %s: %v", p.FarmID, err)
	}
}

// cropAdvisories applies the per-crop rule set against the region×crop fact.
// Without a fact only the coarse weather rule applies.
func (s *Synthesizer) cropAdvisories(farm *entities.Farm, crop string, weather *entities.WeatherSnapshot, recentRain, tempMax float64) []entities.Advisory {
	fact := s.resolver.GetRecommendations(farm.Region, crop)
	if fact == nil {
		return coarseWeatherAdvisory(crop, recentRain, tempMax)
	}

	var out []entities.Advisory

	if fact.HasNPK() {
		doses := fact.FertilizerSummary()
		timing := fact.SplitTiming
		if timing == "" {
			timing = "Apply as needed"
		}
		method := fact.ApplicationMethod
		if method == "" {
			method = "Follow standard practices"
		}
		out = append(out, entities.Advisory{
			ID:       "fertilizer-" + slug(crop),
			Type:     entities.AdvisoryFertilizer,
			Crop:     crop,
			Title:    "Fertilizer plan for " + crop,
			Detail:   strings.TrimSpace(fmt.Sprintf("Recommended: %s. %s", doses, fact.SplitTiming)),
			Priority: entities.PriorityHigh,
			RecommendedInputs: []entities.RecommendedInput{{
				Name:   "NPK Fertilizer for " + crop,
				Amount: doses,
				Timing: timing,
				Method: method,
			}},
		})
	}

	if fact.CommonPests != "" {
		control := fact.PestControlMethods
		if control == "" {
			control = "Monitor regularly"
		}
		out = append(out, entities.Advisory{
			ID:       "pest-" + slug(crop),
			Type:     entities.AdvisoryPestControl,
			Crop:     crop,
			Title:    "Pest watch for " + crop,
			Detail:   fmt.Sprintf("Common pests in %s: %s. %s", farm.Region, fact.CommonPests, control),
			Priority: entities.PriorityMedium,
		})
	}

	if fact.CommonDiseases != "" {
		treatment := fact.EasyTreatments
		if treatment == "" {
			treatment = "Practice good field hygiene"
		}
		out = append(out, entities.Advisory{
			ID:       "disease-" + slug(crop),
			Type:     entities.AdvisoryDiseaseManagement,
			Crop:     crop,
			Title:    "Disease prevention for " + crop,
			Detail:   fmt.Sprintf("Watch for: %s. %s", fact.CommonDiseases, treatment),
			Priority: entities.PriorityMedium,
		})
	}

	if fact.RainfallRequirement != "" && weather != nil {
		if a := rainfallAdvisory(crop, fact.RainfallRequirement, recentRain); a != nil {
			out = append(out, *a)
		}
	}

	if fact.AdaptationNotes != "" && farm.NormalizedSoilType() != "" {
		out = append(out, entities.Advisory{
			ID:       "soil-" + slug(crop),
			Type:     entities.AdvisorySoilManagement,
			Crop:     crop,
			Title:    "Soil management for " + crop,
			Detail:   fact.AdaptationNotes,
			Priority: entities.PriorityLow,
		})
	}

	return out
}

// rainfallAdvisory compares recent rainfall against the crop's seasonal
// requirement range. The 10% and 15% factors are a rough conversion of a
// seasonal total to a recent-rain scale.
func rainfallAdvisory(crop, requirement string, recentRain float64) *entities.Advisory {
	m := rainfallRange.FindStringSubmatch(requirement)
	if m == nil {
		return nil
	}
	minRain, _ := strconv.ParseFloat(m[1], 64)
	maxRain, _ := strconv.ParseFloat(m[2], 64)

	switch {
	case recentRain < minRain*0.1:
		return &entities.Advisory{
			ID:       "water-low-" + slug(crop),
			Type:     entities.AdvisoryWatering,
			Crop:     crop,
			Title:    "Increase watering for " + crop,
			Detail:   fmt.Sprintf("%s needs %s. Recent rainfall: %smm. Consider irrigation.", crop, requirement, formatNum(recentRain)),
			Priority: entities.PriorityHigh,
		}
	case recentRain > maxRain*0.15:
		return &entities.Advisory{
			ID:       "water-high-" + slug(crop),
			Type:     entities.AdvisoryWatering,
			Crop:     crop,
			Title:    "Reduce watering for " + crop,
			Detail:   fmt.Sprintf("Recent rainfall of %smm is sufficient for %s. %s", formatNum(recentRain), crop, requirement),
			Priority: entities.PriorityLow,
		}
	default:
		return nil
	}
}

// coarseWeatherAdvisory is the rule applied when no region×crop fact exists.
func coarseWeatherAdvisory(crop string, recentRain, tempMax float64) []entities.Advisory {
	switch {
	case recentRain >= 20:
		return []entities.Advisory{{
			ID:       "water-" + slug(crop),
			Type:     entities.AdvisoryWatering,
			Crop:     crop,
			Title:    "Reduce watering for " + crop,
			Detail:   fmt.Sprintf("Recent rainfall of %smm suggests reducing irrigation for %s.", formatNum(recentRain), crop),
			Priority: entities.PriorityLow,
		}}
	case tempMax >= highTempThresholdC:
		return []entities.Advisory{{
			ID:       "water-" + slug(crop),
			Type:     entities.AdvisoryWatering,
			Crop:     crop,
			Title:    "Increase watering for " + crop,
			Detail:   fmt.Sprintf("High temperature (%s°C) may require more frequent irrigation for %s.", formatNum(tempMax), crop),
			Priority: entities.PriorityMedium,
		}}
	default:
		return nil
	}
}

func guidelineAdvisory(g entities.Guideline, vars map[string]string, translate func(string) string) entities.Advisory {
	typ := entities.AdvisoryType(g.Type)
	if g.Type == "" {
		typ = entities.AdvisoryGuideline
	}
	title := Sanitize(Interpolate(g.Title, vars))
	if title == "" {
		title = translate("Guideline")
	}
	inputs := make([]entities.RecommendedInput, 0, len(g.Recommendations))
	for _, r := range g.Recommendations {
		inputs = append(inputs, entities.RecommendedInput{Name: Sanitize(Interpolate(r, vars))})
	}
	return entities.Advisory{
		ID:                "guide-" + g.ID,
		Type:              typ,
		Title:             title,
		Detail:            Sanitize(Interpolate(g.Content, vars)),
		Priority:          entities.NormalizePriority(g.Priority),
		RecommendedInputs: inputs,
	}
}

func setupAdvisory(translate func(string) string) entities.Advisory {
	return entities.Advisory{
		ID:       "setup-crops",
		Type:     entities.AdvisorySetup,
		Title:    translate("Add Crops to Your Farm"),
		Detail:   translate("To get personalized fertilizer, pest, and disease recommendations, please add the crops you are growing to your farm profile."),
		Priority: entities.PriorityHigh,
	}
}

var frenchMessages = map[string]string{
	"Add Crops to Your Farm": "Ajoutez des cultures à votre ferme",
	"To get personalized fertilizer, pest, and disease recommendations, please add the crops you are growing to your farm profile.": "Pour obtenir des recommandations personnalisées sur les engrais, les ravageurs et les maladies, veuillez ajouter les cultures à votre profil agricole.",
	"Guideline": "Recommandation",
}

func translator(lang string) func(string) string {
	if lang != "fr" {
		return func(s string) string { return s }
	}
	return func(s string) string {
		if t, ok := frenchMessages[s]; ok {
			return t
		}
		return s
	}
}

// weatherDefaults mirrors the historical behavior: without a snapshot the
// engine assumes hot and dry conditions (0 mm, 30 °C).
func weatherDefaults(w *entities.WeatherSnapshot) (recentRain, tempMax float64) {
	if w == nil {
		return 0, highTempThresholdC
	}
	return w.RecentRainMM, w.TempMax
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
