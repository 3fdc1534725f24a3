package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

type fakeFarms struct {
	farm *entities.Farm
	err  error
}

func (f *fakeFarms) GetFarmByID(_ context.Context, id string) (*entities.Farm, error) {
	if f.farm != nil && f.farm.ID != id {
		return nil, nil
	}
	return f.farm, f.err
}

type fakeGuidelineStore struct {
	guidelines []entities.Guideline
	err        error
}

func (f *fakeGuidelineStore) ActiveGuidelines(_ context.Context, _ string) ([]entities.Guideline, error) {
	return f.guidelines, f.err
}

type fakeGenerator struct {
	guidelines []entities.Guideline
	calls      int
}

func (f *fakeGenerator) GenerateGuidelines(_ context.Context, _ *entities.Farm) []entities.Guideline {
	f.calls++
	return f.guidelines
}

type fakeMarkets struct {
	markets    []entities.RankedMarket
	lastRadius float64
	lastCrops  []string
	calls      int
}

func (f *fakeMarkets) FindNearbyMarkets(_ context.Context, _ entities.Coordinate, radiusKm float64, cropFilter []string) []entities.RankedMarket {
	f.calls++
	f.lastRadius = radiusKm
	f.lastCrops = cropFilter
	return f.markets
}

type fakePublisher struct {
	topics   []string
	messages []interface{}
}

func (f *fakePublisher) PublishMessage(topic string, message interface{}) error {
	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, message)
	return nil
}
func (f *fakePublisher) Close() {}

func maizeFact() *entities.AgronomicFact {
	return &entities.AgronomicFact{
		Region:              "Centre",
		Crop:                "Maize",
		NKgPerHa:            fptr(120),
		P2O5KgPerHa:         fptr(60),
		SplitTiming:         "Split at planting and 4 weeks",
		CommonPests:         "Stem borers",
		CommonDiseases:      "Maize streak virus",
		RainfallRequirement: "400–800 mm/season",
		AdaptationNotes:     "Tolerates clay with good drainage",
	}
}

func newTestSynthesizer(farms FarmStore, stored GuidelineStore, gen GuidelineGenerator, resolver FactResolver, markets MarketFinder, w WeatherProvider) *Synthesizer {
	s := NewSynthesizer(farms, stored, gen, resolver, markets, w)
	s.now = func() time.Time { return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func advisoryTypes(as []entities.Advisory) map[entities.AdvisoryType]int {
	out := map[entities.AdvisoryType]int{}
	for _, a := range as {
		out[a.Type]++
	}
	return out
}

func TestGenerateSuggestionsFullScenario(t *testing.T) {
	farm := testFarm() // Yaoundé, Maize, clay soil
	markets := &fakeMarkets{markets: []entities.RankedMarket{
		{Market: entities.Market{ID: "m1", Name: "Mfoundi Market"}, DistanceKm: 2.1},
	}}
	resolver := &fakeFactResolver{facts: map[string]*entities.AgronomicFact{"Maize": maizeFact()}}
	gen := &fakeGenerator{guidelines: []entities.Guideline{
		{ID: "g1", Title: "Care for {{crop}}", Content: "General care in ${region}", Priority: "high"},
	}}
	weather := &fakeWeather{snapshot: &entities.WeatherSnapshot{TempCurrent: 29, TempMax: 32, RecentRainMM: 5}}

	s := newTestSynthesizer(&fakeFarms{farm: farm}, &fakeGuidelineStore{}, gen, resolver, markets, weather)

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "farm-1", p.FarmID)
	assert.Equal(t, farm.Location, p.FarmLocation)

	types := advisoryTypes(p.Advisories)
	assert.Equal(t, 1, types[entities.AdvisoryGuideline])
	assert.Equal(t, 1, types[entities.AdvisoryFertilizer])
	assert.Equal(t, 1, types[entities.AdvisoryPestControl])
	assert.Equal(t, 1, types[entities.AdvisoryDiseaseManagement])
	assert.Equal(t, 1, types[entities.AdvisoryWatering], "5mm is below 10%% of the 400mm minimum")
	assert.Equal(t, 1, types[entities.AdvisoryClimate], "32°C max triggers exactly one alert")
	assert.Equal(t, 1, types[entities.AdvisorySoilManagement])
	assert.Zero(t, types[entities.AdvisorySetup])

	for _, a := range p.Advisories {
		switch a.Type {
		case entities.AdvisoryGuideline:
			assert.Equal(t, "Care for Maize", a.Title)
			assert.Equal(t, "General care in Centre", a.Detail)
			assert.Equal(t, entities.PriorityHigh, a.Priority)
		case entities.AdvisoryFertilizer:
			assert.Equal(t, entities.PriorityHigh, a.Priority)
			require.Len(t, a.RecommendedInputs, 1)
			assert.Contains(t, a.RecommendedInputs[0].Amount, "N: 120 kg/ha")
		case entities.AdvisoryWatering:
			assert.Contains(t, a.Title, "Increase watering")
			assert.Equal(t, entities.PriorityHigh, a.Priority)
		}
	}

	require.Len(t, p.Markets, 1)
	assert.Equal(t, float64(100), markets.lastRadius)
	assert.Equal(t, []string{"Maize"}, markets.lastCrops)
	assert.Nil(t, p.Debug)
}

func TestGenerateSuggestionsFarmNotFound(t *testing.T) {
	s := newTestSynthesizer(&fakeFarms{}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{})

	p, err := s.GenerateSuggestions(context.Background(), "nope", Options{})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrFarmNotFound)
}

func TestGenerateSuggestionsFarmStoreError(t *testing.T) {
	s := newTestSynthesizer(&fakeFarms{err: errors.New("db closed")}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{})

	_, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFarmNotFound)
}

func TestGenerateSuggestionsNoCropsFrench(t *testing.T) {
	farm := testFarm()
	farm.Crops = nil
	s := newTestSynthesizer(&fakeFarms{farm: farm}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{err: errors.New("down")})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{Language: "fr"})
	require.NoError(t, err)

	require.NotEmpty(t, p.Advisories)
	first := p.Advisories[0]
	assert.Equal(t, entities.AdvisorySetup, first.Type)
	assert.Equal(t, "Ajoutez des cultures à votre ferme", first.Title)
	assert.Equal(t, entities.PriorityHigh, first.Priority)

	// No crops means no climate alert and no per-crop rules.
	types := advisoryTypes(p.Advisories)
	assert.Zero(t, types[entities.AdvisoryClimate])
}

func TestGenerateSuggestionsPrefersStoredGuidelines(t *testing.T) {
	stored := &fakeGuidelineStore{guidelines: []entities.Guideline{
		{ID: "s1", Title: "Stored undefined", Priority: "normal"},
	}}
	gen := &fakeGenerator{guidelines: []entities.Guideline{{ID: "fresh", Title: "Fresh"}}}
	s := newTestSynthesizer(&fakeFarms{farm: testFarm()}, stored, gen, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.NoError(t, err)

	assert.Zero(t, gen.calls, "generation skipped when active guidelines exist")
	var guide *entities.Advisory
	for i := range p.Advisories {
		if p.Advisories[i].ID == "guide-s1" {
			guide = &p.Advisories[i]
		}
	}
	require.NotNil(t, guide)
	assert.Equal(t, "Stored", guide.Title, "literal undefined is stripped")
	assert.Equal(t, entities.PriorityMedium, guide.Priority, "legacy normal maps to medium")
}

func TestGenerateSuggestionsMarketLimit(t *testing.T) {
	many := make([]entities.RankedMarket, 14)
	for i := range many {
		many[i] = entities.RankedMarket{Market: entities.Market{ID: string(rune('a' + i))}, DistanceKm: float64(i)}
	}
	s := newTestSynthesizer(&fakeFarms{farm: testFarm()}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{markets: many}, &fakeWeather{})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.NoError(t, err)
	assert.Len(t, p.Markets, 10)
}

func TestGenerateSuggestionsUnsetLocationSkipsMarkets(t *testing.T) {
	farm := testFarm()
	farm.Location = entities.Coordinate{}
	markets := &fakeMarkets{}
	s := newTestSynthesizer(&fakeFarms{farm: farm}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, markets, &fakeWeather{})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.NoError(t, err)
	assert.Zero(t, markets.calls)
	assert.Empty(t, p.Markets)
}

func TestGenerateSuggestionsWeatherDownDefaults(t *testing.T) {
	// Without a snapshot the engine assumes 0mm / 30°C, so the climate
	// alert and the coarse watering rule still fire.
	s := newTestSynthesizer(&fakeFarms{farm: testFarm()}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{err: errors.New("down")})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{})
	require.NoError(t, err)

	types := advisoryTypes(p.Advisories)
	assert.Equal(t, 1, types[entities.AdvisoryClimate])
	assert.Equal(t, 1, types[entities.AdvisoryWatering], "no fact for Maize, coarse rule applies")
}

func TestGenerateSuggestionsPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestSynthesizer(&fakeFarms{farm: testFarm()}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{}).
		WithPublisher(pub, "event/advisoryGenerated/{farm}")

	_, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{Language: "en"})
	require.NoError(t, err)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "event/advisoryGenerated/farm-1", pub.topics[0])
}

func TestGenerateSuggestionsDebugPayload(t *testing.T) {
	gen := &fakeGenerator{guidelines: []entities.Guideline{{ID: "g1", Title: "T"}}}
	s := newTestSynthesizer(&fakeFarms{farm: testFarm()}, &fakeGuidelineStore{}, gen, &fakeFactResolver{}, &fakeMarkets{}, &fakeWeather{snapshot: &entities.WeatherSnapshot{TempMax: 25}})

	p, err := s.GenerateSuggestions(context.Background(), "farm-1", Options{Debug: true})
	require.NoError(t, err)

	require.NotNil(t, p.Debug)
	assert.Len(t, p.Debug.Guidelines, 1)
	assert.Equal(t, "tropical", p.Debug.ClimateZone)
	assert.Equal(t, "summer", p.Debug.Season)
}

func TestRainfallAdvisory(t *testing.T) {
	low := rainfallAdvisory("Maize", "400–800 mm/season", 10)
	require.NotNil(t, low)
	assert.Contains(t, low.Title, "Increase")

	high := rainfallAdvisory("Maize", "400-800 mm/season", 130)
	require.NotNil(t, high)
	assert.Contains(t, high.Title, "Reduce")

	assert.Nil(t, rainfallAdvisory("Maize", "400–800 mm/season", 60), "within band")
	assert.Nil(t, rainfallAdvisory("Maize", "well drained soils", 5), "no numeric range")
}
