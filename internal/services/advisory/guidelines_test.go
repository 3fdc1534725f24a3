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

type fakeTemplates struct {
	strict    []entities.GuidanceTemplate
	strictErr error
	relaxed   []entities.GuidanceTemplate
	upserts   [][2]string
}

func (f *fakeTemplates) FindTemplatesMatching(_ context.Context, _ entities.TemplateCriteria) ([]entities.GuidanceTemplate, error) {
	return f.strict, f.strictErr
}
func (f *fakeTemplates) FindRelaxedTemplates(_ context.Context, _ int) ([]entities.GuidanceTemplate, error) {
	return f.relaxed, nil
}
func (f *fakeTemplates) UpsertFarmGuideline(_ context.Context, farmID, templateID string) error {
	f.upserts = append(f.upserts, [2]string{farmID, templateID})
	return nil
}

type fakeWeather struct {
	snapshot *entities.WeatherSnapshot
	err      error
}

func (f *fakeWeather) GetWeather(_ context.Context, _ entities.Coordinate) (*entities.WeatherSnapshot, error) {
	return f.snapshot, f.err
}

type fakeFactResolver struct {
	facts map[string]*entities.AgronomicFact // keyed by crop
}

func (f *fakeFactResolver) GetRecommendations(_, crop string) *entities.AgronomicFact {
	return f.facts[crop]
}

func fptr(v float64) *float64 { return &v }

func testFarm() *entities.Farm {
	return &entities.Farm{
		ID:       "farm-1",
		Region:   "Centre",
		SoilType: "Clay",
		Location: entities.Coordinate{Lat: 3.87, Lng: 11.52}, // Yaoundé
		Crops:    []entities.CropRef{{ID: "c1", Name: "Maize"}},
	}
}

func newTestMatcher(ts *fakeTemplates, w *fakeWeather, r FactResolver) *Matcher {
	m := NewMatcher(ts, w, r)
	m.now = func() time.Time { return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestGenerateGuidelinesStrictMatch(t *testing.T) {
	ts := &fakeTemplates{strict: []entities.GuidanceTemplate{
		{ID: "t1", Title: "Clay soil prep", Content: "Loosen before planting", Priority: "medium", Recommendations: []string{"Add compost"}},
	}}
	m := newTestMatcher(ts, &fakeWeather{snapshot: &entities.WeatherSnapshot{TempCurrent: 27}}, &fakeFactResolver{})

	got := m.GenerateGuidelines(context.Background(), testFarm())

	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "guideline", got[0].Type, "empty template type defaults")
	assert.Equal(t, [][2]string{{"farm-1", "t1"}}, ts.upserts)
}

func TestGenerateGuidelinesConditionFilterFallsBackToRelaxed(t *testing.T) {
	// Strict candidate requires at least 35 °C; the weather says 27.
	ts := &fakeTemplates{
		strict: []entities.GuidanceTemplate{{
			ID: "hot", Title: "Heat protocol",
			Conditions: &entities.TemplateConditions{TemperatureC: &entities.TemperatureRange{Min: fptr(35)}},
		}},
		relaxed: []entities.GuidanceTemplate{{ID: "gen", Title: "General care", Type: "general"}},
	}
	m := newTestMatcher(ts, &fakeWeather{snapshot: &entities.WeatherSnapshot{TempCurrent: 27}}, &fakeFactResolver{})

	got := m.GenerateGuidelines(context.Background(), testFarm())

	require.Len(t, got, 1)
	assert.Equal(t, "gen", got[0].ID)
}

func TestGenerateGuidelinesSyntheticFallback(t *testing.T) {
	m := newTestMatcher(&fakeTemplates{}, &fakeWeather{err: errors.New("down")}, &fakeFactResolver{})

	got := m.GenerateGuidelines(context.Background(), testFarm())

	require.Len(t, got, 1)
	assert.Equal(t, "fallback-farm-1", got[0].ID)
	assert.Contains(t, got[0].Title, "Centre")
	assert.Equal(t, "low", got[0].Priority)
	// July in the northern tropics is summer.
	assert.Contains(t, got[0].Content, "irrigation")
}

func TestGenerateGuidelinesNeverEmptyOnStoreFailure(t *testing.T) {
	ts := &fakeTemplates{strictErr: errors.New("db locked")}
	m := newTestMatcher(ts, &fakeWeather{}, &fakeFactResolver{})

	got := m.GenerateGuidelines(context.Background(), testFarm())
	require.NotEmpty(t, got)
}

func TestGenerateGuidelinesCropEnrichment(t *testing.T) {
	ts := &fakeTemplates{strict: []entities.GuidanceTemplate{{ID: "t1", Title: "T"}}}
	resolver := &fakeFactResolver{facts: map[string]*entities.AgronomicFact{
		"Maize": {
			Region: "Centre", Crop: "Maize",
			NKgPerHa:    fptr(120),
			CommonPests: "Stem borers",
		},
	}}
	m := newTestMatcher(ts, &fakeWeather{}, resolver)

	got := m.GenerateGuidelines(context.Background(), testFarm())

	require.Len(t, got, 1)
	require.Len(t, got[0].Recommendations, 1)
	assert.Contains(t, got[0].Recommendations[0], "Crop Maize")
	assert.Contains(t, got[0].Recommendations[0], "Pests: Stem borers")
}

func TestFilterByConditions(t *testing.T) {
	now := time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC) // northern summer
	weather := &entities.WeatherSnapshot{TempCurrent: 28, RecentRainMM: 10}

	templates := []entities.GuidanceTemplate{
		{ID: "no-conditions"},
		{ID: "temp-ok", Conditions: &entities.TemplateConditions{TemperatureC: &entities.TemperatureRange{Min: fptr(20), Max: fptr(35)}}},
		{ID: "temp-too-cold", Conditions: &entities.TemplateConditions{TemperatureC: &entities.TemperatureRange{Min: fptr(30)}}},
		{ID: "rain-close", Conditions: &entities.TemplateConditions{RainfallMM: fptr(25)}},  // |10-25| <= 20
		{ID: "rain-far", Conditions: &entities.TemplateConditions{RainfallMM: fptr(80)}},    // |10-80| > 20
		{ID: "season-match", Conditions: &entities.TemplateConditions{Seasons: []string{"Summer"}}},
		{ID: "season-miss", Conditions: &entities.TemplateConditions{Seasons: []string{"winter"}}},
	}

	got := filterByConditions(templates, weather, 3.87, now)

	ids := make([]string, 0, len(got))
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"no-conditions", "temp-ok", "rain-close", "season-match"}, ids)
}

func TestFilterByConditionsWithoutWeatherKeepsAll(t *testing.T) {
	templates := []entities.GuidanceTemplate{
		{ID: "a", Conditions: &entities.TemplateConditions{RainfallMM: fptr(500)}},
		{ID: "b"},
	}
	got := filterByConditions(templates, nil, 3.87, time.Now())
	assert.Len(t, got, 2)
}
