package advisory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

func newTestMux(farms *fakeFarms, markets *fakeMarkets, resolver *fakeFactResolver) *http.ServeMux {
	syn := newTestSynthesizer(farms, &fakeGuidelineStore{}, &fakeGenerator{}, resolver, markets, &fakeWeather{})
	return NewHTTPMux(syn, markets, resolver)
}

func TestSuggestionsEndpoint(t *testing.T) {
	mux := newTestMux(&fakeFarms{farm: testFarm()}, &fakeMarkets{}, &fakeFactResolver{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggestions?farm_id=farm-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var p Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "farm-1", p.FarmID)
	assert.NotEmpty(t, p.Advisories)
}

func TestSuggestionsFarmNotFound(t *testing.T) {
	mux := newTestMux(&fakeFarms{}, &fakeMarkets{}, &fakeFactResolver{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggestions?farm_id=ghost", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Farm not found", body["error"])
}

func TestSuggestionsMissingFarmID(t *testing.T) {
	mux := newTestMux(&fakeFarms{}, &fakeMarkets{}, &fakeFactResolver{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggestions", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketsNearbyEndpoint(t *testing.T) {
	markets := &fakeMarkets{markets: []entities.RankedMarket{
		{Market: entities.Market{ID: "m1", Name: "Central"}, DistanceKm: 3},
	}}
	mux := newTestMux(&fakeFarms{}, markets, &fakeFactResolver{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/markets/nearby?lat=3.87&lng=11.52&radius_km=25&crops=Maize,%20Cassava", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Markets []entities.RankedMarket `json:"markets"`
		Count   int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, float64(25), markets.lastRadius)
	assert.Equal(t, []string{"Maize", "Cassava"}, markets.lastCrops)
}

func TestMarketsNearbyValidation(t *testing.T) {
	mux := newTestMux(&fakeFarms{}, &fakeMarkets{}, &fakeFactResolver{})

	for _, path := range []string{
		"/markets/nearby",
		"/markets/nearby?lat=abc&lng=11.5",
		"/markets/nearby?lat=3.8&lng=11.5&radius_km=-2",
		"/markets/nearby?lat=95&lng=11.5",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestRecommendationsEndpoint(t *testing.T) {
	resolver := &fakeFactResolver{facts: map[string]*entities.AgronomicFact{"Maize": maizeFact()}}
	mux := newTestMux(&fakeFarms{}, &fakeMarkets{}, resolver)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations?region=Centre&crop=Maize", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var fact entities.AgronomicFact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fact))
	assert.Equal(t, "Maize", fact.Crop)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations?region=Centre&crop=Quinoa", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type flushableMarkets struct {
	fakeMarkets
	flushes int
}

func (f *flushableMarkets) Flush() { f.flushes++ }

func TestMarketsCacheFlush(t *testing.T) {
	markets := &flushableMarkets{}
	syn := newTestSynthesizer(&fakeFarms{}, &fakeGuidelineStore{}, &fakeGenerator{}, &fakeFactResolver{}, markets, &fakeWeather{})
	mux := NewHTTPMux(syn, markets, &fakeFactResolver{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/markets/cache/flush", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, markets.flushes)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/markets/cache/flush", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(&fakeFarms{}, &fakeMarkets{}, &fakeFactResolver{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
