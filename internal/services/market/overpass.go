package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

// OverpassClient discovers marketplaces and farm shops from OpenStreetMap
// through the Overpass API. It is a best-effort enrichment source: every
// failure surfaces as an error the aggregator degrades to an empty result.
type OverpassClient struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// NewOverpassClient builds the client with a hard request timeout and a
// circuit breaker. Reference behavior used 30–45s: the Overpass query embeds
// a 30s server-side timeout, the HTTP client enforces the caller timeout.
func NewOverpassClient(apiURL string, timeout time.Duration) *OverpassClient {
	if apiURL == "" {
		apiURL = DefaultOverpassURL
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OverpassClient{
		url:    apiURL,
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "overpass",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

type overpassElement struct {
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResp struct {
	Elements []overpassElement `json:"elements"`
}

// QueryMarketsNear returns OSM markets within radiusKm of center.
func (c *OverpassClient) QueryMarketsNear(ctx context.Context, center entities.Coordinate, radiusKm float64) ([]entities.Market, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.query(ctx, center, radiusKm)
	})
	if err != nil {
		return nil, err
	}
	return res.([]entities.Market), nil
}

func (c *OverpassClient) query(ctx context.Context, center entities.Coordinate, radiusKm float64) ([]entities.Market, error) {
	radiusM := int(radiusKm * 1000)
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusM, center.Lat, center.Lng)
	query := fmt.Sprintf(`[out:json][timeout:30];
(
  node["amenity"="marketplace"]%[1]s;
  way["amenity"="marketplace"]%[1]s;
  node["shop"="supermarket"]%[1]s;
  node["shop"="farm"]%[1]s;
  node["shop"="greengrocer"]%[1]s;
  node["shop"="general"]%[1]s;
);
out center;`, around)

	body := strings.NewReader("data=" + url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("overpass status %d", resp.StatusCode)
	}

	var out overpassResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	markets := make([]entities.Market, 0, len(out.Elements))
	for _, el := range out.Elements {
		if el.Tags == nil {
			continue
		}
		lat, lng := el.Lat, el.Lon
		if lat == 0 && lng == 0 && el.Center != nil {
			lat, lng = el.Center.Lat, el.Center.Lon
		}
		if lat == 0 && lng == 0 {
			continue
		}

		marketType := marketTypeFromTags(el.Tags)
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["name:en"]
		}
		if name == "" {
			name = marketType
		}

		markets = append(markets, entities.Market{
			ID:           fmt.Sprintf("osm-%d", el.ID),
			Name:         name,
			Description:  "Discovered via OpenStreetMap - " + marketType,
			Location:     entities.Coordinate{Lat: lat, Lng: lng},
			Address:      addressFromTags(el.Tags),
			MarketDays:   marketDaysFromTags(el.Tags),
			MarketType:   marketType,
			ContactPhone: firstTag(el.Tags, "phone", "contact:phone"),
			ContactEmail: firstTag(el.Tags, "email", "contact:email"),
			Website:      el.Tags["website"],
			Source:       entities.MarketSourceExternal,
			Verified:     false,
		})
	}
	return markets, nil
}

func marketTypeFromTags(tags map[string]string) string {
	switch {
	case tags["amenity"] == "marketplace":
		return "Traditional Market"
	case tags["shop"] == "supermarket":
		return "Supermarket"
	case tags["shop"] == "farm":
		return "Farm Shop"
	case tags["shop"] == "greengrocer":
		return "Greengrocer"
	case tags["shop"] == "general":
		return "General Store"
	default:
		return "Market"
	}
}

func addressFromTags(tags map[string]string) string {
	parts := make([]string, 0, 4)
	for _, keys := range [][]string{
		{"addr:street"},
		{"addr:city", "addr:town", "addr:village"},
		{"addr:state", "addr:province"},
		{"addr:country"},
	} {
		if v := firstTag(tags, keys...); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func marketDaysFromTags(tags map[string]string) []string {
	var days []string
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		if tags["market:"+day] == "yes" || tags[day] == "yes" {
			days = append(days, strings.ToUpper(day[:1])+day[1:])
		}
	}
	return days
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}
