// Package weather fetches the per-request weather snapshot from the
// OpenWeather One Call API. The provider is best-effort: callers treat a
// failure as "no weather", never as a fatal error.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

type owmCurrent struct {
	Temp    float64 `json:"temp"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmDaily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Rain float64 `json:"rain"`
}

type owmResp struct {
	Current owmCurrent `json:"current"`
	Daily   []owmDaily `json:"daily"`
}

type OWMClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewOWMClient builds a provider with a client-side timeout and a circuit
// breaker so a flapping upstream stops being queried for a while.
func NewOWMClient(key string, timeout time.Duration) *OWMClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OWMClient{
		apiKey:  key,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openweather",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// GetWeather returns the current snapshot for a coordinate.
func (c *OWMClient) GetWeather(ctx context.Context, coord entities.Coordinate) (*entities.WeatherSnapshot, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing api key")
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, coord.Lat, coord.Lng)
	})
	if err != nil {
		return nil, err
	}
	return res.(*entities.WeatherSnapshot), nil
}

func (c *OWMClient) fetch(ctx context.Context, lat, lng float64) (*entities.WeatherSnapshot, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&exclude=minutely,hourly,alerts&units=metric&appid=%s",
		c.baseURL, lat, lng, c.apiKey)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("owm status %d: %s", resp.StatusCode, string(b))
	}

	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Daily) == 0 {
		return nil, fmt.Errorf("no daily data")
	}

	// Today's entry is the one closest to now among the returned days.
	target := time.Now().UTC().Truncate(24 * time.Hour)
	chosen := out.Daily[0]
	minDelta := time.Duration(1<<63 - 1)
	for _, d := range out.Daily {
		t := time.Unix(d.Dt, 0).UTC().Truncate(24 * time.Hour)
		delta := target.Sub(t)
		if delta < 0 {
			delta = -delta
		}
		if delta < minDelta {
			minDelta = delta
			chosen = d
		}
	}

	snap := &entities.WeatherSnapshot{
		TempCurrent:  out.Current.Temp,
		TempMax:      chosen.Temp.Max,
		RecentRainMM: chosen.Rain,
	}
	if len(out.Current.Weather) > 0 {
		snap.Description = out.Current.Weather[0].Description
	}
	return snap, nil
}
