package advisory

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

// InfluxConfig configures the synthesis observation sink.
type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// InfluxRecorder writes one point per synthesis so advisory volume and the
// weather it was based on can be charted over time. Write failures are
// logged and dropped; recording never blocks a response.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxRecorder(cfg InfluxConfig) (*InfluxRecorder, error) {
	if cfg.InfluxURL == "" || cfg.InfluxToken == "" || cfg.InfluxOrg == "" || cfg.InfluxBucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
	}, nil
}

func (r *InfluxRecorder) RecordSynthesis(ctx context.Context, farmID string, advisoryCount, marketCount int, weather *entities.WeatherSnapshot) {
	tags := map[string]string{"farm_id": farmID}
	fields := map[string]interface{}{
		"advisory_count": advisoryCount,
		"market_count":   marketCount,
	}
	if weather != nil {
		fields["temp_max"] = weather.TempMax
		fields["recent_rain_mm"] = weather.RecentRainMM
	}

	point := influxdb2.NewPoint("advisory_synthesis", tags, fields, time.Now())
	if err := r.writeAPI.WritePoint(ctx, point); err != nil {
		log.Printf("[advisory] influx write error for farm %s: %v", farmID, err)
	}
}

func (r *InfluxRecorder) Close() {
	r.client.Close()
}
