package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	advisorypkg "github.com/mbodji-lab/farm-advisory/internal/services/advisory"
	"github.com/mbodji-lab/farm-advisory/internal/repository"
	"github.com/mbodji-lab/farm-advisory/internal/services/market"
	"github.com/mbodji-lab/farm-advisory/internal/services/refdata"
	"github.com/mbodji-lab/farm-advisory/internal/services/weather"
	"github.com/mbodji-lab/farm-advisory/pkg/rabbitmq"
	"github.com/mbodji-lab/farm-advisory/pkg/ttlcache"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	dbPath := env("DB_PATH", "advisory.db")
	store, err := repository.NewStore(dbPath)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer store.Close()

	// --- Agronomic reference data ---
	dataDir := env("DATA_DIR", "data")
	full, summary, err := refdata.LoadDataset(
		dataDir+"/region_crop_full.json",
		dataDir+"/region_crop_summary.json",
	)
	if err != nil {
		log.Fatalf("reference data load failed: %v", err)
	}
	resolver := refdata.NewResolver(full, summary)
	log.Printf("advisory: loaded %d full and %d summary fact rows", len(full), len(summary))

	// --- Weather ---
	owmKey := env("OPENWEATHER_API_KEY", "")
	owmTimeout := time.Duration(envInt("OPENWEATHER_TIMEOUT_MS", 10000)) * time.Millisecond
	owm := weather.NewOWMClient(owmKey, owmTimeout)

	// --- Market discovery ---
	overpassURL := env("OVERPASS_URL", market.DefaultOverpassURL)
	overpassTimeout := time.Duration(envInt("OVERPASS_TIMEOUT_MS", 45000)) * time.Millisecond
	overpass := market.NewOverpassClient(overpassURL, overpassTimeout)

	cacheTTL := time.Duration(envInt("MARKET_CACHE_TTL_S", 3600)) * time.Second
	cacheMax := envInt("MARKET_CACHE_MAX", 1024)
	cache := ttlcache.New[[]entities.RankedMarket](cacheTTL, cacheMax)
	aggregator := market.NewAggregator(store, overpass, cache, overpassTimeout)

	// --- Guideline matching + synthesis ---
	matcher := advisorypkg.NewMatcher(store, owm, resolver)
	syn := advisorypkg.NewSynthesizer(store, store, matcher, resolver, aggregator, owm)

	// --- MQTT event publisher (optional) ---
	if env("MQTT_ENABLED", "false") == "true" {
		mqCfg := &rabbitmq.RabbitMQConfig{
			Host:     env("RABBITMQ_HOST", env("MQTT_HOST", "localhost")),
			Port:     envInt("RABBITMQ_PORT", envInt("MQTT_PORT", 1883)),
			User:     env("RABBITMQ_USER", env("MQTT_USER", "mqtt_user")),
			Password: env("RABBITMQ_PASSWORD", env("MQTT_PASS", "mqtt_pwd")),
			ClientID: env("MQTT_CLIENT_ID", "advisory-service"),
		}
		mqClient, err := rabbitmq.NewRabbitMQConn(mqCfg, ctx)
		if err != nil {
			log.Fatalf("mqtt connect failed: %v", err)
		}
		topicTmpl := env("ADVISORY_EVENT_TOPIC", "event/advisoryGenerated/{farm}")
		syn.WithPublisher(rabbitmq.NewPublisher(mqClient, topicTmpl), topicTmpl)
	}

	// --- InfluxDB synthesis recorder (optional) ---
	if token := env("INFLUX_TOKEN", ""); token != "" {
		recorder, err := advisorypkg.NewInfluxRecorder(advisorypkg.InfluxConfig{
			InfluxURL:    env("INFLUX_URL", "http://localhost:8086"),
			InfluxToken:  token,
			InfluxOrg:    env("INFLUX_ORG", "org"),
			InfluxBucket: env("INFLUX_BUCKET", "advisory"),
		})
		if err != nil {
			log.Fatalf("influx init failed: %v", err)
		}
		defer recorder.Close()
		syn.WithRecorder(recorder)
	}

	// --- HTTP ---
	mux := advisorypkg.NewHTTPMux(syn, aggregator, resolver)
	addr := ":" + env("HTTP_PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("advisory: HTTP listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("advisory: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
