package advisory

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
)

// NewHTTPMux exposes the advisory service over HTTP. Every handler answers
// JSON; internal failures collapse to an {"error": ...} body so callers
// never see a half-built payload.
func NewHTTPMux(syn *Synthesizer, markets MarketFinder, resolver FactResolver) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/suggestions", func(w http.ResponseWriter, r *http.Request) {
		farmID := r.URL.Query().Get("farm_id")
		if farmID == "" {
			writeError(w, http.StatusBadRequest, "farm_id is required")
			return
		}
		opts := Options{
			Language: r.URL.Query().Get("lang"),
			Debug:    r.URL.Query().Get("debug") == "1" || r.URL.Query().Get("debug") == "true",
		}
		payload, err := syn.GenerateSuggestions(r.Context(), farmID, opts)
		if err != nil {
			if errors.Is(err, ErrFarmNotFound) {
				writeError(w, http.StatusNotFound, "Farm not found")
				return
			}
			log.Printf("[advisory] suggestions for farm %s failed: %v", farmID, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.HandleFunc("/markets/nearby", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusBadRequest, "lat and lng are required numbers")
			return
		}
		radiusKm := float64(marketRadiusKm)
		if v := q.Get("radius_km"); v != "" {
			r2, err := strconv.ParseFloat(v, 64)
			if err != nil || r2 <= 0 {
				writeError(w, http.StatusBadRequest, "radius_km must be a positive number")
				return
			}
			radiusKm = r2
		}
		var crops []string
		if v := q.Get("crops"); v != "" {
			for _, c := range strings.Split(v, ",") {
				if c = strings.TrimSpace(c); c != "" {
					crops = append(crops, c)
				}
			}
		}
		center := entities.Coordinate{Lat: lat, Lng: lng}
		if !center.Valid() {
			writeError(w, http.StatusBadRequest, "lat/lng out of range")
			return
		}
		found := markets.FindNearbyMarkets(r.Context(), center, radiusKm, crops)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"markets": found,
			"count":   len(found),
		})
	})

	// The market aggregator caches per (location, radius); expose a manual
	// flush for operators after curated market data changes.
	if flusher, ok := markets.(interface{ Flush() }); ok {
		mux.HandleFunc("/markets/cache/flush", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, "POST required")
				return
			}
			flusher.Flush()
			writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
		})
	}

	mux.HandleFunc("/recommendations", func(w http.ResponseWriter, r *http.Request) {
		region := r.URL.Query().Get("region")
		crop := r.URL.Query().Get("crop")
		if region == "" || crop == "" {
			writeError(w, http.StatusBadRequest, "region and crop are required")
			return
		}
		fact := resolver.GetRecommendations(region, crop)
		if fact == nil {
			writeError(w, http.StatusNotFound, "no recommendations found")
			return
		}
		writeJSON(w, http.StatusOK, fact)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[advisory] response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
