// Package market aggregates nearby markets from the curated internal store
// and an external point-of-interest source, deduplicates them by proximity
// and ranks them by distance.
package market

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mbodji-lab/farm-advisory/internal/model/entities"
	"github.com/mbodji-lab/farm-advisory/pkg/geo"
	"github.com/mbodji-lab/farm-advisory/pkg/ttlcache"
)

// Two records closer than this are considered the same physical market.
const dedupThresholdKm = 0.1

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "advisory_market_cache_hits_total",
		Help: "Market lookups answered from the TTL cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "advisory_market_cache_misses_total",
		Help: "Market lookups that had to query the sources.",
	})
	externalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "advisory_market_external_failures_total",
		Help: "External POI source queries that failed and degraded to empty.",
	})
)

// InternalStore is the curated market store (authoritative records).
type InternalStore interface {
	FindMarketsInBox(ctx context.Context, box geo.BoundingBox) ([]entities.Market, error)
}

// POISource is the best-effort external discovery source.
type POISource interface {
	QueryMarketsNear(ctx context.Context, center entities.Coordinate, radiusKm float64) ([]entities.Market, error)
}

// Aggregator merges both sources and caches ranked results per
// (location, radius). The cache is injected so tests can drive the clock.
type Aggregator struct {
	store      InternalStore
	poi        POISource
	cache      *ttlcache.Cache[[]entities.RankedMarket]
	poiTimeout time.Duration
}

func NewAggregator(store InternalStore, poi POISource, cache *ttlcache.Cache[[]entities.RankedMarket], poiTimeout time.Duration) *Aggregator {
	if cache == nil {
		cache = ttlcache.New[[]entities.RankedMarket](time.Hour, 1024)
	}
	if poiTimeout <= 0 {
		poiTimeout = 45 * time.Second
	}
	return &Aggregator{store: store, poi: poi, cache: cache, poiTimeout: poiTimeout}
}

// FindNearbyMarkets returns markets within radiusKm of center, nearest
// first. cropFilter keeps markets accepting any of the named crops; records
// that declare no accepted crops pass the filter. A failure of either source
// degrades to an empty contribution from that source, never to an error.
func (a *Aggregator) FindNearbyMarkets(ctx context.Context, center entities.Coordinate, radiusKm float64, cropFilter []string) []entities.RankedMarket {
	key := cacheKey(center, radiusKm)
	if ranked, ok := a.cache.Get(key); ok {
		cacheHits.Inc()
		log.Printf("market: returning %d cached markets for %s", len(ranked), key)
		return filterByCrops(ranked, cropFilter)
	}
	cacheMisses.Inc()

	internal, external := a.fetchBoth(ctx, center, radiusKm)
	merged := mergeMarkets(internal, external)

	ranked := make([]entities.RankedMarket, 0, len(merged))
	for _, m := range merged {
		ranked = append(ranked, entities.RankedMarket{
			Market:     m,
			DistanceKm: geo.HaversineKm(center.Lat, center.Lng, m.Location.Lat, m.Location.Lng),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].DistanceKm < ranked[j].DistanceKm })

	// Crop filtering is per call and must not leak into the cache.
	a.cache.Set(key, ranked)

	log.Printf("market: found %d markets (%d internal, %d external) near %.4f,%.4f",
		len(ranked), len(internal), len(external), center.Lat, center.Lng)

	return filterByCrops(ranked, cropFilter)
}

// Flush drops all cached results (manual refresh).
func (a *Aggregator) Flush() {
	a.cache.Flush()
	log.Printf("market: cache flushed")
}

// fetchBoth queries the internal store and the external source concurrently
// and joins both; a failure in one never cancels or blocks the other. The
// unset (0,0) location only consults the internal store.
func (a *Aggregator) fetchBoth(ctx context.Context, center entities.Coordinate, radiusKm float64) (internal, external []entities.Market) {
	type res struct {
		key     string
		markets []entities.Market
	}

	fetches := 1
	ch := make(chan res, 2)

	go func() {
		box := geo.BoxAround(center.Lat, center.Lng, radiusKm)
		markets, err := a.store.FindMarketsInBox(ctx, box)
		if err != nil {
			log.Printf("market: internal store query error: %v", err)
			markets = nil
		}
		ch <- res{"internal", markets}
	}()

	if !center.IsUnset() && a.poi != nil {
		fetches++
		go func() {
			poiCtx, cancel := context.WithTimeout(ctx, a.poiTimeout)
			defer cancel()
			markets, err := a.poi.QueryMarketsNear(poiCtx, center, radiusKm)
			if err != nil {
				externalFailures.Inc()
				log.Printf("market: external source query error: %v", err)
				markets = nil
			}
			ch <- res{"external", markets}
		}()
	} else if center.IsUnset() {
		log.Printf("market: unset 0,0 coordinates, skipping external source")
	}

	for i := 0; i < fetches; i++ {
		r := <-ch
		switch r.key {
		case "internal":
			internal = r.markets
		case "external":
			external = r.markets
		}
	}
	return internal, external
}

// mergeMarkets starts from the internal records (curated, they win) and adds
// each external record only when it is not within dedupThresholdKm of any
// internal one.
func mergeMarkets(internal, external []entities.Market) []entities.Market {
	merged := make([]entities.Market, 0, len(internal)+len(external))
	merged = append(merged, internal...)

	for _, ext := range external {
		duplicate := false
		for _, in := range internal {
			d := geo.HaversineKm(ext.Location.Lat, ext.Location.Lng, in.Location.Lat, in.Location.Lng)
			if d < dedupThresholdKm {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, ext)
		}
	}
	return merged
}

// filterByCrops keeps markets accepting any requested crop. A market with no
// accepted-crops data passes (it might accept anything). A request matches
// when it is a case-insensitive substring of an accepted crop name.
func filterByCrops(markets []entities.RankedMarket, cropFilter []string) []entities.RankedMarket {
	if len(cropFilter) == 0 {
		return markets
	}
	out := make([]entities.RankedMarket, 0, len(markets))
	for _, m := range markets {
		if len(m.AcceptedCrops) == 0 {
			out = append(out, m)
			continue
		}
		if acceptsAny(m.AcceptedCrops, cropFilter) {
			out = append(out, m)
		}
	}
	return out
}

func acceptsAny(accepted, requested []string) bool {
	for _, want := range requested {
		w := strings.ToLower(want)
		for _, have := range accepted {
			if strings.Contains(strings.ToLower(have), w) {
				return true
			}
		}
	}
	return false
}

func cacheKey(center entities.Coordinate, radiusKm float64) string {
	return fmt.Sprintf("markets_%.4f_%.4f_%g", center.Lat, center.Lng, radiusKm)
}
