package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat: one degree of latitude is roughly 111 km everywhere.
const kmPerDegreeLat = 111.0

// HaversineKm returns the great-circle distance in km between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns the bounding box extending radiusKm from the center in
// every direction. The longitude delta is widened by cos(lat) so the box
// keeps its width away from the equator.
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-9 {
		cosLat = 1e-9 // poles: degenerate but finite
	}
	lngDelta := radiusKm / (kmPerDegreeLat * cosLat)
	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
