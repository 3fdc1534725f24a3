package entities

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies inside the WGS84 envelope.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// IsUnset reports the (0,0) "null island" placeholder used for farms that
// were registered without a location fix.
func (c Coordinate) IsUnset() bool {
	return c.Lat == 0 && c.Lng == 0
}
