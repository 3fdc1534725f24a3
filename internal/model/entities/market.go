package entities

// MarketSource identifies where a market record came from.
type MarketSource string

const (
	MarketSourceInternal MarketSource = "internal" // curated store, authoritative
	MarketSourceExternal MarketSource = "external" // point-of-interest discovery, best effort
)

// Market is a place where farmers can sell produce. Records from the
// internal store are verified/curated; external records are discovered and
// deduplicated against them by proximity rather than by id.
type Market struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Location      Coordinate   `json:"location"`
	Address       string       `json:"address,omitempty"`
	MarketDays    []string     `json:"market_days,omitempty"`
	AcceptedCrops []string     `json:"accepted_crops,omitempty"`
	MarketType    string       `json:"market_type,omitempty"`
	ContactPhone  string       `json:"contact_phone,omitempty"`
	ContactEmail  string       `json:"contact_email,omitempty"`
	Website       string       `json:"website,omitempty"`
	Source        MarketSource `json:"source"`
	Verified      bool         `json:"verified"`
}

// RankedMarket is a market annotated with its distance from a query center.
type RankedMarket struct {
	Market
	DistanceKm float64 `json:"distance_km"`
}
