package geocode

import (
	"context"
	"time"

	"googlemaps.github.io/maps"
)

// Point is a geocoded coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	// Geocode returns the best candidate for the address. The second return
	// value is false when the address resolved to nothing; that is not an
	// error.
	Geocode(ctx context.Context, address string) (Point, bool, error)
}

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	client  *maps.Client
	timeout time.Duration
}

// NewGoogleGeocoder creates a new GoogleGeocoder instance.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeocoder{
		client:  c,
		timeout: 10 * time.Second,
	}, nil
}

// Geocode resolves the address and returns the first candidate.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return Point{}, false, err
	}
	if len(results) == 0 {
		return Point{}, false, nil
	}

	loc := results[0].Geometry.Location
	return Point{Latitude: loc.Lat, Longitude: loc.Lng}, true, nil
}
