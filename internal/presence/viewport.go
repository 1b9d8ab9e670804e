package presence

import (
	"math"

	"github.com/foodshare/pickup-tracker/pkg/geocode"
)

// minPadDegrees keeps the padding nonzero even when all tracked points
// coincide, so a fitted viewport never collapses to a single point.
const minPadDegrees = 1e-4

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Viewport describes the map view fitted over the tracked participants.
type Viewport struct {
	Bounds    Bounds  `json:"bounds"`
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	Zoom      float64 `json:"zoom"`
}

// FitBounds computes a viewport covering every point, padded on each side by
// the given fraction of the point spread and with the zoom capped at maxZoom
// so a single nearby participant does not zoom in absurdly far. The second
// return value is false for an empty point set: no viewport can be fitted.
func FitBounds(points []geocode.Point, padding float64, maxZoom float64) (Viewport, bool) {
	if len(points) == 0 {
		return Viewport{}, false
	}

	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLng, maxLng := points[0].Longitude, points[0].Longitude
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLng = math.Min(minLng, p.Longitude)
		maxLng = math.Max(maxLng, p.Longitude)
	}

	latPad := math.Max((maxLat-minLat)*padding, minPadDegrees)
	lngPad := math.Max((maxLng-minLng)*padding, minPadDegrees)

	bounds := Bounds{
		MinLat: minLat - latPad,
		MinLng: minLng - lngPad,
		MaxLat: maxLat + latPad,
		MaxLng: maxLng + lngPad,
	}

	// Web-mercator style zoom: the whole world spans 360 degrees at zoom 0
	// and each level halves the visible span.
	span := math.Max(bounds.MaxLat-bounds.MinLat, bounds.MaxLng-bounds.MinLng)
	zoom := math.Log2(360 / span)
	if zoom > maxZoom {
		zoom = maxZoom
	}
	if zoom < 0 {
		zoom = 0
	}

	return Viewport{
		Bounds:    bounds,
		CenterLat: (bounds.MinLat + bounds.MaxLat) / 2,
		CenterLng: (bounds.MinLng + bounds.MaxLng) / 2,
		Zoom:      zoom,
	}, true
}
