package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foodshare/pickup-tracker/pkg/geocode"
)

func TestFitBounds_EmptySet(t *testing.T) {
	_, ok := FitBounds(nil, 0.2, 17)
	assert.False(t, ok)
}

func TestFitBounds_CoversAllPointsWithPadding(t *testing.T) {
	points := []geocode.Point{
		{Latitude: 10.0, Longitude: 20.0},
		{Latitude: 10.1, Longitude: 20.1},
	}

	viewport, ok := FitBounds(points, 0.2, 17)
	assert.True(t, ok)

	// Strictly wider than the point spread on every side.
	assert.Less(t, viewport.Bounds.MinLat, 10.0)
	assert.Less(t, viewport.Bounds.MinLng, 20.0)
	assert.Greater(t, viewport.Bounds.MaxLat, 10.1)
	assert.Greater(t, viewport.Bounds.MaxLng, 20.1)

	assert.InDelta(t, 10.05, viewport.CenterLat, 0.001)
	assert.InDelta(t, 20.05, viewport.CenterLng, 0.001)
	assert.LessOrEqual(t, viewport.Zoom, 17.0)
	assert.Greater(t, viewport.Zoom, 0.0)
}

func TestFitBounds_SinglePointHitsZoomCeiling(t *testing.T) {
	points := []geocode.Point{{Latitude: 10.0, Longitude: 20.0}}

	viewport, ok := FitBounds(points, 0.2, 17)
	assert.True(t, ok)

	// One nearby participant must not zoom in absurdly far.
	assert.Equal(t, 17.0, viewport.Zoom)
	assert.Greater(t, viewport.Bounds.MaxLat, viewport.Bounds.MinLat)
	assert.Greater(t, viewport.Bounds.MaxLng, viewport.Bounds.MinLng)
}
