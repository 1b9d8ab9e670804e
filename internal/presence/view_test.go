package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/internal/presence"
	"github.com/foodshare/pickup-tracker/pkg/geocode"
	"github.com/foodshare/pickup-tracker/tests/mocks"
)

func sample(id string, lat, lng float64) models.PositionSample {
	return models.PositionSample{
		SessionID:     "M1",
		ParticipantID: id,
		Latitude:      lat,
		Longitude:     lng,
		UpdatedAt:     time.Now(),
	}
}

func TestView_ReconcileMovesCreatesRemoves(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	view.Apply([]models.PositionSample{sample("A", 1, 1), sample("B", 2, 2)})

	markerA, ok := view.Marker("A")
	assert.True(t, ok)
	_, ok = view.Marker("B")
	assert.True(t, ok)

	view.Apply([]models.PositionSample{sample("A", 1.5, 1.5), sample("C", 3, 3)})

	// A kept its marker identity and merely moved.
	movedA, ok := view.Marker("A")
	assert.True(t, ok)
	assert.Same(t, markerA, movedA)
	assert.Equal(t, 1.5, movedA.Position.Latitude)

	// B is gone, C was created.
	_, ok = view.Marker("B")
	assert.False(t, ok)
	_, ok = view.Marker("C")
	assert.True(t, ok)

	stats := view.Stats()
	assert.Equal(t, uint64(3), stats.Created) // A, B, C
	assert.Equal(t, uint64(1), stats.Moved)   // A
	assert.Equal(t, uint64(1), stats.Removed) // B
}

func TestView_EmptySetKeepsViewport(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	view.Apply([]models.PositionSample{sample("A", 1, 1), sample("B", 2, 2)})
	before := view.Snapshot().Viewport
	assert.NotNil(t, before)

	view.Apply(nil)

	snapshot := view.Snapshot()
	assert.Empty(t, snapshot.Markers)
	assert.Equal(t, *before, *snapshot.Viewport)
}

func TestView_NoOpApplyCausesNoChurn(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	samples := []models.PositionSample{sample("A", 1, 1), sample("B", 2, 2)}
	view.Apply(samples)
	before := view.Stats()

	view.Apply(samples)
	after := view.Stats()

	assert.Equal(t, before.Created, after.Created)
	assert.Equal(t, before.Removed, after.Removed)
}

func TestView_SessionScenario(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	view.Apply([]models.PositionSample{
		sample("U1", 10.0, 20.0),
		sample("U2", 10.1, 20.1),
	})

	snapshot := view.Snapshot()
	assert.Len(t, snapshot.Markers, 2)
	assert.Equal(t, "U1", snapshot.Markers[0].ParticipantID)
	assert.Equal(t, 10.0, snapshot.Markers[0].Position.Latitude)
	assert.Equal(t, 20.0, snapshot.Markers[0].Position.Longitude)
	assert.Equal(t, "U2", snapshot.Markers[1].ParticipantID)
	assert.Equal(t, 10.1, snapshot.Markers[1].Position.Latitude)
	assert.Equal(t, 20.1, snapshot.Markers[1].Position.Longitude)

	viewport := snapshot.Viewport
	assert.NotNil(t, viewport)
	assert.Less(t, viewport.Bounds.MinLat, 10.0)
	assert.Greater(t, viewport.Bounds.MaxLat, 10.1)
	assert.Less(t, viewport.Bounds.MinLng, 20.0)
	assert.Greater(t, viewport.Bounds.MaxLng, 20.1)
}

func TestView_PickupAddressGeocodedOncePerChange(t *testing.T) {
	geocoder := new(mocks.MockGeocoder)
	geocoder.On("Geocode", mock.Anything, "47 Kitchen Lane").
		Return(geocode.Point{Latitude: 5, Longitude: 6}, true, nil).Once()

	view := presence.NewView(geocoder, 0.2, 17, zerolog.Nop())

	view.SetPickupAddress(context.Background(), "47 Kitchen Lane")
	view.SetPickupAddress(context.Background(), "47 Kitchen Lane")

	geocoder.AssertNumberOfCalls(t, "Geocode", 1)

	snapshot := view.Snapshot()
	assert.NotNil(t, snapshot.Pickup)
	assert.Equal(t, 5.0, snapshot.Pickup.Position.Latitude)
}

func TestView_PickupAddressNoResultsPlacesNoMarker(t *testing.T) {
	geocoder := new(mocks.MockGeocoder)
	geocoder.On("Geocode", mock.Anything, "nowhere").
		Return(geocode.Point{}, false, nil)

	view := presence.NewView(geocoder, 0.2, 17, zerolog.Nop())
	view.SetPickupAddress(context.Background(), "nowhere")

	assert.Nil(t, view.Snapshot().Pickup)
}

func TestView_SubscribeReceivesSnapshots(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	id, updates := view.Subscribe()
	defer view.Unsubscribe(id)

	view.Apply([]models.PositionSample{sample("A", 1, 1)})

	select {
	case snapshot := <-updates:
		assert.Len(t, snapshot.Markers, 1)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot delivery")
	}
}

// TestView_SlowSubscriberDropsInsteadOfBlocking tests that a subscriber that
// stops reading misses intermediate snapshots while reconciliation proceeds.
func TestView_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	view := presence.NewView(nil, 0.2, 17, zerolog.Nop())

	id, updates := view.Subscribe()
	defer view.Unsubscribe(id)

	// Fill the subscriber's buffer without reading it.
	view.Apply([]models.PositionSample{sample("U1", 10.0, 20.0)})

	done := make(chan struct{})
	go func() {
		view.Apply([]models.PositionSample{sample("U2", 10.1, 20.1)})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciliation blocked on a slow subscriber")
	}

	// Only the first snapshot was buffered; the second was dropped, not queued.
	snapshot := <-updates
	assert.Len(t, snapshot.Markers, 1)
	assert.Equal(t, "U1", snapshot.Markers[0].ParticipantID)

	select {
	case <-updates:
		t.Fatal("dropped snapshot was delivered anyway")
	default:
	}

	// The view itself kept reconciling while the subscriber lagged.
	_, ok := view.Marker("U2")
	assert.True(t, ok)
}
