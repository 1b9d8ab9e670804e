package presence

import (
	"context"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/pkg/geocode"
)

// Snapshot is a consistent copy of the view for renderers and the web layer.
// Viewport is nil until the first non-empty reconciliation; after that it is
// always the last fitted viewport, even while the participant set is empty.
type Snapshot struct {
	Markers  []MarkerState `json:"markers"`
	Pickup   *MarkerState  `json:"pickup,omitempty"`
	Viewport *Viewport     `json:"viewport,omitempty"`
}

// Stats counts marker lifecycle transitions since the view was created.
type Stats struct {
	Created uint64
	Moved   uint64
	Removed uint64
}

// View maintains a one-to-one correspondence between the tracked participant
// set and map markers. Reconciliation moves existing markers in place,
// creates missing ones and removes departed ones; it never recreates a marker
// for a participant that is still present.
type View struct {
	geocoder geocode.Geocoder
	padding  float64
	maxZoom  float64
	logger   zerolog.Logger

	markers cmap.ConcurrentMap[string, *Marker]

	mu            sync.RWMutex
	viewport      Viewport
	hasViewport   bool
	pickupAddress string
	pickup        *MarkerState
	stats         Stats

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// NewView creates a new View instance.
func NewView(geocoder geocode.Geocoder, padding, maxZoom float64, logger zerolog.Logger) *View {
	return &View{
		geocoder: geocoder,
		padding:  padding,
		maxZoom:  maxZoom,
		logger:   logger.With().Str("module", "presence-view").Logger(),
		markers:  cmap.New[*Marker](),
		subs:     make(map[uint64]chan Snapshot),
	}
}

// Apply reconciles the marker set against the given participant samples and
// refits the viewport. An empty set removes all markers but leaves the
// previous viewport untouched.
func (v *View) Apply(samples []models.PositionSample) {
	v.mu.Lock()

	ids := make([]string, 0, len(samples))
	points := make([]geocode.Point, 0, len(samples))

	for _, sample := range samples {
		ids = append(ids, sample.ParticipantID)
		point := geocode.Point{Latitude: sample.Latitude, Longitude: sample.Longitude}
		points = append(points, point)

		if marker, ok := v.markers.Get(sample.ParticipantID); ok {
			marker.Position = point
			marker.UpdatedAt = sample.UpdatedAt
			v.stats.Moved++
			continue
		}

		v.markers.Set(sample.ParticipantID, &Marker{
			ParticipantID: sample.ParticipantID,
			Position:      point,
			UpdatedAt:     sample.UpdatedAt,
		})
		v.stats.Created++
	}

	seen := participantSet(ids)
	for _, id := range v.markers.Keys() {
		if _, ok := seen[id]; !ok {
			v.markers.Remove(id)
			v.stats.Removed++
		}
	}

	if viewport, ok := FitBounds(points, v.padding, v.maxZoom); ok {
		v.viewport = viewport
		v.hasViewport = true
	}

	snapshot := v.snapshotLocked()
	v.mu.Unlock()

	v.broadcast(snapshot)
}

// SetPickupAddress resolves the pickup address to a fixed marker, once per
// address change. Geocoding failures and empty results place no marker; the
// failure is logged and not propagated.
func (v *View) SetPickupAddress(ctx context.Context, address string) {
	v.mu.Lock()
	if address == v.pickupAddress {
		v.mu.Unlock()
		return
	}
	v.pickupAddress = address
	v.pickup = nil
	v.mu.Unlock()

	if address == "" {
		return
	}
	if v.geocoder == nil {
		v.logger.Warn().Str("address", address).Msg("No geocoder configured; pickup marker not placed")
		return
	}

	point, found, err := v.geocoder.Geocode(ctx, address)
	if err != nil {
		v.logger.Error().Err(err).Str("address", address).Msg("Failed to geocode pickup address")
		return
	}
	if !found {
		v.logger.Warn().Str("address", address).Msg("Pickup address resolved to no results")
		return
	}

	v.mu.Lock()
	if v.pickupAddress == address {
		v.pickup = &MarkerState{ParticipantID: "pickup", Position: point}
	}
	snapshot := v.snapshotLocked()
	v.mu.Unlock()

	v.broadcast(snapshot)
}

// Marker returns the live marker handle for a participant.
func (v *View) Marker(participantID string) (*Marker, bool) {
	return v.markers.Get(participantID)
}

// Snapshot returns a consistent copy of the current view.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

// Stats returns the lifecycle counters.
func (v *View) Stats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// Subscribe registers a snapshot channel. Slow consumers are dropped, not
// blocked: a delivery that finds the channel full is skipped.
func (v *View) Subscribe() (uint64, <-chan Snapshot) {
	ch := make(chan Snapshot, 1)
	v.subMu.Lock()
	v.nextSub++
	id := v.nextSub
	v.subs[id] = ch
	v.subMu.Unlock()
	return id, ch
}

// Unsubscribe releases a snapshot channel.
func (v *View) Unsubscribe(id uint64) {
	v.subMu.Lock()
	if ch, ok := v.subs[id]; ok {
		delete(v.subs, id)
		close(ch)
	}
	v.subMu.Unlock()
}

func (v *View) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Markers: make([]MarkerState, 0, v.markers.Count()),
	}
	for item := range v.markers.IterBuffered() {
		snapshot.Markers = append(snapshot.Markers, item.Val.state())
	}
	sort.Slice(snapshot.Markers, func(i, j int) bool {
		return snapshot.Markers[i].ParticipantID < snapshot.Markers[j].ParticipantID
	})
	if v.pickup != nil {
		pickup := *v.pickup
		snapshot.Pickup = &pickup
	}
	if v.hasViewport {
		viewport := v.viewport
		snapshot.Viewport = &viewport
	}
	return snapshot
}

// participantSet indexes the ids present in one reconciliation for the
// removal pass.
func participantSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (v *View) broadcast(snapshot Snapshot) {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	for _, ch := range v.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
