package geolocation

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider polls the Google Maps Geolocation API. It is the
// fallback for devices without a GPS sensor; the API reports position and
// accuracy only, so heading and speed stay absent.
type GoogleGeolocationProvider struct {
	client     *maps.Client // Maps API client for making geolocation requests
	modemIndex int
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
	}, nil
}

// Watch polls the Geolocation API once per MaximumAge interval, so a cached
// reading is never older than the configured age.
func (g *GoogleGeolocationProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan Event, error) {
	if g.client == nil {
		return nil, fmt.Errorf("%w: geolocation client not configured", ErrCapabilityUnavailable)
	}
	opts = opts.withDefaults()

	events := make(chan Event, 1)
	go func() {
		defer close(events)

		ticker := time.NewTicker(opts.MaximumAge)
		defer ticker.Stop()

		for {
			fix, err := g.locate(ctx, opts)
			ev := Event{Fix: fix, Err: err}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}

// locate performs one geolocation request using whatever radio environment
// data the host can produce.
func (g *GoogleGeolocationProvider) locate(ctx context.Context, opts WatchOptions) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	if opts.HighAccuracy {
		// WiFi and cell data sharpen the result considerably; both are
		// best-effort and the request degrades to IP-only without them.
		if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
			req.WiFiAccessPoints = wifiAPs
		}
		if cellTowers, err := getCellTowers(ctx, g.modemIndex); err == nil {
			req.CellTowers = cellTowers
		}
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Fix{}, err
	}

	accuracy := resp.Accuracy
	return Fix{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  &accuracy,
		Time:      time.Now(),
	}, nil
}
