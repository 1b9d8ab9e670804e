package geolocation

import (
	"context"
	"errors"
)

// ErrCapabilityUnavailable indicates the device has no usable location source.
// Watch fails fast with this error and produces no events.
var ErrCapabilityUnavailable = errors.New("geolocation capability unavailable")

// ErrStaleReading indicates no reading arrived within the configured timeout.
// It is delivered as an error event; monitoring continues.
var ErrStaleReading = errors.New("geolocation reading timed out")

// Provider interface defines the methods for continuous location providers.
type Provider interface {
	// Watch begins continuous monitoring and returns a stream of events.
	// The stream is closed when ctx is cancelled or the provider is closed.
	Watch(ctx context.Context, opts WatchOptions) (<-chan Event, error)
	Close() error
}
