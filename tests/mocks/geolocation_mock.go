package mocks

import (
	"context"
	"sync"

	"github.com/foodshare/pickup-tracker/pkg/geolocation"
)

// FakeLocationProvider is a channel-driven Provider for tests: the test
// pushes events through Emit and observes how many watches were opened.
type FakeLocationProvider struct {
	mu         sync.Mutex
	events     chan geolocation.Event
	watchErr   error
	watchCalls int
	closed     bool
}

// NewFakeLocationProvider creates a provider whose Watch succeeds.
func NewFakeLocationProvider() *FakeLocationProvider {
	return &FakeLocationProvider{}
}

// NewUnavailableLocationProvider creates a provider whose Watch fails with
// ErrCapabilityUnavailable.
func NewUnavailableLocationProvider() *FakeLocationProvider {
	return &FakeLocationProvider{watchErr: geolocation.ErrCapabilityUnavailable}
}

func (f *FakeLocationProvider) Watch(ctx context.Context, _ geolocation.WatchOptions) (<-chan geolocation.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.watchCalls++
	f.events = make(chan geolocation.Event, 16)
	events := f.events
	go func() {
		<-ctx.Done()
	}()
	return events, nil
}

func (f *FakeLocationProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Emit delivers an event on the most recently opened watch.
func (f *FakeLocationProvider) Emit(event geolocation.Event) {
	f.mu.Lock()
	events := f.events
	f.mu.Unlock()
	events <- event
}

// WatchCalls reports how many watches were opened.
func (f *FakeLocationProvider) WatchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchCalls
}

// Closed reports whether Close was called.
func (f *FakeLocationProvider) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
