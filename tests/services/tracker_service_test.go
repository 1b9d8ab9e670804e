package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/foodshare/pickup-tracker/internal/models"
	"github.com/foodshare/pickup-tracker/internal/services"
	"github.com/foodshare/pickup-tracker/pkg/geolocation"
	"github.com/foodshare/pickup-tracker/tests/mocks"
)

func newTrackerFixture(provider *mocks.FakeLocationProvider, store *mocks.MockSampleStore,
	notify services.UserNotifier) *services.TrackerService {
	mockParticipantInfo := new(mocks.MockParticipantInfo)
	mockParticipantInfo.On("GetParticipantID").Return("U1")

	return services.NewTrackerService(
		"M1",
		0, // publish every fix
		geolocation.WatchOptions{},
		mockParticipantInfo,
		store,
		provider,
		notify,
		zerolog.Nop(),
	)
}

// TestTrackerService_Start_Success tests the successful start of the TrackerService.
func TestTrackerService_Start_Success(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)

	tracker := newTrackerFixture(provider, store, nil)

	err := tracker.Start()
	assert.NoError(t, err)
	assert.True(t, tracker.IsTracking())

	// Try to start again (should fail)
	err = tracker.Start()
	assert.Error(t, err)
	assert.Equal(t, "tracker service is already running", err.Error())

	err = tracker.Stop()
	assert.NoError(t, err)
	assert.False(t, tracker.IsTracking())
}

// TestTrackerService_Start_CapabilityUnavailable tests that a device without a
// location capability fails fast and never starts monitoring.
func TestTrackerService_Start_CapabilityUnavailable(t *testing.T) {
	provider := mocks.NewUnavailableLocationProvider()
	store := new(mocks.MockSampleStore)

	notified := make(chan error, 1)
	tracker := newTrackerFixture(provider, store, func(_ string, err error) {
		if err != nil {
			notified <- err
		}
	})

	err := tracker.Start()
	assert.Error(t, err)
	assert.ErrorIs(t, err, geolocation.ErrCapabilityUnavailable)
	assert.False(t, tracker.IsTracking())
	assert.Equal(t, 0, provider.WatchCalls())

	select {
	case err := <-notified:
		assert.ErrorIs(t, err, geolocation.ErrCapabilityUnavailable)
	case <-time.After(time.Second):
		t.Fatal("expected a user notification")
	}
}

// TestTrackerService_PublishesSamples tests that location fixes become store
// upserts keyed on the participant and session.
func TestTrackerService_PublishesSamples(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)

	published := make(chan models.PositionSample, 1)
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(1).(models.PositionSample)
	}).Return(nil)

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())
	defer tracker.Stop()

	speed := 1.5
	provider.Emit(geolocation.Event{Fix: geolocation.Fix{
		Latitude:  10.0,
		Longitude: 20.0,
		Speed:     &speed,
		Time:      time.Now(),
	}})

	select {
	case sample := <-published:
		assert.Equal(t, "M1", sample.SessionID)
		assert.Equal(t, "U1", sample.ParticipantID)
		assert.Equal(t, 10.0, sample.Latitude)
		assert.Equal(t, 20.0, sample.Longitude)
		assert.NotNil(t, sample.Speed)
		assert.Nil(t, sample.Accuracy)
		assert.Nil(t, sample.Heading)
	case <-time.After(time.Second):
		t.Fatal("expected a published sample")
	}

	// The fix is also observable locally.
	assert.Eventually(t, func() bool {
		fix := tracker.CurrentFix()
		return fix != nil && fix.Latitude == 10.0
	}, time.Second, 10*time.Millisecond)
}

// TestTrackerService_ReadError_NonFatal tests that a transient read failure is
// surfaced to the user and monitoring continues.
func TestTrackerService_ReadError_NonFatal(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)

	published := make(chan models.PositionSample, 1)
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(1).(models.PositionSample)
	}).Return(nil)

	notified := make(chan error, 1)
	tracker := newTrackerFixture(provider, store, func(_ string, err error) {
		if err != nil {
			notified <- err
		}
	})
	assert.NoError(t, tracker.Start())
	defer tracker.Stop()

	readErr := errors.New("gps timeout")
	provider.Emit(geolocation.Event{Err: readErr})

	select {
	case err := <-notified:
		assert.Equal(t, readErr, err)
	case <-time.After(time.Second):
		t.Fatal("expected a user notification")
	}

	// Monitoring survived the error.
	provider.Emit(geolocation.Event{Fix: geolocation.Fix{Latitude: 1, Longitude: 2}})
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("expected a published sample after the read error")
	}
	assert.True(t, tracker.IsTracking())
}

// TestTrackerService_StopTracking_DeletesSample tests that stopping removes
// this participant's sample entirely, best-effort.
func TestTrackerService_StopTracking_DeletesSample(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)
	store.On("Delete", mock.Anything, "M1", "U1").Return(nil)

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())

	err := tracker.StopTracking()
	assert.NoError(t, err)
	assert.False(t, tracker.IsTracking())
	assert.Nil(t, tracker.CurrentFix())
	store.AssertCalled(t, "Delete", mock.Anything, "M1", "U1")

	// Stopping again fails: sharing is no longer active.
	err = tracker.StopTracking()
	assert.Error(t, err)

	assert.NoError(t, tracker.Stop())
}

// TestTrackerService_StopTracking_DeleteFailureIsSilent tests that a failed
// delete never fails the stop itself.
func TestTrackerService_StopTracking_DeleteFailureIsSilent(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)
	store.On("Delete", mock.Anything, "M1", "U1").Return(errors.New("store unreachable"))

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())

	assert.NoError(t, tracker.StopTracking())
	assert.NoError(t, tracker.Stop())
}

// TestTrackerService_StopTracking_ClearsFixDrainedDuringStop tests that a fix
// still in flight when tracking stops is not observable afterwards. The loop
// is held inside a store write with a second fix queued, so it drains that fix
// after the cancel; the cleared current-location value must win.
func TestTrackerService_StopTracking_ClearsFixDrainedDuringStop(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)
	store.On("Delete", mock.Anything, "M1", "U1").Return(nil)

	writing := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		once.Do(func() { close(writing) })
		<-release
	}).Return(nil)

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())

	// First fix: the loop is now blocked inside the store write.
	provider.Emit(geolocation.Event{Fix: geolocation.Fix{Latitude: 1, Longitude: 1}})
	select {
	case <-writing:
	case <-time.After(time.Second):
		t.Fatal("expected the loop to reach the store write")
	}

	// Second fix queues behind the blocked write.
	provider.Emit(geolocation.Event{Fix: geolocation.Fix{Latitude: 2, Longitude: 2}})

	stopped := make(chan error, 1)
	go func() { stopped <- tracker.StopTracking() }()

	// Give the stop time to reach its wait, then let the loop run down.
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("StopTracking did not return")
	}

	assert.Nil(t, tracker.CurrentFix(), "a fix drained during stop must not remain observable")
	assert.False(t, tracker.IsTracking())
	assert.NoError(t, tracker.Stop())
}

// TestTrackerService_StopThenStartTracking_SingleWatch tests that a
// stop-then-start sequence leaves exactly one active sampling subscription.
func TestTrackerService_StopThenStartTracking_SingleWatch(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)
	store.On("Delete", mock.Anything, "M1", "U1").Return(nil)

	published := make(chan models.PositionSample, 4)
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(1).(models.PositionSample)
	}).Return(nil)

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())
	assert.NoError(t, tracker.StopTracking())
	assert.NoError(t, tracker.StartTracking())
	defer tracker.Stop()

	assert.Equal(t, 2, provider.WatchCalls())
	assert.True(t, tracker.IsTracking())

	// One event yields exactly one publish: the first loop is gone.
	provider.Emit(geolocation.Event{Fix: geolocation.Fix{Latitude: 3, Longitude: 4}})
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("expected a published sample")
	}
	select {
	case <-published:
		t.Fatal("sample published twice; duplicate sampling subscription")
	case <-time.After(200 * time.Millisecond):
	}
}

// TestTrackerService_Stop_CancelsMonitoringUnconditionally tests teardown
// without an explicit StopTracking.
func TestTrackerService_Stop_CancelsMonitoringUnconditionally(t *testing.T) {
	provider := mocks.NewFakeLocationProvider()
	store := new(mocks.MockSampleStore)

	tracker := newTrackerFixture(provider, store, nil)
	assert.NoError(t, tracker.Start())

	// No StopTracking: teardown must still cancel monitoring and close the
	// provider, and must not delete the sample.
	assert.NoError(t, tracker.Stop())
	assert.True(t, provider.Closed())
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)

	err := tracker.Stop()
	assert.Error(t, err)
	assert.Equal(t, "tracker service is not running", err.Error())
}
