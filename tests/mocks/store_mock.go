package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/foodshare/pickup-tracker/internal/models"
)

// MockSampleStore is a mock implementation of the SampleStore interface
type MockSampleStore struct {
	mock.Mock
}

func (m *MockSampleStore) ListBySession(ctx context.Context, sessionID string) ([]models.PositionSample, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PositionSample), args.Error(1)
}

func (m *MockSampleStore) Upsert(ctx context.Context, sample models.PositionSample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

func (m *MockSampleStore) Delete(ctx context.Context, sessionID, participantID string) error {
	args := m.Called(ctx, sessionID, participantID)
	return args.Error(0)
}
