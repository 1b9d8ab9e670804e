package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/foodshare/pickup-tracker/pkg/geocode"
)

// MockGeocoder is a mock implementation of the Geocoder interface
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (geocode.Point, bool, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(geocode.Point), args.Bool(1), args.Error(2)
}
