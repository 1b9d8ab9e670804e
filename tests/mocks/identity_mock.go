package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/foodshare/pickup-tracker/pkg/identity"
)

// MockParticipantInfo is a mock implementation of the ParticipantInfoInterface
type MockParticipantInfo struct {
	mock.Mock
}

func (m *MockParticipantInfo) LoadIdentity() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockParticipantInfo) GetParticipantID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockParticipantInfo) GetIdentity() *identity.Identity {
	args := m.Called()
	return args.Get(0).(*identity.Identity)
}

func (m *MockParticipantInfo) SaveParticipantID(participantID string) error {
	args := m.Called(participantID)
	return args.Error(0)
}
