package mocks

import (
	"context"
	"sync"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// MockTokenManager is a TokenManager for testing that returns a fixed
// token and records calls.
type MockTokenManager struct {
	mu sync.Mutex

	Token string
	Err   error

	GetValidTokenCalls int
	InvalidatedIDs     []string
}

// NewMockTokenManager creates a MockTokenManager returning token.
func NewMockTokenManager(token string) *MockTokenManager {
	return &MockTokenManager{Token: token}
}

func (m *MockTokenManager) GetValidToken(ctx context.Context, conn *domain.Connection) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetValidTokenCalls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Token, nil
}

func (m *MockTokenManager) Invalidate(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidatedIDs = append(m.InvalidatedIDs, connectionID)
}
