package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// MockConnectionStore is an in-memory ConnectionStore for testing
type MockConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]*domain.Connection

	// UpdateTokenCalls counts UpdateToken invocations, for single-flight
	// assertions.
	UpdateTokenCalls int
}

// NewMockConnectionStore creates a new MockConnectionStore
func NewMockConnectionStore() *MockConnectionStore {
	return &MockConnectionStore{
		connections: make(map[string]*domain.Connection),
	}
}

func (m *MockConnectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[id]
	if !ok {
		return nil, domain.NewNotFoundError("connection %s not found", id)
	}
	copied := *conn
	return &copied, nil
}

func (m *MockConnectionStore) List(ctx context.Context) ([]*domain.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		copied := *conn
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MockConnectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conn
	m.connections[conn.ID] = &copied
	return nil
}

func (m *MockConnectionStore) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[id]
	if !ok {
		return domain.NewNotFoundError("connection %s not found", id)
	}
	conn.AccessToken = accessToken
	conn.RefreshToken = refreshToken
	conn.TokenExpiry = &expiry
	conn.UpdatedAt = time.Now().UTC()
	m.UpdateTokenCalls++
	return nil
}

func (m *MockConnectionStore) SetStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[id]
	if !ok {
		return domain.NewNotFoundError("connection %s not found", id)
	}
	conn.Status = status
	conn.LastError = lastError
	conn.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockConnectionStore) Deactivate(ctx context.Context, id string) error {
	return m.SetStatus(ctx, id, domain.ConnectionStatusInactive, "")
}
