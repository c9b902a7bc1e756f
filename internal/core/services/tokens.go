package services

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure TokenManager implements the port.
var _ driven.TokenManager = (*TokenManager)(nil)

// TokenManager implements the token lifecycle for provider connections.
//
// The cached token lives on the connection record; this service decides
// when it is stale, performs the vendor-specific refresh through a
// registered refresher, and persists the result. Refreshes for one
// connection are single-flight: concurrent callers discovering expiry
// collapse into one vendor call and share its result.
type TokenManager struct {
	store  driven.ConnectionStore
	logger *slog.Logger

	mu          sync.RWMutex
	refreshers  map[domain.ProviderType]driven.TokenRefresherFunc
	invalidated map[string]struct{}

	group singleflight.Group
}

// NewTokenManager creates a TokenManager backed by the given store.
func NewTokenManager(store driven.ConnectionStore, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{
		store:       store,
		logger:      logger,
		refreshers:  make(map[domain.ProviderType]driven.TokenRefresherFunc),
		invalidated: make(map[string]struct{}),
	}
}

// RegisterRefresher registers the vendor token call for a provider type.
func (m *TokenManager) RegisterRefresher(providerType domain.ProviderType, refresher driven.TokenRefresherFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshers[providerType] = refresher
}

// GetValidToken returns a token valid for at least driven.TokenSafetyMargin.
// The fast path returns the cached token without any locking beyond a read
// of the invalidation set; the slow path funnels through singleflight so
// one expiry event costs exactly one vendor call.
func (m *TokenManager) GetValidToken(ctx context.Context, conn *domain.Connection) (string, error) {
	if conn.TokenValidFor(driven.TokenSafetyMargin) && !m.isInvalidated(conn.ID) {
		return conn.AccessToken, nil
	}

	token, err, _ := m.group.Do(conn.ID, func() (any, error) {
		return m.refresh(ctx, conn.ID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Invalidate forces the next GetValidToken for the connection to perform
// a fresh acquisition regardless of cached expiry.
func (m *TokenManager) Invalidate(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated[connectionID] = struct{}{}
}

func (m *TokenManager) isInvalidated(connectionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.invalidated[connectionID]
	return ok
}

func (m *TokenManager) clearInvalidated(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invalidated, connectionID)
}

// refresh runs inside the singleflight group for one connection ID.
func (m *TokenManager) refresh(ctx context.Context, connectionID string) (string, error) {
	// Re-read the connection: a caller we were queued behind may have
	// refreshed already, and credentials may have rotated since the
	// caller loaded its copy.
	conn, err := m.store.Get(ctx, connectionID)
	if err != nil {
		return "", err
	}

	if conn.TokenValidFor(driven.TokenSafetyMargin) && !m.isInvalidated(connectionID) {
		return conn.AccessToken, nil
	}

	m.mu.RLock()
	refresher, ok := m.refreshers[conn.ProviderType]
	m.mu.RUnlock()
	if !ok {
		return "", domain.NewAuthenticationError("no token refresher registered for provider %s", conn.ProviderType)
	}

	grant, err := refresher(ctx, conn)
	if err != nil {
		// Stored token state is left untouched on failure.
		m.logger.Warn("token refresh failed",
			"connection_id", conn.ID,
			"provider", conn.ProviderType,
			"error", err)
		if domain.IsAuthentication(err) {
			return "", err
		}
		return "", domain.NewAuthenticationError("token refresh failed: %v", err)
	}

	if err := m.store.UpdateToken(ctx, conn.ID, grant.AccessToken, grant.RefreshToken, grant.Expiry); err != nil {
		// We hold a usable token; persistence failure only costs the
		// cache on the next load.
		m.logger.Warn("persisting refreshed token failed",
			"connection_id", conn.ID,
			"error", err)
	}
	m.clearInvalidated(connectionID)

	m.logger.Info("token refreshed",
		"connection_id", conn.ID,
		"provider", conn.ProviderType,
		"expiry", grant.Expiry)

	return grant.AccessToken, nil
}
