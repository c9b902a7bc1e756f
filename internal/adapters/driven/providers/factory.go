package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// defaultCacheTTL bounds how long a built adapter instance is reused.
// Cache entries are keyed by connection ID and credential version, so
// credential rotation invalidates them regardless of TTL.
const defaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	adapter   driven.ProviderAdapter
	expiresAt time.Time
}

// Factory resolves connections to configured provider adapters.
// It maintains a registry of AdapterBuilders, one per provider type;
// adding a provider means registering a builder, nothing else changes.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.ProviderType]driven.AdapterBuilder
	cache    map[string]cacheEntry
	cacheTTL time.Duration

	store  driven.ConnectionStore
	tokens driven.TokenManager
}

// NewFactory creates an adapter factory.
func NewFactory(store driven.ConnectionStore, tokens driven.TokenManager) *Factory {
	return &Factory{
		builders: make(map[domain.ProviderType]driven.AdapterBuilder),
		cache:    make(map[string]cacheEntry),
		cacheTTL: defaultCacheTTL,
		store:    store,
		tokens:   tokens,
	}
}

// Register registers a builder for its provider type.
func (f *Factory) Register(builder driven.AdapterBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[builder.Type()] = builder
}

// Resolve looks up the connection, rejects missing or deactivated ones,
// and returns an adapter bound to it.
func (f *Factory) Resolve(ctx context.Context, connectionID string) (driven.ProviderAdapter, error) {
	conn, err := f.store.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsActive() {
		return nil, domain.NewNotFoundError("connection %s is deactivated", connectionID)
	}

	cacheKey := fmt.Sprintf("%s@%d", conn.ID, conn.CredentialVersion)

	f.mu.RLock()
	entry, cached := f.cache[cacheKey]
	builder, registered := f.builders[conn.ProviderType]
	f.mu.RUnlock()

	if cached && time.Now().Before(entry.expiresAt) {
		return entry.adapter, nil
	}
	if !registered {
		return nil, domain.NewValidationError("no adapter registered for provider %q", conn.ProviderType)
	}

	adapter, err := builder.Build(ctx, conn, f.tokens)
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", conn.ProviderType, err)
	}

	f.mu.Lock()
	f.cache[cacheKey] = cacheEntry{
		adapter:   adapter,
		expiresAt: time.Now().Add(f.cacheTTL),
	}
	// Drop stale entries for the same connection under older credential
	// versions.
	for key := range f.cache {
		if key != cacheKey && len(key) > len(conn.ID) && key[:len(conn.ID)] == conn.ID && key[len(conn.ID)] == '@' {
			delete(f.cache, key)
		}
	}
	f.mu.Unlock()

	return adapter, nil
}

// SupportedTypes returns all registered provider types.
func (f *Factory) SupportedTypes() []domain.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]domain.ProviderType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
