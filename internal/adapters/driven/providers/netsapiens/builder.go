package netsapiens

import (
	"context"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure Builder implements the interface.
var _ driven.AdapterBuilder = (*Builder)(nil)

// Builder creates NetSapiens adapters for the factory registry.
type Builder struct{}

// NewBuilder creates the builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Type returns the provider type this builder creates.
func (b *Builder) Type() domain.ProviderType {
	return domain.ProviderTypeNetSapiens
}

// Build creates an adapter bound to the connection.
func (b *Builder) Build(ctx context.Context, conn *domain.Connection, tokens driven.TokenManager) (driven.ProviderAdapter, error) {
	return NewAdapter(conn, tokens)
}
