package mock

import (
	"context"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure Builder implements the interface.
var _ driven.AdapterBuilder = (*Builder)(nil)

// Builder creates mock adapters for the factory registry. All
// connections resolved through one builder share a dataset, mirroring
// how a real vendor account holds shared state.
type Builder struct {
	adapter *Adapter
}

// NewBuilder creates the builder with a fresh dataset.
func NewBuilder() *Builder {
	return &Builder{adapter: NewAdapter()}
}

// Type returns the provider type this builder creates.
func (b *Builder) Type() domain.ProviderType {
	return domain.ProviderTypeMock
}

// Build returns the shared mock adapter; mock connections need no
// credentials or tokens.
func (b *Builder) Build(ctx context.Context, conn *domain.Connection, tokens driven.TokenManager) (driven.ProviderAdapter, error) {
	return b.adapter, nil
}
