package driven

import (
	"context"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// ListFilter narrows list operations. Adapters perform provider-side
// filtering when the vendor supports it and fall back to adapter-side
// substring filtering otherwise; callers cannot tell which strategy was
// used, only that results satisfy the filter.
type ListFilter struct {
	// Search matches against username, email, name, and extension.
	Search string

	// Status restricts results to a canonical or passthrough status value.
	Status string

	// UserID restricts device listings to one owner.
	UserID string
}

// ProviderAdapter is the capability contract every vendor integration
// implements, scoped to one connection.
//
// All operations accept and return canonical shapes only, and fail only
// with canonical *domain.Error values. List operations always return the
// complete result set as of call time - adapters drain vendor pagination
// internally. Side effects are confined to outbound vendor HTTP calls;
// adapters perform no persistence and never mutate connection credentials.
type ProviderAdapter interface {
	// Type returns the provider type this adapter integrates.
	Type() domain.ProviderType

	// HealthCheck verifies the vendor is reachable with the connection's
	// credentials.
	HealthCheck(ctx context.Context) error

	ListUsers(ctx context.Context, filter ListFilter) ([]*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, create domain.UserCreate) (*domain.User, error)
	// UpdateUser applies only the fields present in the partial update,
	// leaving vendor-side fields absent from the request untouched.
	UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	ListDevices(ctx context.Context, filter ListFilter) ([]*domain.Device, error)
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
	CreateDevice(ctx context.Context, create domain.DeviceCreate) (*domain.Device, error)
	UpdateDevice(ctx context.Context, id string, update domain.DeviceUpdate) (*domain.Device, error)
	DeleteDevice(ctx context.Context, id string) error
}

// AdapterBuilder creates adapter instances for one provider type.
// Each provider registers its builder with the AdapterFactory.
type AdapterBuilder interface {
	// Type returns the provider type this builder creates.
	Type() domain.ProviderType

	// Build creates an adapter bound to the given connection. The token
	// manager handles credential retrieval and refresh; the adapter must
	// never read or mutate token fields on the connection directly.
	Build(ctx context.Context, conn *domain.Connection, tokens TokenManager) (ProviderAdapter, error)
}

// AdapterFactory resolves a connection to its configured adapter.
// Adding a provider means registering a new builder; no existing adapter
// or caller code changes.
type AdapterFactory interface {
	// Register registers a builder for its provider type.
	Register(builder AdapterBuilder)

	// Resolve looks up the connection and returns an adapter bound to it.
	// Missing or deactivated connections yield a canonical not_found error.
	Resolve(ctx context.Context, connectionID string) (ProviderAdapter, error)

	// SupportedTypes returns all registered provider types.
	SupportedTypes() []domain.ProviderType
}
