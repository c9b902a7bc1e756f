package driven

import (
	"context"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// ConnectionStore persists provider connections. Implementations hide all
// SQL or key-value specifics from the core.
type ConnectionStore interface {
	// Get returns the connection or a canonical not_found error.
	Get(ctx context.Context, id string) (*domain.Connection, error)

	// List returns all connections, including inactive ones.
	List(ctx context.Context) ([]*domain.Connection, error)

	// Save creates or replaces a connection record.
	Save(ctx context.Context, conn *domain.Connection) error

	// UpdateToken persists refreshed token state. Reserved for the token
	// manager; nothing else writes token fields.
	UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error

	// SetStatus records the connection status and last error message.
	SetStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error

	// Deactivate marks a connection inactive. Connections are never
	// silently destroyed.
	Deactivate(ctx context.Context, id string) error
}
