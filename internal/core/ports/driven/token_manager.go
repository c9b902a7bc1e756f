package driven

import (
	"context"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// TokenSafetyMargin is how long a returned token is guaranteed to remain
// valid. Tokens expiring within the margin are refreshed before use.
const TokenSafetyMargin = 30 * time.Second

// TokenManager owns the OAuth token lifecycle for connections: acquisition,
// caching, refresh-before-expiry, and single-flight refresh under
// concurrency. It is the only component allowed to mutate a connection's
// token and expiry fields (through ConnectionStore.UpdateToken).
type TokenManager interface {
	// GetValidToken returns an access token guaranteed valid for at least
	// TokenSafetyMargin from now. Concurrent callers discovering expiry on
	// the same connection collapse into one vendor token call. A failed
	// refresh surfaces a canonical authentication error and leaves stored
	// token state untouched.
	GetValidToken(ctx context.Context, conn *domain.Connection) (string, error)

	// Invalidate drops any cached token for the connection so the next
	// GetValidToken call performs a fresh acquisition. Used after
	// credential rotation and after a vendor 401 on a supposedly valid
	// token.
	Invalidate(connectionID string)
}

// TokenRefresherFunc performs the vendor-specific token acquisition or
// refresh call and returns the new token state. Registered per provider
// type with the token manager.
type TokenRefresherFunc func(ctx context.Context, conn *domain.Connection) (*TokenGrant, error)

// TokenGrant is the result of a vendor token call.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // empty when the grant does not issue one
	Expiry       time.Time
}
