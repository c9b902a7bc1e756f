package netsapiens

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven/mocks"
	"github.com/peerlogic/voip-core/internal/core/services"
)

// Exercises the full path: an adapter whose cached token is inside the
// safety margin refreshes through the real TokenManager before the vendor
// call, and the refreshed token is persisted.
func TestAdapter_EndToEnd_RefreshThenUpdate(t *testing.T) {
	var tokenCalls, updateCalls int32
	var seenAuth string
	var seenBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/oauth2/token/":
			atomic.AddInt32(&tokenCalls, 1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client", r.PostForm.Get("client_id"))
			writeJSON(t, w, tokenResponse{AccessToken: "fresh-token", ExpiresIn: 3600})

		case r.Method == "PUT" && r.URL.Path == "/ns-api/v2/subscribers/jsmith":
			atomic.AddInt32(&updateCalls, 1)
			seenAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&seenBody))
			dept := "Billing"
			writeJSON(t, w, nsSubscriber{User: "jsmith", Department: &dept, Status: "active"})

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	store := mocks.NewMockConnectionStore()

	conn := testConnection(server.URL)
	conn.AccessToken = "stale-token"
	expiry := time.Now().Add(10 * time.Second) // inside the safety margin
	conn.TokenExpiry = &expiry
	require.NoError(t, store.Save(ctx, conn))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := services.NewTokenManager(store, logger)
	tokens.RegisterRefresher(domain.ProviderTypeNetSapiens, NewTokenRefresher(0))

	adapter, err := NewAdapter(conn, tokens)
	require.NoError(t, err)

	dept := "Billing"
	user, err := adapter.UpdateUser(ctx, "jsmith", domain.UserUpdate{Department: &dept})
	require.NoError(t, err)
	require.NotNil(t, user.Department)
	assert.Equal(t, "Billing", *user.Department)

	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls), "near-expiry token should refresh exactly once")
	assert.EqualValues(t, 1, atomic.LoadInt32(&updateCalls))
	assert.Equal(t, "Bearer fresh-token", seenAuth, "vendor call must carry the refreshed token")
	assert.Equal(t, map[string]any{"domain": "testdental.com", "department": "Billing"}, seenBody)

	stored, err := store.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken, "refreshed token should be persisted")
}
