package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
	"github.com/peerlogic/voip-core/internal/core/ports/driven/mocks"
)

func newTestConnection(t *testing.T, store *mocks.MockConnectionStore) *domain.Connection {
	t.Helper()
	conn := domain.NewConnection("Main PBX", domain.ProviderTypeNetSapiens, "https://core1.example.com")
	conn.ClientID = "client"
	conn.ClientSecret = "secret"
	if err := store.Save(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return conn
}

func TestTokenManager_FastPath_NoRefresh(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	var refresherCalls int32
	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		atomic.AddInt32(&refresherCalls, 1)
		return &driven.TokenGrant{AccessToken: "fresh"}, nil
	})

	conn := newTestConnection(t, store)
	conn.AccessToken = "cached"
	expiry := time.Now().Add(time.Hour)
	conn.TokenExpiry = &expiry

	token, err := tm.GetValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "cached" {
		t.Errorf("expected cached token, got %q", token)
	}
	if atomic.LoadInt32(&refresherCalls) != 0 {
		t.Errorf("expected no refresher call on the fast path, got %d", refresherCalls)
	}
}

func TestTokenManager_RefreshesExpiredToken(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		return &driven.TokenGrant{
			AccessToken:  "fresh",
			RefreshToken: "fresh-refresh",
			Expiry:       time.Now().Add(time.Hour),
		}, nil
	})

	conn := newTestConnection(t, store)

	token, err := tm.GetValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh" {
		t.Errorf("expected refreshed token, got %q", token)
	}

	// Refreshed state must be persisted
	stored, err := store.Get(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.AccessToken != "fresh" || stored.RefreshToken != "fresh-refresh" {
		t.Error("expected refreshed token persisted to the store")
	}
}

func TestTokenManager_RefreshInsideSafetyMargin(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		return &driven.TokenGrant{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	})

	conn := newTestConnection(t, store)
	// Token technically unexpired but inside the 30s safety margin
	conn.AccessToken = "stale"
	expiry := time.Now().Add(10 * time.Second)
	conn.TokenExpiry = &expiry

	token, err := tm.GetValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh" {
		t.Errorf("expected near-expiry token to be refreshed, got %q", token)
	}
}

func TestTokenManager_SingleFlight(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	var refresherCalls int32
	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		atomic.AddInt32(&refresherCalls, 1)
		// Hold the flight open long enough for all callers to queue up
		time.Sleep(50 * time.Millisecond)
		return &driven.TokenGrant{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	})

	conn := newTestConnection(t, store)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tm.GetValidToken(context.Background(), conn)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if tokens[i] != "fresh" {
			t.Errorf("caller %d: expected shared token, got %q", i, tokens[i])
		}
	}

	if got := atomic.LoadInt32(&refresherCalls); got != 1 {
		t.Errorf("expected exactly 1 vendor refresh for %d concurrent callers, got %d", callers, got)
	}
	if store.UpdateTokenCalls != 1 {
		t.Errorf("expected exactly 1 token persistence, got %d", store.UpdateTokenCalls)
	}
}

func TestTokenManager_Invalidate_ForcesRefresh(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	var refresherCalls int32
	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		atomic.AddInt32(&refresherCalls, 1)
		return &driven.TokenGrant{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	})

	conn := newTestConnection(t, store)
	conn.AccessToken = "cached"
	expiry := time.Now().Add(time.Hour)
	conn.TokenExpiry = &expiry
	if err := store.Save(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Unexpired but invalidated: must refresh anyway
	tm.Invalidate(conn.ID)

	token, err := tm.GetValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh" {
		t.Errorf("expected fresh token after invalidation, got %q", token)
	}
	if atomic.LoadInt32(&refresherCalls) != 1 {
		t.Errorf("expected 1 refresh, got %d", refresherCalls)
	}
}

func TestTokenManager_RefreshFailure_LeavesStateUntouched(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		return nil, domain.NewAuthenticationError("invalid_client")
	})

	conn := newTestConnection(t, store)
	conn.AccessToken = "old-but-stored"
	if err := store.Save(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := tm.GetValidToken(context.Background(), conn)
	if !domain.IsAuthentication(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}

	stored, err := store.Get(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.AccessToken != "old-but-stored" {
		t.Error("expected stored token state untouched after failed refresh")
	}
	if store.UpdateTokenCalls != 0 {
		t.Errorf("expected no persistence on failure, got %d calls", store.UpdateTokenCalls)
	}
}

func TestTokenManager_NonAuthRefreshFailure_WrappedAsAuthentication(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		return nil, domain.NewProviderUnavailableError("token endpoint timeout")
	})

	conn := newTestConnection(t, store)

	_, err := tm.GetValidToken(context.Background(), conn)
	if !domain.IsAuthentication(err) {
		t.Errorf("expected refresh failure surfaced as authentication, got %v", err)
	}
}

func TestTokenManager_NoRefresherRegistered(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	conn := newTestConnection(t, store)

	_, err := tm.GetValidToken(context.Background(), conn)
	if !domain.IsAuthentication(err) {
		t.Errorf("expected authentication error for unregistered provider, got %v", err)
	}
}

func TestTokenManager_RefreshUsesRotatedCredentials(t *testing.T) {
	store := mocks.NewMockConnectionStore()
	tm := NewTokenManager(store, nil)

	var seenClientID string
	tm.RegisterRefresher(domain.ProviderTypeNetSapiens, func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		seenClientID = conn.ClientID
		return &driven.TokenGrant{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	})

	conn := newTestConnection(t, store)

	// Rotate credentials in the store after the caller loaded its copy
	rotated, err := store.Get(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rotated.RotateCredentials("rotated-client", "rotated-secret")
	if err := store.Save(context.Background(), rotated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The stale copy triggers a refresh; the refresher must see the
	// re-read, rotated credentials.
	if _, err := tm.GetValidToken(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenClientID != "rotated-client" {
		t.Errorf("expected refresher to see rotated credentials, got %q", seenClientID)
	}
}
