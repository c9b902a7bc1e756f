package netsapiens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

func TestTokenRefresher_ClientCredentialsGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		if r.PostForm.Get("client_id") != "client" || r.PostForm.Get("client_secret") != "secret" {
			t.Error("expected client credentials in form")
		}
		if r.PostForm.Get("username") != "" {
			t.Error("client_credentials grant must not carry a username")
		}
		writeJSON(t, w, tokenResponse{
			AccessToken:  "granted-token",
			RefreshToken: "granted-refresh",
			ExpiresIn:    3600,
			TokenType:    "Bearer",
		})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)
	conn := testConnection(server.URL)

	grant, err := refresher(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant.AccessToken != "granted-token" || grant.RefreshToken != "granted-refresh" {
		t.Errorf("expected granted tokens, got %+v", grant)
	}

	wantExpiry := time.Now().Add(time.Hour)
	if diff := grant.Expiry.Sub(wantExpiry); diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("expected expiry ~1h out, got %v", grant.Expiry)
	}
}

func TestTokenRefresher_PasswordGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "password" {
			t.Errorf("expected password grant, got %q", got)
		}
		if r.PostForm.Get("username") != "apiuser" || r.PostForm.Get("password") != "apipass" {
			t.Error("expected grant credentials in form")
		}
		writeJSON(t, w, tokenResponse{AccessToken: "granted", ExpiresIn: 60})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)
	conn := testConnection(server.URL)
	conn.AuthMethod = domain.AuthMethodPassword
	conn.Username = "apiuser"
	conn.Password = "apipass"

	if _, err := refresher(context.Background(), conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTokenRefresher_MissingCredentials_NoNetworkCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected with incomplete credentials")
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)

	conn := testConnection(server.URL)
	conn.ClientSecret = ""
	if _, err := refresher(context.Background(), conn); !domain.IsAuthentication(err) {
		t.Errorf("expected authentication error, got %v", err)
	}

	pwConn := testConnection(server.URL)
	pwConn.AuthMethod = domain.AuthMethodPassword
	// username/password absent
	if _, err := refresher(context.Background(), pwConn); !domain.IsAuthentication(err) {
		t.Errorf("expected authentication error for password grant, got %v", err)
	}
}

func TestTokenRefresher_VendorRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, tokenErrorResponse{
			Error:            "invalid_client",
			ErrorDescription: "client authentication failed",
		})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)

	_, err := refresher(context.Background(), testConnection(server.URL))
	if !domain.IsAuthentication(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}

	de, ok := err.(*domain.Error)
	if !ok {
		t.Fatal("expected canonical error shape")
	}
	if de.Message != "client authentication failed" {
		t.Errorf("expected vendor description surfaced, got %q", de.Message)
	}
	if de.VendorCode != "invalid_client" {
		t.Errorf("expected vendor code attached, got %q", de.VendorCode)
	}
}

func TestTokenRefresher_ExpiryFromJWTClaim(t *testing.T) {
	exp := time.Now().Add(45 * time.Minute).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No expires_in: expiry must come from the token's exp claim
		writeJSON(t, w, tokenResponse{AccessToken: unsignedJWT(t, exp)})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)

	grant, err := refresher(context.Background(), testConnection(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant.Expiry.Unix() != exp {
		t.Errorf("expected expiry from JWT exp claim %d, got %d", exp, grant.Expiry.Unix())
	}
}

func TestTokenRefresher_OpaqueToken_DefaultTTL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, tokenResponse{AccessToken: "opaque-token"})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)

	grant, err := refresher(context.Background(), testConnection(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantExpiry := time.Now().Add(defaultTokenTTL)
	if diff := grant.Expiry.Sub(wantExpiry); diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("expected default TTL expiry, got %v", grant.Expiry)
	}
}

func TestTokenRefresher_EmptyAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, tokenResponse{TokenType: "Bearer"})
	}))
	defer server.Close()

	refresher := NewTokenRefresher(0)

	_, err := refresher(context.Background(), testConnection(server.URL))
	if !domain.IsAuthentication(err) {
		t.Errorf("expected authentication error for missing access_token, got %v", err)
	}
}

// unsignedJWT builds a minimal JWT carrying only an exp claim.
func unsignedJWT(t *testing.T, exp int64) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		t.Fatalf("failed to marshal header: %v", err)
	}
	claims, err := json.Marshal(map[string]int64{"exp": exp})
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	return fmt.Sprintf("%s.%s.",
		base64.RawURLEncoding.EncodeToString(header),
		base64.RawURLEncoding.EncodeToString(claims))
}
