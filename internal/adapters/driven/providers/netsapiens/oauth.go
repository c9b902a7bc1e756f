package netsapiens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// defaultTokenTTL is assumed when the vendor returns neither expires_in
// nor a parseable JWT exp claim.
const defaultTokenTTL = time.Hour

// tokenResponse is the NetSapiens OAuth token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// tokenErrorResponse is the vendor's error payload on a failed grant.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewTokenRefresher returns the vendor token call for NetSapiens
// connections, supporting the client_credentials and password grants.
// Register it with the token manager for domain.ProviderTypeNetSapiens.
func NewTokenRefresher(timeout time.Duration) driven.TokenRefresherFunc {
	if timeout <= 0 {
		timeout = requestTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	return func(ctx context.Context, conn *domain.Connection) (*driven.TokenGrant, error) {
		form, err := grantForm(conn)
		if err != nil {
			return nil, err
		}

		tokenURL := strings.TrimSuffix(conn.BaseURL, "/") + "/oauth2/token/"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, domain.NewAuthenticationError("build token request: %v", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, domain.NewAuthenticationError("token request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var vendorErr tokenErrorResponse
			msg := "token request rejected"
			if json.NewDecoder(resp.Body).Decode(&vendorErr) == nil {
				if vendorErr.ErrorDescription != "" {
					msg = vendorErr.ErrorDescription
				} else if vendorErr.Error != "" {
					msg = vendorErr.Error
				}
			}
			return nil, domain.NewAuthenticationError("%s", msg).
				WithVendorStatus(resp.StatusCode).
				WithVendorCode(vendorErr.Error)
		}

		var token tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
			return nil, domain.NewAuthenticationError("malformed token response: %v", err)
		}
		if token.AccessToken == "" {
			return nil, domain.NewAuthenticationError("token response carried no access_token")
		}

		return &driven.TokenGrant{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       tokenExpiry(token),
		}, nil
	}
}

// grantForm builds the form body for the connection's grant type and
// rejects incomplete credentials before any network call.
func grantForm(conn *domain.Connection) (url.Values, error) {
	form := url.Values{}

	switch conn.AuthMethod {
	case domain.AuthMethodClientCredentials:
		if conn.ClientID == "" || conn.ClientSecret == "" {
			return nil, domain.NewAuthenticationError("missing required credentials: client_id, client_secret")
		}
		form.Set("grant_type", "client_credentials")

	case domain.AuthMethodPassword:
		if conn.ClientID == "" || conn.ClientSecret == "" || conn.Username == "" || conn.Password == "" {
			return nil, domain.NewAuthenticationError("missing required credentials: client_id, client_secret, username, password")
		}
		form.Set("grant_type", "password")
		form.Set("username", conn.Username)
		form.Set("password", conn.Password)

	default:
		return nil, domain.NewAuthenticationError("unsupported grant type %q", conn.AuthMethod)
	}

	form.Set("client_id", conn.ClientID)
	form.Set("client_secret", conn.ClientSecret)
	return form, nil
}

// tokenExpiry derives the token expiry: expires_in when supplied, else
// the access token's JWT exp claim (NetSapiens issues JWTs), else a
// conservative default.
func tokenExpiry(token tokenResponse) time.Time {
	if token.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	return time.Now().Add(defaultTokenTTL)
}
