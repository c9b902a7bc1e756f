package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod defines which OAuth2 grant a connection uses against its vendor
type AuthMethod string

const (
	AuthMethodClientCredentials AuthMethod = "client_credentials"
	AuthMethodPassword          AuthMethod = "password"
)

// ConnectionStatus tracks the lifecycle of a provider connection
type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusActive   ConnectionStatus = "active"
	ConnectionStatusInactive ConnectionStatus = "inactive"
	ConnectionStatusError    ConnectionStatus = "error"
)

// Connection binds one tenant to one provider account. It holds the
// machine-to-machine credentials and the cached OAuth token state.
//
// Credential fields are immutable except via RotateCredentials; token and
// expiry fields are mutated only by the token manager through
// ConnectionStore.UpdateToken.
type Connection struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ProviderType ProviderType `json:"provider_type"`

	// BaseURL is the vendor API root, e.g. https://core1.example.netsapiens.com/
	BaseURL string `json:"base_url"`

	// Config holds provider-specific settings (NetSapiens: domain, territory)
	Config map[string]string `json:"config,omitempty"`

	// Credentials - never serialized
	AuthMethod   AuthMethod `json:"auth_method"`
	ClientID     string     `json:"-"`
	ClientSecret string     `json:"-"`
	Username     string     `json:"-"` // password grant only
	Password     string     `json:"-"` // password grant only

	// CredentialVersion increments on rotation so cached adapter
	// instances built with stale credentials are never reused.
	CredentialVersion int `json:"credential_version"`

	// Cached token state - owned by the token manager
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`

	Status    ConnectionStatus `json:"status"`
	LastError string           `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConnection creates a pending connection with a fresh ID.
func NewConnection(name string, providerType ProviderType, baseURL string) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ID:                uuid.NewString(),
		Name:              name,
		ProviderType:      providerType,
		BaseURL:           baseURL,
		Config:            make(map[string]string),
		AuthMethod:        AuthMethodClientCredentials,
		CredentialVersion: 1,
		Status:            ConnectionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TokenValidFor reports whether the cached access token is present and
// remains valid for at least margin from now.
func (c *Connection) TokenValidFor(margin time.Duration) bool {
	if c.AccessToken == "" || c.TokenExpiry == nil {
		return false
	}
	return time.Now().Add(margin).Before(*c.TokenExpiry)
}

// IsActive reports whether the connection may be used for operations.
// Only explicit deactivation retires a connection; an errored one stays
// usable so a later operation or health check can recover it.
func (c *Connection) IsActive() bool {
	return c.Status != ConnectionStatusInactive
}

// RotateCredentials replaces the client credentials, drops the cached
// token, and bumps the credential version.
func (c *Connection) RotateCredentials(clientID, clientSecret string) {
	c.ClientID = clientID
	c.ClientSecret = clientSecret
	c.AccessToken = ""
	c.RefreshToken = ""
	c.TokenExpiry = nil
	c.CredentialVersion++
	c.UpdatedAt = time.Now().UTC()
}

// ConnectionSummary is a safe view without credential or token material.
type ConnectionSummary struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	ProviderType ProviderType     `json:"provider_type"`
	BaseURL      string           `json:"base_url"`
	AuthMethod   AuthMethod       `json:"auth_method"`
	Status       ConnectionStatus `json:"status"`
	HasToken     bool             `json:"has_token"`
	TokenExpiry  *time.Time       `json:"token_expiry,omitempty"`
	LastError    string           `json:"last_error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ToSummary converts a Connection to its safe view.
func (c *Connection) ToSummary() *ConnectionSummary {
	return &ConnectionSummary{
		ID:           c.ID,
		Name:         c.Name,
		ProviderType: c.ProviderType,
		BaseURL:      c.BaseURL,
		AuthMethod:   c.AuthMethod,
		Status:       c.Status,
		HasToken:     c.AccessToken != "",
		TokenExpiry:  c.TokenExpiry,
		LastError:    c.LastError,
		CreatedAt:    c.CreatedAt,
	}
}
