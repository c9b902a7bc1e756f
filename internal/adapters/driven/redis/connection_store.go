package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/peerlogic/voip-core/internal/adapters/driven/secrets"
	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

const (
	// Key prefixes for Redis
	connectionPrefix = "voip:connection:"
	connectionSetKey = "voip:connections"
)

// connectionRecord is the persisted shape of a connection. Credential and
// token material never appears here in the clear; it rides inside the
// encrypted blob.
type connectionRecord struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	ProviderType      domain.ProviderType     `json:"provider_type"`
	BaseURL           string                  `json:"base_url"`
	Config            map[string]string       `json:"config,omitempty"`
	AuthMethod        domain.AuthMethod       `json:"auth_method"`
	ClientID          string                  `json:"client_id"`
	CredentialVersion int                     `json:"credential_version"`
	SecretBlob        []byte                  `json:"secret_blob"`
	TokenExpiry       *time.Time              `json:"token_expiry,omitempty"`
	Status            domain.ConnectionStatus `json:"status"`
	LastError         string                  `json:"last_error,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// ConnectionStore implements driven.ConnectionStore on Redis with
// credential material encrypted at rest. Suited for deployments that
// already run Redis for the adapter cache and want no SQL dependency.
type ConnectionStore struct {
	client    *redis.Client
	encryptor *secrets.Encryptor
}

// NewConnectionStore creates a Redis-backed connection store.
func NewConnectionStore(client *redis.Client, encryptor *secrets.Encryptor) *ConnectionStore {
	return &ConnectionStore{
		client:    client,
		encryptor: encryptor,
	}
}

// Save creates or replaces a connection record.
func (s *ConnectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	data, err := s.marshalRecord(conn)
	if err != nil {
		return err
	}

	// Pipeline keeps the record and the index set in step
	pipe := s.client.Pipeline()
	pipe.Set(ctx, connectionPrefix+conn.ID, data, 0)
	pipe.SAdd(ctx, connectionSetKey, conn.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}

// Get retrieves a connection by ID with decrypted secrets.
func (s *ConnectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	data, err := s.client.Get(ctx, connectionPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, domain.NewNotFoundError("connection %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return s.unmarshalRecord(data)
}

// List returns all connections, including inactive ones.
func (s *ConnectionStore) List(ctx context.Context) ([]*domain.Connection, error) {
	ids, err := s.client.SMembers(ctx, connectionSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var conns []*domain.Connection
	var staleIDs []string
	for _, id := range ids {
		conn, err := s.Get(ctx, id)
		if domain.IsNotFound(err) {
			// Record gone but still indexed, clean up
			staleIDs = append(staleIDs, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	if len(staleIDs) > 0 {
		s.client.SRem(ctx, connectionSetKey, staleIDs)
	}

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns, nil
}

// UpdateToken persists refreshed token state via read-modify-write of the
// stored record.
func (s *ConnectionStore) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	conn.AccessToken = accessToken
	conn.RefreshToken = refreshToken
	conn.TokenExpiry = &expiry
	conn.UpdatedAt = time.Now().UTC()

	data, err := s.marshalRecord(conn)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, connectionPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return nil
}

// SetStatus records the connection status and last error message.
func (s *ConnectionStore) SetStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	conn.Status = status
	conn.LastError = lastError
	conn.UpdatedAt = time.Now().UTC()

	data, err := s.marshalRecord(conn)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, connectionPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// Deactivate marks a connection inactive.
func (s *ConnectionStore) Deactivate(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, domain.ConnectionStatusInactive, "")
}

func (s *ConnectionStore) marshalRecord(conn *domain.Connection) ([]byte, error) {
	blob, err := s.encryptor.Encrypt(secrets.Blob{
		ClientSecret: conn.ClientSecret,
		Username:     conn.Username,
		Password:     conn.Password,
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("encrypt secrets: %w", err)
	}

	data, err := json.Marshal(connectionRecord{
		ID:                conn.ID,
		Name:              conn.Name,
		ProviderType:      conn.ProviderType,
		BaseURL:           conn.BaseURL,
		Config:            conn.Config,
		AuthMethod:        conn.AuthMethod,
		ClientID:          conn.ClientID,
		CredentialVersion: conn.CredentialVersion,
		SecretBlob:        blob,
		TokenExpiry:       conn.TokenExpiry,
		Status:            conn.Status,
		LastError:         conn.LastError,
		CreatedAt:         conn.CreatedAt,
		UpdatedAt:         conn.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal connection: %w", err)
	}
	return data, nil
}

func (s *ConnectionStore) unmarshalRecord(data []byte) (*domain.Connection, error) {
	var rec connectionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal connection: %w", err)
	}

	conn := &domain.Connection{
		ID:                rec.ID,
		Name:              rec.Name,
		ProviderType:      rec.ProviderType,
		BaseURL:           rec.BaseURL,
		Config:            rec.Config,
		AuthMethod:        rec.AuthMethod,
		ClientID:          rec.ClientID,
		CredentialVersion: rec.CredentialVersion,
		TokenExpiry:       rec.TokenExpiry,
		Status:            rec.Status,
		LastError:         rec.LastError,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}

	if len(rec.SecretBlob) > 0 {
		var blob secrets.Blob
		if err := s.encryptor.Decrypt(rec.SecretBlob, &blob); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
		conn.ClientSecret = blob.ClientSecret
		conn.Username = blob.Username
		conn.Password = blob.Password
		conn.AccessToken = blob.AccessToken
		conn.RefreshToken = blob.RefreshToken
	}

	return conn, nil
}
