package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peerlogic/voip-core/internal/adapters/driven/secrets"
	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore implements driven.ConnectionStore on PostgreSQL with
// credential material encrypted at rest.
type ConnectionStore struct {
	db        *sql.DB
	encryptor *secrets.Encryptor
}

// NewConnectionStore creates a PostgreSQL-backed connection store.
func NewConnectionStore(db *sql.DB, encryptor *secrets.Encryptor) *ConnectionStore {
	return &ConnectionStore{
		db:        db,
		encryptor: encryptor,
	}
}

// Save creates or replaces a connection row.
func (s *ConnectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	secretBlob, err := s.encryptor.Encrypt(secrets.Blob{
		ClientSecret: conn.ClientSecret,
		Username:     conn.Username,
		Password:     conn.Password,
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("encrypt secrets: %w", err)
	}

	configJSON, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	query := `
		INSERT INTO provider_connections (
			id, name, provider_type, base_url, config, auth_method,
			client_id, credential_version, secret_blob, token_expiry,
			status, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			provider_type = EXCLUDED.provider_type,
			base_url = EXCLUDED.base_url,
			config = EXCLUDED.config,
			auth_method = EXCLUDED.auth_method,
			client_id = EXCLUDED.client_id,
			credential_version = EXCLUDED.credential_version,
			secret_blob = EXCLUDED.secret_blob,
			token_expiry = EXCLUDED.token_expiry,
			status = EXCLUDED.status,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, query,
		conn.ID,
		conn.Name,
		conn.ProviderType,
		conn.BaseURL,
		configJSON,
		conn.AuthMethod,
		conn.ClientID,
		conn.CredentialVersion,
		secretBlob,
		nullTime(conn.TokenExpiry),
		conn.Status,
		conn.LastError,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}

// Get retrieves a connection by ID with decrypted secrets.
func (s *ConnectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	conn, err := s.scanOne(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("connection %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

// List returns all connections, including inactive ones.
func (s *ConnectionStore) List(ctx context.Context) ([]*domain.Connection, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []*domain.Connection
	for rows.Next() {
		conn, err := s.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// UpdateToken persists refreshed token state. The token lives inside the
// secret blob, so this is a read-modify-write of that column.
func (s *ConnectionStore) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	secretBlob, err := s.encryptor.Encrypt(secrets.Blob{
		ClientSecret: conn.ClientSecret,
		Username:     conn.Username,
		Password:     conn.Password,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return fmt.Errorf("encrypt secrets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE provider_connections
		SET secret_blob = $2, token_expiry = $3, updated_at = $4
		WHERE id = $1
	`, id, secretBlob, expiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return nil
}

// SetStatus records the connection status and last error message.
func (s *ConnectionStore) SetStatus(ctx context.Context, id string, status domain.ConnectionStatus, lastError string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE provider_connections
		SET status = $2, last_error = $3, updated_at = $4
		WHERE id = $1
	`, id, status, lastError, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("connection %s not found", id)
	}
	return nil
}

// Deactivate marks a connection inactive.
func (s *ConnectionStore) Deactivate(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, domain.ConnectionStatusInactive, "")
}

const selectColumns = `
	SELECT id, name, provider_type, base_url, config, auth_method,
		   client_id, credential_version, secret_blob, token_expiry,
		   status, last_error, created_at, updated_at
	FROM provider_connections
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ConnectionStore) scanOne(row rowScanner) (*domain.Connection, error) {
	var conn domain.Connection
	var configJSON []byte
	var secretBlob []byte
	var tokenExpiry sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.Name,
		&conn.ProviderType,
		&conn.BaseURL,
		&configJSON,
		&conn.AuthMethod,
		&conn.ClientID,
		&conn.CredentialVersion,
		&secretBlob,
		&tokenExpiry,
		&conn.Status,
		&conn.LastError,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &conn.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if len(secretBlob) > 0 {
		var blob secrets.Blob
		if err := s.encryptor.Decrypt(secretBlob, &blob); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
		conn.ClientSecret = blob.ClientSecret
		conn.Username = blob.Username
		conn.Password = blob.Password
		conn.AccessToken = blob.AccessToken
		conn.RefreshToken = blob.RefreshToken
	}
	if tokenExpiry.Valid {
		expiry := tokenExpiry.Time
		conn.TokenExpiry = &expiry
	}

	return &conn, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
