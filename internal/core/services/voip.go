package services

import (
	"context"
	"log/slog"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// VoIPService is the canonical operation surface consumed by the admin
// API layer. Requests arriving here are already validated and authorized;
// this service resolves the connection's adapter and delegates, keeping
// the connection's health status current as a side effect.
type VoIPService struct {
	factory driven.AdapterFactory
	store   driven.ConnectionStore
	logger  *slog.Logger
}

// NewVoIPService creates the service.
func NewVoIPService(factory driven.AdapterFactory, store driven.ConnectionStore, logger *slog.Logger) *VoIPService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoIPService{
		factory: factory,
		store:   store,
		logger:  logger,
	}
}

// ----------------------------------------------------------------
// Connection administration
// ----------------------------------------------------------------

// CreateConnection registers a new provider connection in pending state.
func (s *VoIPService) CreateConnection(ctx context.Context, conn *domain.Connection) (*domain.ConnectionSummary, error) {
	if conn.Name == "" {
		return nil, domain.NewValidationError("connection name is required")
	}
	if conn.BaseURL == "" && conn.ProviderType != domain.ProviderTypeMock {
		return nil, domain.NewValidationError("connection base URL is required")
	}
	supported := false
	for _, t := range s.factory.SupportedTypes() {
		if t == conn.ProviderType {
			supported = true
			break
		}
	}
	if !supported {
		return nil, domain.NewValidationError("unsupported provider type %q", conn.ProviderType)
	}

	if err := s.store.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.logger.Info("connection created",
		"connection_id", conn.ID,
		"provider", conn.ProviderType,
		"name", conn.Name)
	return conn.ToSummary(), nil
}

// ListConnections returns safe summaries of all connections.
func (s *VoIPService) ListConnections(ctx context.Context) ([]*domain.ConnectionSummary, error) {
	conns, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]*domain.ConnectionSummary, 0, len(conns))
	for _, conn := range conns {
		summaries = append(summaries, conn.ToSummary())
	}
	return summaries, nil
}

// RotateCredentials replaces a connection's client credentials and drops
// its cached token.
func (s *VoIPService) RotateCredentials(ctx context.Context, connectionID, clientID, clientSecret string) error {
	if clientID == "" || clientSecret == "" {
		return domain.NewValidationError("client_id and client_secret are required")
	}
	conn, err := s.store.Get(ctx, connectionID)
	if err != nil {
		return err
	}
	conn.RotateCredentials(clientID, clientSecret)
	if err := s.store.Save(ctx, conn); err != nil {
		return err
	}
	s.logger.Info("credentials rotated",
		"connection_id", conn.ID,
		"credential_version", conn.CredentialVersion)
	return nil
}

// DeactivateConnection explicitly retires a connection. There is no
// silent destruction path.
func (s *VoIPService) DeactivateConnection(ctx context.Context, connectionID string) error {
	if err := s.store.Deactivate(ctx, connectionID); err != nil {
		return err
	}
	s.logger.Info("connection deactivated", "connection_id", connectionID)
	return nil
}

// TestConnection runs the provider health check and promotes the
// connection to active on success, or records the failure.
func (s *VoIPService) TestConnection(ctx context.Context, connectionID string) error {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := adapter.HealthCheck(ctx); err != nil {
		s.recordFailure(ctx, connectionID, err)
		return err
	}
	if err := s.store.SetStatus(ctx, connectionID, domain.ConnectionStatusActive, ""); err != nil {
		return err
	}
	return nil
}

// SupportedProviders lists the provider types with registered adapters.
func (s *VoIPService) SupportedProviders() []domain.ProviderType {
	return s.factory.SupportedTypes()
}

// ----------------------------------------------------------------
// User operations
// ----------------------------------------------------------------

func (s *VoIPService) ListUsers(ctx context.Context, connectionID string, filter driven.ListFilter) ([]*domain.User, error) {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	users, err := adapter.ListUsers(ctx, filter)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return users, nil
}

func (s *VoIPService) GetUser(ctx context.Context, connectionID, userID string) (*domain.User, error) {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	user, err := adapter.GetUser(ctx, userID)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return user, nil
}

func (s *VoIPService) CreateUser(ctx context.Context, connectionID string, create domain.UserCreate) (*domain.User, error) {
	if create.Username == "" {
		return nil, domain.NewValidationError("username is required")
	}
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	user, err := adapter.CreateUser(ctx, create)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	s.logger.Info("user created",
		"connection_id", connectionID,
		"user_id", user.ID)
	return user, nil
}

func (s *VoIPService) UpdateUser(ctx context.Context, connectionID, userID string, update domain.UserUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return nil, domain.NewValidationError("update carries no fields")
	}
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	user, err := adapter.UpdateUser(ctx, userID, update)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return user, nil
}

func (s *VoIPService) DeleteUser(ctx context.Context, connectionID, userID string) error {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := adapter.DeleteUser(ctx, userID); err != nil {
		s.recordFailure(ctx, connectionID, err)
		return err
	}
	s.recordSuccess(ctx, connectionID)
	s.logger.Info("user deleted",
		"connection_id", connectionID,
		"user_id", userID)
	return nil
}

// ----------------------------------------------------------------
// Device operations
// ----------------------------------------------------------------

func (s *VoIPService) ListDevices(ctx context.Context, connectionID string, filter driven.ListFilter) ([]*domain.Device, error) {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	devices, err := adapter.ListDevices(ctx, filter)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return devices, nil
}

func (s *VoIPService) GetDevice(ctx context.Context, connectionID, deviceID string) (*domain.Device, error) {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	device, err := adapter.GetDevice(ctx, deviceID)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return device, nil
}

func (s *VoIPService) CreateDevice(ctx context.Context, connectionID string, create domain.DeviceCreate) (*domain.Device, error) {
	if create.Name == "" {
		return nil, domain.NewValidationError("device name is required")
	}
	if create.MACAddress != "" {
		normalized, err := domain.NormalizeMAC(create.MACAddress)
		if err != nil {
			return nil, err
		}
		create.MACAddress = normalized
	}
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	device, err := adapter.CreateDevice(ctx, create)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	s.logger.Info("device created",
		"connection_id", connectionID,
		"device_id", device.ID)
	return device, nil
}

func (s *VoIPService) UpdateDevice(ctx context.Context, connectionID, deviceID string, update domain.DeviceUpdate) (*domain.Device, error) {
	if update.IsEmpty() {
		return nil, domain.NewValidationError("update carries no fields")
	}
	if update.MACAddress != nil {
		normalized, err := domain.NormalizeMAC(*update.MACAddress)
		if err != nil {
			return nil, err
		}
		update.MACAddress = &normalized
	}
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	device, err := adapter.UpdateDevice(ctx, deviceID, update)
	if err != nil {
		s.recordFailure(ctx, connectionID, err)
		return nil, err
	}
	s.recordSuccess(ctx, connectionID)
	return device, nil
}

func (s *VoIPService) DeleteDevice(ctx context.Context, connectionID, deviceID string) error {
	adapter, err := s.factory.Resolve(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := adapter.DeleteDevice(ctx, deviceID); err != nil {
		s.recordFailure(ctx, connectionID, err)
		return err
	}
	s.recordSuccess(ctx, connectionID)
	s.logger.Info("device deleted",
		"connection_id", connectionID,
		"device_id", deviceID)
	return nil
}

// recordFailure marks the connection errored for failures that indicate
// the connection itself is unhealthy. Not-found and validation errors are
// normal operation and leave status alone.
func (s *VoIPService) recordFailure(ctx context.Context, connectionID string, opErr error) {
	if !domain.IsProviderUnavailable(opErr) && !domain.IsAuthentication(opErr) && !domain.IsRateLimit(opErr) {
		return
	}
	if err := s.store.SetStatus(ctx, connectionID, domain.ConnectionStatusError, opErr.Error()); err != nil {
		s.logger.Warn("recording connection failure state failed",
			"connection_id", connectionID,
			"error", err)
	}
}

// recordSuccess restores an errored connection to active after a
// successful vendor call, clearing LastError. Healthy connections are
// left untouched so routine operations cost no extra write.
func (s *VoIPService) recordSuccess(ctx context.Context, connectionID string) {
	conn, err := s.store.Get(ctx, connectionID)
	if err != nil || conn.Status != domain.ConnectionStatusError {
		return
	}
	if err := s.store.SetStatus(ctx, connectionID, domain.ConnectionStatusActive, ""); err != nil {
		s.logger.Warn("clearing connection failure state failed",
			"connection_id", connectionID,
			"error", err)
		return
	}
	s.logger.Info("connection recovered", "connection_id", connectionID)
}
