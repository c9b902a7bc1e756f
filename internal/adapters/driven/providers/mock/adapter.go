// Package mock implements an in-memory provider adapter for local
// development and testing. It is registered as a first-class provider
// type and honors the same contracts as real vendor integrations.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.ProviderAdapter = (*Adapter)(nil)

// Adapter serves fixture data from memory. Each instance owns its own
// dataset, so parallel tests never interfere.
type Adapter struct {
	mu           sync.RWMutex
	users        map[string]*domain.User
	devices      map[string]*domain.Device
	nextUserID   int
	nextDeviceID int
}

// NewAdapter creates an adapter pre-seeded with the demo practice
// fixtures: eight users and seven devices.
func NewAdapter() *Adapter {
	a := &Adapter{
		users:        make(map[string]*domain.User),
		devices:      make(map[string]*domain.Device),
		nextUserID:   9,
		nextDeviceID: 8,
	}
	for _, u := range seedUsers() {
		a.users[u.ID] = u
	}
	for _, d := range seedDevices() {
		a.devices[d.ID] = d
	}
	return a
}

// Type returns the provider type.
func (a *Adapter) Type() domain.ProviderType {
	return domain.ProviderTypeMock
}

// HealthCheck always succeeds.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	return nil
}

// ----------------------------------------------------------------
// Users
// ----------------------------------------------------------------

func (a *Adapter) ListUsers(ctx context.Context, filter driven.ListFilter) ([]*domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*domain.User
	for _, u := range a.users {
		if !userMatches(u, filter) {
			continue
		}
		copied := *u
		result = append(result, &copied)
	}
	return result, nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	u, ok := a.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user %s not found", id)
	}
	copied := *u
	return &copied, nil
}

func (a *Adapter) CreateUser(ctx context.Context, create domain.UserCreate) (*domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := fmt.Sprintf("user-%03d", a.nextUserID)
	a.nextUserID++

	extension := create.Extension
	if extension == nil {
		ext := fmt.Sprintf("%d", 100+a.nextUserID)
		extension = &ext
	}
	did := fmt.Sprintf("+1555123%s", *extension)
	now := time.Now().UTC()

	u := &domain.User{
		ID:           id,
		Username:     create.Username,
		Email:        create.Email,
		FirstName:    create.FirstName,
		LastName:     create.LastName,
		Extension:    extension,
		DID:          &did,
		Department:   create.Department,
		Site:         create.Site,
		Status:       domain.UserStatusActive,
		HasVoicemail: true,
		CreatedAt:    &now,
		Metadata:     metadata(id),
	}
	a.users[id] = u

	copied := *u
	return &copied, nil
}

func (a *Adapter) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u, ok := a.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user %s not found", id)
	}

	if update.Email != nil {
		u.Email = update.Email
	}
	if update.FirstName != nil {
		u.FirstName = update.FirstName
	}
	if update.LastName != nil {
		u.LastName = update.LastName
	}
	if update.Extension != nil {
		u.Extension = update.Extension
	}
	if update.Status != nil {
		u.Status = *update.Status
	}
	if update.Department != nil {
		u.Department = update.Department
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now

	copied := *u
	return &copied, nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.users[id]; !ok {
		return domain.NewNotFoundError("user %s not found", id)
	}
	delete(a.users, id)
	return nil
}

// ----------------------------------------------------------------
// Devices
// ----------------------------------------------------------------

func (a *Adapter) ListDevices(ctx context.Context, filter driven.ListFilter) ([]*domain.Device, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*domain.Device
	for _, d := range a.devices {
		if !deviceMatches(d, filter) {
			continue
		}
		copied := *d
		result = append(result, &copied)
	}
	return result, nil
}

func (a *Adapter) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	d, ok := a.devices[id]
	if !ok {
		return nil, domain.NewNotFoundError("device %s not found", id)
	}
	copied := *d
	return &copied, nil
}

func (a *Adapter) CreateDevice(ctx context.Context, create domain.DeviceCreate) (*domain.Device, error) {
	mac, err := domain.NormalizeMAC(create.MACAddress)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := fmt.Sprintf("device-%03d", a.nextDeviceID)
	a.nextDeviceID++

	d := &domain.Device{
		ID:           id,
		Name:         create.Name,
		Type:         create.Type,
		UserID:       create.UserID,
		MACAddress:   &mac,
		Manufacturer: create.Manufacturer,
		Model:        create.Model,
		Status:       domain.DeviceStatusOffline,
		Metadata:     metadata(id),
	}
	a.devices[id] = d

	copied := *d
	return &copied, nil
}

func (a *Adapter) UpdateDevice(ctx context.Context, id string, update domain.DeviceUpdate) (*domain.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d, ok := a.devices[id]
	if !ok {
		return nil, domain.NewNotFoundError("device %s not found", id)
	}

	if update.Name != nil {
		d.Name = *update.Name
	}
	if update.Type != nil {
		d.Type = *update.Type
	}
	if update.UserID != nil {
		d.UserID = update.UserID
	}
	if update.Extension != nil {
		d.Extension = update.Extension
	}
	if update.MACAddress != nil {
		mac, err := domain.NormalizeMAC(*update.MACAddress)
		if err != nil {
			return nil, err
		}
		d.MACAddress = &mac
	}

	copied := *d
	return &copied, nil
}

func (a *Adapter) DeleteDevice(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.devices[id]; !ok {
		return domain.NewNotFoundError("device %s not found", id)
	}
	delete(a.devices, id)
	return nil
}

// ----------------------------------------------------------------
// Filtering
// ----------------------------------------------------------------

func userMatches(u *domain.User, filter driven.ListFilter) bool {
	if filter.Status != "" && string(u.Status) != filter.Status {
		return false
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	for _, hay := range []*string{&u.Username, u.Email, u.FirstName, u.LastName, u.Extension} {
		if hay != nil && strings.Contains(strings.ToLower(*hay), needle) {
			return true
		}
	}
	return false
}

func deviceMatches(d *domain.Device, filter driven.ListFilter) bool {
	if filter.UserID != "" {
		if d.UserID == nil || *d.UserID != filter.UserID {
			return false
		}
	}
	if filter.Status != "" && string(d.Status) != filter.Status {
		return false
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	for _, hay := range []*string{&d.Name, d.MACAddress, d.Manufacturer, d.Model} {
		if hay != nil && strings.Contains(strings.ToLower(*hay), needle) {
			return true
		}
	}
	return false
}

func metadata(rawID string) *domain.ProviderMetadata {
	return &domain.ProviderMetadata{
		ProviderType: domain.ProviderTypeMock,
		RawID:        rawID,
	}
}
