package netsapiens

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

// pageLimit is the page size requested from the vendor while draining.
const pageLimit = 200

// Ensure Adapter implements the interface.
var _ driven.ProviderAdapter = (*Adapter)(nil)

// Adapter integrates the NetSapiens UCaaS platform.
//
// NetSapiens terminology: subscribers are users, devices are devices,
// and every resource call is scoped to a tenant domain. Pagination is
// offset/limit and is drained fully before returning.
type Adapter struct {
	client *client
	cfg    Config
}

// NewAdapter creates an adapter bound to one connection.
func NewAdapter(conn *domain.Connection, tokens driven.TokenManager) (*Adapter, error) {
	cfg, err := ParseConfig(conn)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: newClient(conn, tokens),
		cfg:    cfg,
	}, nil
}

// Type returns the provider type.
func (a *Adapter) Type() domain.ProviderType {
	return domain.ProviderTypeNetSapiens
}

// HealthCheck verifies the vendor is reachable and the credentials work.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	return a.client.getJSON(ctx, resourcePath("domains"), a.baseQuery(), nil)
}

func (a *Adapter) baseQuery() url.Values {
	q := url.Values{}
	q.Set("domain", a.cfg.Domain)
	if a.cfg.Territory != "" {
		q.Set("territory", a.cfg.Territory)
	}
	return q
}

// ----------------------------------------------------------------
// Users (NetSapiens subscribers)
// ----------------------------------------------------------------

type nsSubscriber struct {
	UserID           *string `json:"user_id"`
	User             string  `json:"user"`
	Email            *string `json:"email"`
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	DisplayName      *string `json:"display_name"`
	Extension        *string `json:"extension"`
	DID              *string `json:"did"`
	Department       *string `json:"department"`
	Site             *string `json:"site"`
	Status           string  `json:"status"`
	VoicemailEnabled *bool   `json:"voicemail_enabled"`
	CreatedAt        *string `json:"created_at"`
	UpdatedAt        *string `json:"updated_at"`
}

type subscribersPage struct {
	Subscribers []nsSubscriber `json:"subscribers"`
	Total       int            `json:"total"`
}

// ListUsers returns every subscriber matching the filter. The search term
// is passed to the vendor where it narrows the fetch, and re-applied
// adapter-side so the contract holds regardless of vendor behavior.
func (a *Adapter) ListUsers(ctx context.Context, filter driven.ListFilter) ([]*domain.User, error) {
	var users []*domain.User

	offset := 0
	for {
		q := a.baseQuery()
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("offset", strconv.Itoa(offset))
		if filter.Search != "" {
			q.Set("search", filter.Search)
		}

		var page subscribersPage
		if err := a.client.getJSON(ctx, resourcePath("subscribers"), q, &page); err != nil {
			return nil, err
		}
		for i := range page.Subscribers {
			users = append(users, a.toUser(&page.Subscribers[i]))
		}

		if len(page.Subscribers) == 0 {
			break
		}
		offset += len(page.Subscribers)
		if page.Total > 0 {
			if offset >= page.Total {
				break
			}
			continue
		}
		if len(page.Subscribers) < pageLimit {
			break
		}
	}

	filtered := users[:0]
	for _, u := range users {
		if matchesUser(u, filter) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// GetUser returns one subscriber or a canonical not_found error.
func (a *Adapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var sub nsSubscriber
	if err := a.client.getJSON(ctx, itemPath("subscribers", id), a.baseQuery(), &sub); err != nil {
		return nil, err
	}
	return a.toUser(&sub), nil
}

// CreateUser creates a subscriber. Like the vendor itself, this is not
// idempotent: repeated calls may create duplicates.
func (a *Adapter) CreateUser(ctx context.Context, create domain.UserCreate) (*domain.User, error) {
	body := map[string]any{
		"domain":          a.cfg.Domain,
		"user":            create.Username,
		"subscriber_type": "standard",
	}
	putIfSet(body, "email", create.Email)
	putIfSet(body, "first_name", create.FirstName)
	putIfSet(body, "last_name", create.LastName)
	putIfSet(body, "extension", create.Extension)
	putIfSet(body, "password", create.Password)
	putIfSet(body, "department", create.Department)
	putIfSet(body, "site", create.Site)

	var sub nsSubscriber
	if err := a.client.doJSON(ctx, "POST", resourcePath("subscribers"), nil, body, &sub); err != nil {
		return nil, err
	}
	return a.toUser(&sub), nil
}

// UpdateUser sends only the fields present in the partial update;
// vendor-side fields absent from the request stay untouched.
func (a *Adapter) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	body := map[string]any{"domain": a.cfg.Domain}
	putIfSet(body, "email", update.Email)
	putIfSet(body, "first_name", update.FirstName)
	putIfSet(body, "last_name", update.LastName)
	putIfSet(body, "extension", update.Extension)
	putIfSet(body, "department", update.Department)
	if update.Status != nil {
		body["status"] = string(*update.Status)
	}

	var sub nsSubscriber
	if err := a.client.doJSON(ctx, "PUT", itemPath("subscribers", id), nil, body, &sub); err != nil {
		return nil, err
	}
	return a.toUser(&sub), nil
}

// DeleteUser removes a subscriber.
func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	return a.client.doJSON(ctx, "DELETE", itemPath("subscribers", id), a.baseQuery(), nil, nil)
}

// toUser maps a NetSapiens subscriber to the canonical user shape.
func (a *Adapter) toUser(sub *nsSubscriber) *domain.User {
	id := sub.User
	if sub.UserID != nil && *sub.UserID != "" {
		id = *sub.UserID
	}

	hasVoicemail := true
	if sub.VoicemailEnabled != nil {
		hasVoicemail = *sub.VoicemailEnabled
	}

	return &domain.User{
		ID:           id,
		Username:     sub.User,
		Email:        sub.Email,
		FirstName:    sub.FirstName,
		LastName:     sub.LastName,
		DisplayName:  sub.DisplayName,
		Extension:    sub.Extension,
		DID:          sub.DID,
		Department:   sub.Department,
		Site:         sub.Site,
		Status:       mapUserStatus(sub.Status),
		HasVoicemail: hasVoicemail,
		CreatedAt:    parseVendorTime(sub.CreatedAt),
		UpdatedAt:    parseVendorTime(sub.UpdatedAt),
		Metadata: &domain.ProviderMetadata{
			ProviderType: domain.ProviderTypeNetSapiens,
			RawID:        id,
		},
	}
}

// mapUserStatus maps the vendor's status vocabulary onto the canonical
// enumeration; unmapped values are preserved verbatim, never dropped.
func mapUserStatus(s string) domain.UserStatus {
	switch s {
	case "", "active":
		return domain.UserStatusActive
	case "inactive":
		return domain.UserStatusInactive
	case "suspended":
		return domain.UserStatusSuspended
	case "pending":
		return domain.UserStatusPending
	default:
		return domain.UserStatus(s)
	}
}

// ----------------------------------------------------------------
// Devices
// ----------------------------------------------------------------

type nsDevice struct {
	DeviceID     *string `json:"device_id"`
	DeviceName   string  `json:"device_name"`
	DeviceType   string  `json:"device_type"`
	User         *string `json:"user"`
	Extension    *string `json:"extension"`
	MACAddress   *string `json:"mac_address"`
	IPAddress    *string `json:"ip_address"`
	Manufacturer *string `json:"manufacturer"`
	Model        *string `json:"model"`
	Firmware     *string `json:"firmware"`
	Status       string  `json:"status"`
	LastSeen     *string `json:"last_seen"`
}

type devicesPage struct {
	Devices []nsDevice `json:"devices"`
	Total   int        `json:"total"`
}

// ListDevices returns every device matching the filter, fully drained.
func (a *Adapter) ListDevices(ctx context.Context, filter driven.ListFilter) ([]*domain.Device, error) {
	var devices []*domain.Device

	offset := 0
	for {
		q := a.baseQuery()
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("offset", strconv.Itoa(offset))
		if filter.UserID != "" {
			q.Set("user", filter.UserID)
		}

		var page devicesPage
		if err := a.client.getJSON(ctx, resourcePath("devices"), q, &page); err != nil {
			return nil, err
		}
		for i := range page.Devices {
			devices = append(devices, a.toDevice(&page.Devices[i]))
		}

		if len(page.Devices) == 0 {
			break
		}
		offset += len(page.Devices)
		if page.Total > 0 {
			if offset >= page.Total {
				break
			}
			continue
		}
		if len(page.Devices) < pageLimit {
			break
		}
	}

	filtered := devices[:0]
	for _, d := range devices {
		if matchesDevice(d, filter) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// GetDevice returns one device or a canonical not_found error.
func (a *Adapter) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	var dev nsDevice
	if err := a.client.getJSON(ctx, itemPath("devices", id), a.baseQuery(), &dev); err != nil {
		return nil, err
	}
	return a.toDevice(&dev), nil
}

// CreateDevice provisions a device. The MAC address is normalized before
// it is sent to the vendor.
func (a *Adapter) CreateDevice(ctx context.Context, create domain.DeviceCreate) (*domain.Device, error) {
	mac, err := domain.NormalizeMAC(create.MACAddress)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"domain":      a.cfg.Domain,
		"mac_address": mac,
		"device_name": create.Name,
		"device_type": toVendorDeviceType(create.Type),
	}
	putIfSet(body, "user", create.UserID)
	putIfSet(body, "manufacturer", create.Manufacturer)
	putIfSet(body, "model", create.Model)

	var dev nsDevice
	if err := a.client.doJSON(ctx, "POST", resourcePath("devices"), nil, body, &dev); err != nil {
		return nil, err
	}
	return a.toDevice(&dev), nil
}

// UpdateDevice sends only the fields present in the partial update.
func (a *Adapter) UpdateDevice(ctx context.Context, id string, update domain.DeviceUpdate) (*domain.Device, error) {
	body := map[string]any{"domain": a.cfg.Domain}
	putIfSet(body, "device_name", update.Name)
	putIfSet(body, "user", update.UserID)
	putIfSet(body, "extension", update.Extension)
	if update.Type != nil {
		body["device_type"] = toVendorDeviceType(*update.Type)
	}
	if update.MACAddress != nil {
		mac, err := domain.NormalizeMAC(*update.MACAddress)
		if err != nil {
			return nil, err
		}
		body["mac_address"] = mac
	}

	var dev nsDevice
	if err := a.client.doJSON(ctx, "PUT", itemPath("devices", id), nil, body, &dev); err != nil {
		return nil, err
	}
	return a.toDevice(&dev), nil
}

// DeleteDevice deprovisions a device.
func (a *Adapter) DeleteDevice(ctx context.Context, id string) error {
	return a.client.doJSON(ctx, "DELETE", itemPath("devices", id), a.baseQuery(), nil, nil)
}

// toDevice maps a NetSapiens device to the canonical shape. MAC addresses
// are normalized on read; a MAC the vendor reports in an unparseable form
// is kept verbatim rather than dropped.
func (a *Adapter) toDevice(dev *nsDevice) *domain.Device {
	id := ""
	if dev.DeviceID != nil && *dev.DeviceID != "" {
		id = *dev.DeviceID
	} else if dev.MACAddress != nil {
		id = *dev.MACAddress
	}

	mac := dev.MACAddress
	if mac != nil {
		if normalized, err := domain.NormalizeMAC(*mac); err == nil {
			mac = &normalized
		}
	}

	return &domain.Device{
		ID:              id,
		Name:            dev.DeviceName,
		Type:            fromVendorDeviceType(dev.DeviceType),
		UserID:          dev.User,
		Extension:       dev.Extension,
		MACAddress:      mac,
		IPAddress:       dev.IPAddress,
		Manufacturer:    dev.Manufacturer,
		Model:           dev.Model,
		FirmwareVersion: dev.Firmware,
		Status:          mapDeviceStatus(dev.Status),
		LastSeen:        parseVendorTime(dev.LastSeen),
		Metadata: &domain.ProviderMetadata{
			ProviderType: domain.ProviderTypeNetSapiens,
			RawID:        id,
		},
	}
}

// mapDeviceStatus maps vendor registration states onto the canonical
// enumeration; unmapped values pass through verbatim.
func mapDeviceStatus(s string) domain.DeviceStatus {
	switch s {
	case "online", "registered":
		return domain.DeviceStatusOnline
	case "offline", "unregistered":
		return domain.DeviceStatusOffline
	case "busy":
		return domain.DeviceStatusBusy
	default:
		return domain.DeviceStatus(s)
	}
}

var vendorDeviceTypes = map[domain.DeviceType]string{
	domain.DeviceTypeDeskPhone:  "sip_phone",
	domain.DeviceTypeSoftphone:  "softphone",
	domain.DeviceTypeMobileApp:  "mobile",
	domain.DeviceTypeWebRTC:     "webrtc",
	domain.DeviceTypeATA:        "ata",
	domain.DeviceTypeConference: "conference",
}

func toVendorDeviceType(t domain.DeviceType) string {
	if vendor, ok := vendorDeviceTypes[t]; ok {
		return vendor
	}
	return string(t)
}

func fromVendorDeviceType(vendor string) domain.DeviceType {
	for canonical, v := range vendorDeviceTypes {
		if v == vendor {
			return canonical
		}
	}
	return domain.DeviceType(vendor)
}

// ----------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------

func putIfSet(body map[string]any, key string, value *string) {
	if value != nil {
		body[key] = *value
	}
}

func parseVendorTime(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil
	}
	return &t
}

// matchesUser applies the list filter adapter-side.
func matchesUser(u *domain.User, filter driven.ListFilter) bool {
	if filter.Status != "" && string(u.Status) != filter.Status {
		return false
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	for _, hay := range []string{
		u.Username,
		deref(u.Email),
		deref(u.FirstName),
		deref(u.LastName),
		deref(u.DisplayName),
		deref(u.Extension),
	} {
		if hay != "" && strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// matchesDevice applies the list filter adapter-side.
func matchesDevice(d *domain.Device, filter driven.ListFilter) bool {
	if filter.UserID != "" && deref(d.UserID) != filter.UserID {
		return false
	}
	if filter.Status != "" && string(d.Status) != filter.Status {
		return false
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	for _, hay := range []string{
		d.Name,
		deref(d.MACAddress),
		deref(d.Manufacturer),
		deref(d.Model),
		deref(d.Extension),
	} {
		if hay != "" && strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
