package domain

import (
	"strings"
	"time"
)

// DeviceType is the canonical device type vocabulary. Unmapped vendor
// types are preserved verbatim.
type DeviceType string

const (
	DeviceTypeDeskPhone  DeviceType = "desk_phone"
	DeviceTypeSoftphone  DeviceType = "softphone"
	DeviceTypeMobileApp  DeviceType = "mobile_app"
	DeviceTypeWebRTC     DeviceType = "webrtc"
	DeviceTypeATA        DeviceType = "ata" // analog telephone adapter
	DeviceTypeConference DeviceType = "conference"
)

// DeviceStatus is the canonical device status vocabulary. Unmapped vendor
// statuses are preserved verbatim.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusBusy    DeviceStatus = "busy"
)

// IsCanonical reports whether the status is one of the enumerated values.
func (s DeviceStatus) IsCanonical() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusBusy:
		return true
	}
	return false
}

// Device is the provider-independent representation of a VoIP endpoint.
type Device struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type DeviceType `json:"type"`

	UserID    *string `json:"user_id,omitempty"`
	Extension *string `json:"extension,omitempty"`

	// MACAddress is always in canonical AA:BB:CC:DD:EE:FF form.
	MACAddress      *string `json:"mac_address,omitempty"`
	IPAddress       *string `json:"ip_address,omitempty"`
	Manufacturer    *string `json:"manufacturer,omitempty"`
	Model           *string `json:"model,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`

	Status   DeviceStatus `json:"status"`
	LastSeen *time.Time   `json:"last_seen,omitempty"`

	Metadata *ProviderMetadata `json:"metadata,omitempty"`
}

// DeviceCreate carries the fields required to provision a device.
type DeviceCreate struct {
	Name         string     `json:"name"`
	Type         DeviceType `json:"type"`
	MACAddress   string     `json:"mac_address"`
	UserID       *string    `json:"user_id,omitempty"`
	Manufacturer *string    `json:"manufacturer,omitempty"`
	Model        *string    `json:"model,omitempty"`
}

// DeviceUpdate is a partial update: only non-nil fields are sent to the
// vendor.
type DeviceUpdate struct {
	Name       *string     `json:"name,omitempty"`
	Type       *DeviceType `json:"type,omitempty"`
	UserID     *string     `json:"user_id,omitempty"`
	Extension  *string     `json:"extension,omitempty"`
	MACAddress *string     `json:"mac_address,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *DeviceUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.UserID == nil &&
		u.Extension == nil && u.MACAddress == nil
}

// NormalizeMAC converts any common MAC representation (colon, dash, or
// dot separated, bare hex, any case) to the canonical colon-delimited
// uppercase form AA:BB:CC:DD:EE:FF. It is idempotent. Returns a
// validation error for anything that is not exactly 12 hex digits.
func NormalizeMAC(mac string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(mac))

	if len(cleaned) != 12 {
		return "", NewValidationError("invalid MAC address %q: expected 12 hex digits", mac)
	}

	cleaned = strings.ToUpper(cleaned)
	for _, r := range cleaned {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", NewValidationError("invalid MAC address %q: non-hex character %q", mac, r)
		}
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(cleaned[i : i+2])
	}
	return b.String(), nil
}
