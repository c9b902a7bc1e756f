package domain

import "time"

// UserStatus is the canonical user status vocabulary. Vendor-native values
// outside this set are preserved verbatim as the enum's string value,
// never dropped or coerced to a default.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

// IsCanonical reports whether the status is one of the enumerated values,
// as opposed to a vendor passthrough.
func (s UserStatus) IsCanonical() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended, UserStatusPending:
		return true
	}
	return false
}

// User is the provider-independent representation of a VoIP user/extension.
//
// Maps to a NetSapiens subscriber, a RingCentral extension, an 8x8 user.
// Optional fields are pointers so "not provided by vendor" is
// distinguishable from an empty string.
type User struct {
	// ID is the provider-native identifier, stable and unique within
	// one connection.
	ID string `json:"id"`

	Username    string  `json:"username"`
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`

	Extension *string `json:"extension,omitempty"`
	// DID is the user's direct-inward-dial number, E.164 where possible.
	DID *string `json:"did,omitempty"`

	Status UserStatus `json:"status"`

	Department *string `json:"department,omitempty"`
	Site       *string `json:"site,omitempty"`

	HasVoicemail bool `json:"has_voicemail"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Metadata *ProviderMetadata `json:"metadata,omitempty"`
}

// FullName returns "First Last" when both are present, else the display
// name, else the username.
func (u *User) FullName() string {
	if u.FirstName != nil && u.LastName != nil {
		return *u.FirstName + " " + *u.LastName
	}
	if u.DisplayName != nil {
		return *u.DisplayName
	}
	return u.Username
}

// UserCreate carries the fields required to create a user.
type UserCreate struct {
	Username   string  `json:"username"`
	Email      *string `json:"email,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Extension  *string `json:"extension,omitempty"`
	Password   *string `json:"password,omitempty"` // some vendors require it
	Department *string `json:"department,omitempty"`
	Site       *string `json:"site,omitempty"`
}

// UserUpdate is a partial update: only non-nil fields are sent to the
// vendor, everything else is left untouched vendor-side.
type UserUpdate struct {
	Email      *string     `json:"email,omitempty"`
	FirstName  *string     `json:"first_name,omitempty"`
	LastName   *string     `json:"last_name,omitempty"`
	Extension  *string     `json:"extension,omitempty"`
	Status     *UserStatus `json:"status,omitempty"`
	Department *string     `json:"department,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil &&
		u.Extension == nil && u.Status == nil && u.Department == nil
}

// ProviderMetadata records where a canonical entity came from.
type ProviderMetadata struct {
	ProviderType ProviderType `json:"provider_type"`
	RawID        string       `json:"raw_id"`
}
