package domain

// ProviderType identifies a VoIP provider platform
type ProviderType string

const (
	// Implemented providers
	ProviderTypeNetSapiens ProviderType = "netsapiens"
	ProviderTypeMock       ProviderType = "mock"

	// Reserved for future integrations
	ProviderTypeRingCentral  ProviderType = "ringcentral"
	ProviderTypeEightByEight ProviderType = "8x8"
	ProviderTypeVonage       ProviderType = "vonage"
)

// ProviderInfo provides metadata about a provider platform
type ProviderInfo struct {
	Type        ProviderType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DocsURL     string       `json:"docs_url,omitempty"`

	// Capability flags - what the platform can manage
	SupportsUsers      bool `json:"supports_users"`
	SupportsDevices    bool `json:"supports_devices"`
	SupportsCallQueues bool `json:"supports_call_queues"`
	SupportsVoicemail  bool `json:"supports_voicemail"`

	// Available reports whether an adapter is implemented
	Available bool `json:"available"`
}

// KnownProviders returns every provider type the canonical model recognises,
// implemented or reserved.
func KnownProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeNetSapiens,
		ProviderTypeMock,
		ProviderTypeRingCentral,
		ProviderTypeEightByEight,
		ProviderTypeVonage,
	}
}

// providerCatalog holds display metadata per provider type. Available is
// left false here; callers set it from the registered adapter types.
var providerCatalog = map[ProviderType]ProviderInfo{
	ProviderTypeNetSapiens: {
		Type:              ProviderTypeNetSapiens,
		Name:              "NetSapiens",
		Description:       "NetSapiens SNAPsolution platform via ns-api v2",
		DocsURL:           "https://docs.ns-api.com/",
		SupportsUsers:     true,
		SupportsDevices:   true,
		SupportsVoicemail: true,
	},
	ProviderTypeMock: {
		Type:            ProviderTypeMock,
		Name:            "Mock",
		Description:     "Deterministic in-memory provider for demos and testing",
		SupportsUsers:   true,
		SupportsDevices: true,
	},
	ProviderTypeRingCentral: {
		Type:            ProviderTypeRingCentral,
		Name:            "RingCentral",
		Description:     "RingCentral MVP (reserved, no adapter yet)",
		SupportsUsers:   true,
		SupportsDevices: true,
	},
	ProviderTypeEightByEight: {
		Type:            ProviderTypeEightByEight,
		Name:            "8x8 Work",
		Description:     "8x8 Work (reserved, no adapter yet)",
		SupportsUsers:   true,
		SupportsDevices: true,
	},
	ProviderTypeVonage: {
		Type:          ProviderTypeVonage,
		Name:          "Vonage Business Communications",
		Description:   "Vonage Business Communications (reserved, no adapter yet)",
		SupportsUsers: true,
	},
}

// DescribeProvider returns display metadata for a provider type. Unknown
// types get a minimal entry so callers can always render something.
func DescribeProvider(t ProviderType) ProviderInfo {
	if info, ok := providerCatalog[t]; ok {
		return info
	}
	return ProviderInfo{Type: t, Name: string(t)}
}
