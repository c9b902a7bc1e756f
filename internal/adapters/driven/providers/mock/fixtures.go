package mock

import (
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

func str(s string) *string { return &s }

func seedUsers() []*domain.User {
	created := time.Now().UTC().Add(-30 * 24 * time.Hour)

	mk := func(id, username, email, first, last, ext, did, dept string, status domain.UserStatus) *domain.User {
		return &domain.User{
			ID:           id,
			Username:     username,
			Email:        str(email),
			FirstName:    str(first),
			LastName:     str(last),
			Extension:    str(ext),
			DID:          str(did),
			Department:   str(dept),
			Status:       status,
			HasVoicemail: true,
			CreatedAt:    &created,
			Metadata:     metadata(id),
		}
	}

	return []*domain.User{
		mk("user-001", "jsmith", "john.smith@testdental.com", "John", "Smith", "101", "+15551234101", "Front Desk", domain.UserStatusActive),
		mk("user-002", "mjohnson", "mary.johnson@testdental.com", "Mary", "Johnson", "102", "+15551234102", "Hygiene", domain.UserStatusActive),
		mk("user-003", "drwilliams", "dr.williams@testdental.com", "Robert", "Williams", "103", "+15551234103", "Dentist", domain.UserStatusActive),
		mk("user-004", "sbrown", "sarah.brown@testdental.com", "Sarah", "Brown", "104", "+15551234104", "Front Desk", domain.UserStatusActive),
		mk("user-005", "drdavis", "dr.davis@testdental.com", "Emily", "Davis", "105", "+15551234105", "Dentist", domain.UserStatusActive),
		mk("user-006", "jgarcia", "jose.garcia@testdental.com", "Jose", "Garcia", "106", "+15551234106", "Billing", domain.UserStatusActive),
		mk("user-007", "amiller", "amanda.miller@testdental.com", "Amanda", "Miller", "107", "+15551234107", "Hygiene", domain.UserStatusInactive),
		mk("user-008", "twang", "tom.wang@testdental.com", "Tom", "Wang", "108", "+15551234108", "IT", domain.UserStatusActive),
	}
}

func seedDevices() []*domain.Device {
	lastSeen := time.Now().UTC().Add(-5 * time.Minute)

	mk := func(id, name string, devType domain.DeviceType, userID, mac, manufacturer, model string, status domain.DeviceStatus) *domain.Device {
		d := &domain.Device{
			ID:           id,
			Name:         name,
			Type:         devType,
			Manufacturer: str(manufacturer),
			Model:        str(model),
			Status:       status,
			LastSeen:     &lastSeen,
			Metadata:     metadata(id),
		}
		if userID != "" {
			d.UserID = str(userID)
		}
		if mac != "" {
			d.MACAddress = str(mac)
		}
		return d
	}

	return []*domain.Device{
		mk("device-001", "Front Desk Phone 1", domain.DeviceTypeDeskPhone, "user-001", "AA:BB:CC:DD:EE:01", "Polycom", "VVX 450", domain.DeviceStatusOnline),
		mk("device-002", "Front Desk Phone 2", domain.DeviceTypeDeskPhone, "user-004", "AA:BB:CC:DD:EE:02", "Polycom", "VVX 450", domain.DeviceStatusOnline),
		mk("device-003", "Hygiene Room 1", domain.DeviceTypeDeskPhone, "user-002", "AA:BB:CC:DD:EE:03", "Yealink", "T46U", domain.DeviceStatusOnline),
		mk("device-004", "Dr. Williams Office", domain.DeviceTypeDeskPhone, "user-003", "AA:BB:CC:DD:EE:04", "Polycom", "VVX 601", domain.DeviceStatusOffline),
		mk("device-005", "Dr. Davis Office", domain.DeviceTypeDeskPhone, "user-005", "AA:BB:CC:DD:EE:05", "Polycom", "VVX 601", domain.DeviceStatusOnline),
		mk("device-006", "Billing Softphone", domain.DeviceTypeSoftphone, "user-006", "", "NetSapiens", "Desktop App", domain.DeviceStatusOnline),
		mk("device-007", "Conference Room", domain.DeviceTypeConference, "", "AA:BB:CC:DD:EE:07", "Poly", "Trio 8500", domain.DeviceStatusOnline),
	}
}
