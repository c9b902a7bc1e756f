package netsapiens

import (
	"strings"

	"github.com/peerlogic/voip-core/internal/core/domain"
)

// Config is the NetSapiens-specific portion of a connection's Config map.
type Config struct {
	// Domain is the NetSapiens tenant domain all resource calls are
	// scoped to.
	Domain string

	// Territory (reseller) is optional.
	Territory string
}

// ParseConfig validates and extracts NetSapiens settings from a connection.
func ParseConfig(conn *domain.Connection) (Config, error) {
	cfg := Config{
		Domain:    strings.TrimSpace(conn.Config["domain"]),
		Territory: strings.TrimSpace(conn.Config["territory"]),
	}
	if cfg.Domain == "" {
		return Config{}, domain.NewValidationError("netsapiens connection %s is missing config key %q", conn.ID, "domain")
	}
	if conn.BaseURL == "" {
		return Config{}, domain.NewValidationError("netsapiens connection %s has no base URL", conn.ID)
	}
	return cfg, nil
}
