package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_KindMatching(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{NewValidationError("bad input"), ErrValidation},
		{NewNotFoundError("user %s missing", "u1"), ErrNotFound},
		{NewAuthenticationError("rejected"), ErrAuthentication},
		{NewRateLimitError("throttled"), ErrRateLimit},
		{NewProviderUnavailableError("down"), ErrProviderUnavailable},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("expected %v to match its kind sentinel", tt.err)
		}
	}
}

func TestError_KindsDoNotCrossMatch(t *testing.T) {
	err := NewNotFoundError("missing")
	if errors.Is(err, ErrAuthentication) {
		t.Error("not_found must not match authentication")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("not_found must not match validation")
	}
}

func TestError_MatchesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("list users: %w", NewRateLimitError("throttled"))
	if !IsRateLimit(wrapped) {
		t.Error("expected wrapped rate_limit error to match")
	}
}

func TestError_VendorDiagnostics(t *testing.T) {
	err := NewNotFoundError("subscriber missing").
		WithVendorStatus(404).
		WithVendorCode("NS-404")

	if err.VendorStatus != 404 {
		t.Errorf("expected vendor status 404, got %d", err.VendorStatus)
	}
	if err.VendorCode != "NS-404" {
		t.Errorf("expected vendor code NS-404, got %s", err.VendorCode)
	}
	// Diagnostics never change the kind
	if !IsNotFound(err) {
		t.Error("expected kind to survive diagnostic attachment")
	}
}

func TestError_MessageFormat(t *testing.T) {
	err := NewValidationError("field %s is bad", "mac")
	want := "validation: field mac is bad"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	withStatus := NewProviderUnavailableError("vendor down").WithVendorStatus(503)
	want = "provider_unavailable: vendor down (vendor status 503)"
	if withStatus.Error() != want {
		t.Errorf("Error() = %q, want %q", withStatus.Error(), want)
	}
}

func TestKindHelpers(t *testing.T) {
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors must not match any kind")
	}
	if IsNotFound(nil) {
		t.Error("nil must not match any kind")
	}
}
