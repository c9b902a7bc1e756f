package netsapiens

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/peerlogic/voip-core/internal/core/domain"
	"github.com/peerlogic/voip-core/internal/core/ports/driven"
)

const (
	// requestTimeout bounds every vendor call so one slow NetSapiens
	// core cannot stall unrelated connections.
	requestTimeout = 8 * time.Second

	// rateLimitRetries is the retry budget for vendor 429 responses.
	rateLimitRetries = 2

	// backoffBase is the first backoff step when the vendor supplies no
	// Retry-After hint; it doubles per attempt.
	backoffBase = 500 * time.Millisecond
)

// apiError is the NetSapiens error payload shape.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// client performs authenticated JSON calls against one NetSapiens core
// and maps every failure to a canonical error kind before returning.
type client struct {
	conn       *domain.Connection
	tokens     driven.TokenManager
	httpClient *http.Client
	baseURL    string

	// sleep is overridable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func newClient(conn *domain.Connection, tokens driven.TokenManager) *client {
	return &client{
		conn:       conn,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimSuffix(conn.BaseURL, "/"),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// getJSON performs a GET and decodes the response into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// doJSON performs one authenticated request with rate-limit retries.
// body, when non-nil, is JSON-encoded; out, when non-nil, receives the
// decoded response.
func (c *client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return domain.NewValidationError("encode request body: %v", err)
		}
	}

	for attempt := 0; ; attempt++ {
		retryAfter, err := c.doOnce(ctx, method, path, query, encoded, out)
		if err == nil {
			return nil
		}
		if !domain.IsRateLimit(err) || attempt >= rateLimitRetries {
			return err
		}

		wait := retryAfter
		if wait <= 0 {
			wait = backoffBase << attempt
		}
		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return domain.NewProviderUnavailableError("request cancelled during rate-limit backoff: %v", sleepErr)
		}
	}
}

// doOnce performs a single request/response cycle. For 429 responses the
// returned error is a canonical rate_limit error and retryAfter carries
// the vendor's hint (zero when absent).
func (c *client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte, out any) (retryAfter time.Duration, err error) {
	token, err := c.tokens.GetValidToken(ctx, c.conn)
	if err != nil {
		return 0, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, domain.NewValidationError("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, domain.NewProviderUnavailableError("request to %s timed out or was cancelled", path)
		}
		return 0, domain.NewProviderUnavailableError("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapErrorResponse(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, domain.NewValidationError("unexpected payload from %s: %v", path, err).
				WithVendorStatus(resp.StatusCode)
		}
	}
	return 0, nil
}

// mapErrorResponse normalizes a vendor error response into exactly one
// canonical kind. Vendor payload internals never propagate beyond the
// message and diagnostic code.
func (c *client) mapErrorResponse(resp *http.Response, path string) (time.Duration, error) {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var vendorErr apiError
	_ = json.Unmarshal(raw, &vendorErr)
	msg := vendorErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The token we sent was supposed to be valid; force a fresh
		// acquisition before the next call.
		c.tokens.Invalidate(c.conn.ID)
		return 0, domain.NewAuthenticationError("vendor rejected credentials: %s", msg).
			WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)

	case resp.StatusCode == http.StatusForbidden:
		return 0, domain.NewAuthenticationError("vendor denied access: %s", msg).
			WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)

	case resp.StatusCode == http.StatusNotFound:
		return 0, domain.NewNotFoundError("%s", msg).
			WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)

	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp.Header.Get("Retry-After")),
			domain.NewRateLimitError("vendor throttled %s: %s", path, msg).
				WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)

	case resp.StatusCode >= 500:
		return 0, domain.NewProviderUnavailableError("vendor error on %s: %s", path, msg).
			WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)

	default:
		return 0, domain.NewValidationError("vendor rejected request to %s: %s", path, msg).
			WithVendorStatus(resp.StatusCode).WithVendorCode(vendorErr.Code)
	}
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
// Returns zero when the header is absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// resourcePath joins the v2 API prefix with a resource path.
func resourcePath(parts ...string) string {
	return "/ns-api/v2/" + strings.Join(parts, "/")
}

// itemPath escapes the id segment of a resource path.
func itemPath(resource, id string) string {
	return fmt.Sprintf("/ns-api/v2/%s/%s", resource, url.PathEscape(id))
}
