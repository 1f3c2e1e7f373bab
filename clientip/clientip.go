// Package clientip resolves the client IP the signup guard keys its
// rate-limit buckets on. Resolution is best-effort: a request whose address
// cannot be determined falls back to the Unknown sentinel rather than
// failing the signup.
package clientip

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/user/quizcraft-go/config"
)

// Unknown is the sentinel key used when no client IP could be determined.
// All such requests share one rate-limit bucket.
const Unknown = "unknown"

// Resolver determines the client IP for a request, optionally consulting an
// external lookup endpoint when the request itself carries no usable address.
type Resolver struct {
	endpoint   string
	httpClient *http.Client
}

// NewResolver creates a Resolver. An empty endpoint disables the external
// lookup entirely.
func NewResolver(cfg *config.IPLookupConfig) *Resolver {
	return &Resolver{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Resolve returns the rate-limit key for a request: the request's remote
// address (already rewritten from proxy headers by the router middleware),
// then the external lookup, then Unknown.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) string {
	if ip := FromRequest(req); ip != "" {
		return ip
	}
	if ip := r.Lookup(ctx); ip != "" {
		return ip
	}
	return Unknown
}

func (r *Resolver) lookupEnabled() bool {
	return r.endpoint != ""
}

// FromRequest extracts the IP portion of the request's remote address.
// Returns "" when no address is present or it cannot be parsed.
func FromRequest(req *http.Request) string {
	addr := strings.TrimSpace(req.RemoteAddr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	// RemoteAddr rewritten by proxy-header middleware has no port.
	if net.ParseIP(addr) != nil {
		return addr
	}
	return ""
}

// Lookup queries the configured endpoint, which answers `{"ip": "..."}`.
// Any failure (disabled, unreachable, timeout, malformed body) returns "".
func (r *Resolver) Lookup(ctx context.Context) string {
	if !r.lookupEnabled() {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.IP)
}
