package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/config"
	"github.com/user/quizcraft-go/guard"
)

// HostedStore implements Store against the hosted record store's REST
// surface, which filters rows with `column=eq.value` query parameters and
// returns JSON arrays.
type HostedStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewHostedStore creates a hosted record store client from configuration.
func NewHostedStore(cfg *config.StoreConfig) *HostedStore {
	return &HostedStore{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// EmailExists reports whether a row with the normalized email exists.
func (s *HostedStore) EmailExists(ctx context.Context, email string) (bool, error) {
	path := "/players?select=id&limit=1&email=eq." + url.QueryEscape(guard.NormalizeEmail(email))
	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := s.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert stores a new row. The Prefer header asks the store to echo the
// created representation back so we get the id and timestamps.
func (s *HostedStore) Insert(ctx context.Context, row *Row) (*Row, error) {
	payload := map[string]string{
		"identity_id": row.IdentityID,
		"name":        row.Name,
		"email":       guard.NormalizeEmail(row.Email),
		"password":    row.Password,
		"role":        row.Role,
	}
	var created []Row
	if err := s.do(ctx, http.MethodPost, "/players", payload, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperror.NewExternalServiceError("record store returned no created row", nil)
	}
	out := created[0]
	out.Password = row.Password
	return &out, nil
}

// GetByIdentity fetches the row for an identity id.
func (s *HostedStore) GetByIdentity(ctx context.Context, identityID string) (*Row, error) {
	path := "/players?limit=1&identity_id=eq." + url.QueryEscape(identityID)
	var rows []Row
	if err := s.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NewNotFoundError("player not found", nil)
	}
	return &rows[0], nil
}

// UpdateProfile applies a partial update and returns the updated row.
func (s *HostedStore) UpdateProfile(ctx context.Context, identityID string, changes ProfileUpdate) (*Row, error) {
	payload := map[string]string{}
	if changes.Name != nil {
		payload["name"] = *changes.Name
	}
	if changes.Role != nil {
		payload["role"] = *changes.Role
	}

	path := "/players?identity_id=eq." + url.QueryEscape(identityID)
	var rows []Row
	if err := s.do(ctx, http.MethodPatch, path, payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NewNotFoundError("player not found", nil)
	}
	return &rows[0], nil
}

// do sends one request with the service key and decodes the JSON response.
func (s *HostedStore) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.NewInternalError("failed to encode record store request", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return apperror.NewInternalError("failed to build record store request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperror.NewExternalServiceError("record store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return apperror.NewConflictError("Email already exists", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.NewExternalServiceError(fmt.Sprintf("record store returned status %d", resp.StatusCode), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.NewExternalServiceError("malformed record store response", err)
	}
	return nil
}

// interface guard
var _ Store = (*HostedStore)(nil)
