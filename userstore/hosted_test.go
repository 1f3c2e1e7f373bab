package userstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/config"
)

func hostedStore(baseURL string) *HostedStore {
	return NewHostedStore(&config.StoreConfig{
		Mode:       config.ModeHosted,
		BaseURL:    baseURL,
		ServiceKey: "store-key",
		Timeout:    2 * time.Second,
	})
}

func TestEmailExists(t *testing.T) {
	tests := []struct {
		name string
		rows string
		want bool
	}{
		{"existing email", `[{"id": 7}]`, true},
		{"unknown email", `[]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/players", r.URL.Path)
				// the lookup filters on the normalized email
				require.Equal(t, "eq.jo@x.com", r.URL.Query().Get("email"))
				require.Equal(t, "Bearer store-key", r.Header.Get("Authorization"))
				w.Write([]byte(tt.rows))
			}))
			defer srv.Close()

			exists, err := hostedStore(srv.URL).EmailExists(context.Background(), " Jo@X.com ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestInsert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "identity-123", payload["identity_id"])
		assert.Equal(t, "jo@x.com", payload["email"])
		assert.Equal(t, PasswordPlaceholder, payload["password"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":          42,
			"identity_id": "identity-123",
			"name":        "Jo Quinn",
			"email":       "jo@x.com",
			"role":        "student",
		}})
	}))
	defer srv.Close()

	row, err := hostedStore(srv.URL).Insert(context.Background(), &Row{
		IdentityID: "identity-123",
		Name:       "Jo Quinn",
		Email:      "Jo@X.com",
		Password:   PasswordPlaceholder,
		Role:       "student",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.ID)
	assert.Equal(t, "identity-123", row.IdentityID)
}

func TestInsertConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	_, err := hostedStore(srv.URL).Insert(context.Background(), &Row{Email: "jo@x.com"})
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
}

func TestInsertServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := hostedStore(srv.URL).Insert(context.Background(), &Row{Email: "jo@x.com"})
	require.Error(t, err)
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ExternalServiceError, appErr.Type)
}

func TestGetByIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eq.identity-123", r.URL.Query().Get("identity_id"))
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": 42, "identity_id": "identity-123", "name": "Jo Quinn", "email": "jo@x.com", "role": "student",
		}})
	}))
	defer srv.Close()

	row, err := hostedStore(srv.URL).GetByIdentity(context.Background(), "identity-123")
	require.NoError(t, err)
	assert.Equal(t, "Jo Quinn", row.Name)
}

func TestGetByIdentityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := hostedStore(srv.URL).GetByIdentity(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, map[string]string{"name": "New Name"}, payload)
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": 42, "identity_id": "identity-123", "name": "New Name", "email": "jo@x.com", "role": "student",
		}})
	}))
	defer srv.Close()

	name := "New Name"
	row, err := hostedStore(srv.URL).UpdateProfile(context.Background(), "identity-123", ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", row.Name)
}
