// Package identity binds the application to its identity provider: the
// hosted service that owns credentials, or a Postgres-backed local provider
// exposing the same contract. The signup flow only ever talks to the
// Provider interface.
package identity

import "context"

// Metadata is the extra account data attached at creation time.
type Metadata struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the token pair returned on a successful sign-in or refresh.
type Session struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"def50200..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"900"` // access token lifetime in seconds
}

// Provider is the identity service contract. Implementations return *Error
// values with a structured Kind so callers never have to parse message text
// themselves.
type Provider interface {
	// CreateAccount registers credentials with the provider and returns the
	// new identity's id.
	CreateAccount(ctx context.Context, email, password string, meta Metadata) (string, error)
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// DeleteAccount removes an identity. It backs the compensating action
	// after a failed record insert and requires elevated credentials in
	// hosted mode.
	DeleteAccount(ctx context.Context, id string) error
}
