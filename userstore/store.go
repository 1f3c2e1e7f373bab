// Package userstore binds the application to its record store: the hosted
// service's REST surface or a Postgres table exposing the same contract. It
// owns the player row that the signup flow inserts after an identity is
// created.
package userstore

import (
	"context"
	"time"
)

// PasswordPlaceholder is the only value ever written to the row's password
// column. Credentials live with the identity provider; the column exists for
// schema compatibility with the hosted store.
const PasswordPlaceholder = "managed-by-identity-provider"

// Row is one player record.
type Row struct {
	ID         int64     `json:"id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // placeholder only, never exposed
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields. Nil means "leave as is".
type ProfileUpdate struct {
	Name *string
	Role *string
}

// Store is the record store contract.
type Store interface {
	// EmailExists reports whether a row with the normalized email exists.
	// The signup flow consults it before any create-account call.
	EmailExists(ctx context.Context, email string) (bool, error)
	// Insert stores a new row and returns it with its id and timestamps.
	Insert(ctx context.Context, row *Row) (*Row, error)
	// GetByIdentity fetches the row for an identity id.
	GetByIdentity(ctx context.Context, identityID string) (*Row, error)
	// UpdateProfile applies a partial update and returns the updated row.
	UpdateProfile(ctx context.Context, identityID string, changes ProfileUpdate) (*Row, error)
}
