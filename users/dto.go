package users

import (
	"time"

	"github.com/user/quizcraft-go/userstore"
)

// ProfileResponse is the player profile returned to an authenticated client.
type ProfileResponse struct {
	ID         int64     `json:"id" example:"42"`
	IdentityID string    `json:"identity_id" example:"7a3f1c2e-9b10-4f6d-8a21-0c4d5e6f7a8b"`
	Name       string    `json:"name" example:"Jordan Quinn"`
	Email      string    `json:"email" example:"jordan@example.com"`
	Role       string    `json:"role" example:"student"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateProfileRequest carries the editable profile fields. Absent fields
// are left unchanged.
type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty" example:"Jordan Q."`
	Role *string `json:"role,omitempty" example:"instructor"`
}

func profileFromRow(row *userstore.Row) *ProfileResponse {
	return &ProfileResponse{
		ID:         row.ID,
		IdentityID: row.IdentityID,
		Name:       row.Name,
		Email:      row.Email,
		Role:       row.Role,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
