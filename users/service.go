package users

import (
	"context"
	"strings"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/guard"
	"github.com/user/quizcraft-go/userstore"
)

// Service exposes player profile operations over the record store.
type Service struct {
	store userstore.Store
}

// NewService creates a user profile service.
func NewService(store userstore.Store) *Service {
	return &Service{store: store}
}

// GetProfile fetches the player record for an identity.
func (s *Service) GetProfile(ctx context.Context, identityID string) (*ProfileResponse, error) {
	row, err := s.store.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return profileFromRow(row), nil
}

// UpdateProfile applies the provided fields after validating them with the
// same rules the signup form uses.
func (s *Service) UpdateProfile(ctx context.Context, identityID string, req UpdateProfileRequest) (*ProfileResponse, error) {
	update := userstore.ProfileUpdate{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < guard.NameMinLen || len(name) > guard.NameMaxLen {
			return nil, apperror.NewValidationError("Name must be between 2 and 50 characters", nil)
		}
		update.Name = &name
	}

	if req.Role != nil {
		role := guard.NormalizeRole(*req.Role)
		if role != guard.RoleStudent && role != guard.RoleInstructor {
			return nil, apperror.NewValidationError("Role must be student or instructor", nil)
		}
		update.Role = &role
	}

	if update.Name == nil && update.Role == nil {
		return nil, apperror.NewBadRequestError("No fields to update", nil)
	}

	row, err := s.store.UpdateProfile(ctx, identityID, update)
	if err != nil {
		return nil, err
	}
	return profileFromRow(row), nil
}
