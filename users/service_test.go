package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/userstore"
)

type fakeStore struct {
	row       *userstore.Row
	lastPatch userstore.ProfileUpdate
}

func (f *fakeStore) EmailExists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) Insert(_ context.Context, row *userstore.Row) (*userstore.Row, error) {
	return row, nil
}

func (f *fakeStore) GetByIdentity(_ context.Context, identityID string) (*userstore.Row, error) {
	if f.row == nil || f.row.IdentityID != identityID {
		return nil, apperror.NewNotFoundError("Player not found", nil)
	}
	return f.row, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, identityID string, update userstore.ProfileUpdate) (*userstore.Row, error) {
	if f.row == nil || f.row.IdentityID != identityID {
		return nil, apperror.NewNotFoundError("Player not found", nil)
	}
	f.lastPatch = update
	if update.Name != nil {
		f.row.Name = *update.Name
	}
	if update.Role != nil {
		f.row.Role = *update.Role
	}
	f.row.UpdatedAt = time.Now()
	return f.row, nil
}

func seededStore() *fakeStore {
	return &fakeStore{row: &userstore.Row{
		ID:         1,
		IdentityID: "identity-123",
		Name:       "Jordan Quinn",
		Email:      "jordan@example.com",
		Role:       "student",
	}}
}

func TestGetProfile(t *testing.T) {
	svc := NewService(seededStore())

	profile, err := svc.GetProfile(context.Background(), "identity-123")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Quinn", profile.Name)
	assert.Equal(t, "student", profile.Role)
}

func TestGetProfileNotFound(t *testing.T) {
	svc := NewService(seededStore())

	_, err := svc.GetProfile(context.Background(), "someone-else")
	require.Error(t, err)
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.NotFoundError, appErr.Type)
}

func TestUpdateProfile(t *testing.T) {
	store := seededStore()
	svc := NewService(store)

	name := "  Jordan Q.  "
	role := "Instructor"
	profile, err := svc.UpdateProfile(context.Background(), "identity-123", UpdateProfileRequest{
		Name: &name,
		Role: &role,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jordan Q.", profile.Name) // trimmed
	assert.Equal(t, "instructor", profile.Role)
}

func TestUpdateProfilePartial(t *testing.T) {
	store := seededStore()
	svc := NewService(store)

	name := "New Name"
	_, err := svc.UpdateProfile(context.Background(), "identity-123", UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, store.lastPatch.Role)
	assert.Equal(t, "student", store.row.Role)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := NewService(seededStore())

	shortName := "J"
	_, err := svc.UpdateProfile(context.Background(), "identity-123", UpdateProfileRequest{Name: &shortName})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))

	badRole := "admin"
	_, err = svc.UpdateProfile(context.Background(), "identity-123", UpdateProfileRequest{Role: &badRole})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))
}

func TestUpdateProfileEmpty(t *testing.T) {
	svc := NewService(seededStore())

	_, err := svc.UpdateProfile(context.Background(), "identity-123", UpdateProfileRequest{})
	require.Error(t, err)
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.BadRequestError, appErr.Type)
}
