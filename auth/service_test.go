package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/config"
	"github.com/user/quizcraft-go/guard"
	"github.com/user/quizcraft-go/identity"
	"github.com/user/quizcraft-go/userstore"
)

// fakeProvider records calls instead of talking to an identity service.
type fakeProvider struct {
	createCalls int
	createErr   error
	nextID      string

	deleteCalls []string
	deleteErr   error

	session   *identity.Session
	signInErr error
}

func (f *fakeProvider) CreateAccount(_ context.Context, _, _ string, _ identity.Metadata) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.nextID, nil
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeProvider) Refresh(context.Context, string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeProvider) DeleteAccount(_ context.Context, id string) error {
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

// fakeStore records inserts instead of talking to a record store.
type fakeStore struct {
	exists      bool
	existsErr   error
	existsCalls int

	insertErr error
	inserted  []*userstore.Row
}

func (f *fakeStore) EmailExists(context.Context, string) (bool, error) {
	f.existsCalls++
	return f.exists, f.existsErr
}

func (f *fakeStore) Insert(_ context.Context, row *userstore.Row) (*userstore.Row, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	row.ID = int64(len(f.inserted) + 1)
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	f.inserted = append(f.inserted, row)
	return row, nil
}

func (f *fakeStore) GetByIdentity(context.Context, string) (*userstore.Row, error) {
	return nil, apperror.NewNotFoundError("player not found", nil)
}

func (f *fakeStore) UpdateProfile(context.Context, string, userstore.ProfileUpdate) (*userstore.Row, error) {
	return nil, apperror.NewNotFoundError("player not found", nil)
}

func newTestService(provider *fakeProvider, store *fakeStore) *Service {
	limiter := guard.NewLimiter(guard.NewMemoryStore(), &config.GuardConfig{
		Window:     15 * time.Minute,
		EmailLimit: 3,
		IPLimit:    6,
	})
	return NewService(limiter, provider, store, 50, zap.NewNop())
}

func validSignup() SignupRequest {
	return SignupRequest{
		Name:            "Jordan Quinn",
		Email:           "Jordan@Example.com",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		Role:            "student",
	}
}

func TestSignupSuccess(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{}
	svc := newTestService(provider, store)

	row, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "identity-123", row.IdentityID)
	assert.Equal(t, "jordan@example.com", row.Email) // normalized
	assert.Equal(t, userstore.PasswordPlaceholder, row.Password)
	assert.Equal(t, "student", row.Role)
	assert.Equal(t, 1, provider.createCalls)
	assert.Empty(t, provider.deleteCalls)
}

// Mismatched passwords always yield the "do not match" violation and never
// forward a request.
func TestSignupMismatchNeverForwards(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{}
	svc := newTestService(provider, store)

	req := validSignup()
	req.ConfirmPassword = "Different!1pass"

	for i := 0; i < 3; i++ {
		_, err := svc.Signup(context.Background(), req, "10.0.0.1")
		require.Error(t, err)
		assert.True(t, apperror.IsValidationError(err))
		assert.Contains(t, err.Error(), "Passwords do not match")
	}
	assert.Equal(t, 0, provider.createCalls)
	assert.Equal(t, 0, store.existsCalls)
}

// A taken email is reported before any create-account call is attempted.
func TestSignupExistingEmailSkipsCreate(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{exists: true}
	svc := newTestService(provider, store)

	_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
	assert.Contains(t, err.Error(), "Email already exists")
	assert.Equal(t, 0, provider.createCalls)
}

// A failed record insert triggers the compensating identity delete.
func TestSignupInsertFailureCompensates(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{insertErr: apperror.NewDatabaseError("insert failed", nil)}
	svc := newTestService(provider, store)

	_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, []string{"identity-123"}, provider.deleteCalls)
}

// The compensating delete is best-effort: its own failure is swallowed and
// the original insert error is what the caller sees.
func TestSignupCompensationFailureSwallowed(t *testing.T) {
	provider := &fakeProvider{
		nextID:    "identity-123",
		deleteErr: errors.New("admin endpoint unreachable"),
	}
	store := &fakeStore{insertErr: apperror.NewDatabaseError("insert failed", nil)}
	svc := newTestService(provider, store)

	_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.Equal(t, []string{"identity-123"}, provider.deleteCalls)
}

// Only forwarded requests consume rate-limit quota: after 3 forwarded
// signups with the same email, the 4th is denied before reaching the
// provider, regardless of IP.
func TestSignupRateLimitAfterForwardedAttempts(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{}
	svc := newTestService(provider, store)

	for i := 0; i < 3; i++ {
		_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
		require.NoError(t, err)
	}

	_, err := svc.Signup(context.Background(), validSignup(), "192.168.7.7")
	require.Error(t, err)
	assert.True(t, apperror.IsRateLimitError(err))
	assert.Equal(t, 3, provider.createCalls)

	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Greater(t, appErr.RetryAfter, int64(0))
}

// Validation failures and denials consume no quota.
func TestSignupInvalidAttemptsDoNotConsumeQuota(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{}
	svc := newTestService(provider, store)

	bad := validSignup()
	bad.ConfirmPassword = "nope-nope-1!"
	for i := 0; i < 10; i++ {
		_, err := svc.Signup(context.Background(), bad, "10.0.0.1")
		require.Error(t, err)
	}

	_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
	assert.NoError(t, err)
}

// An empty IP is keyed into the shared unknown bucket rather than failing.
func TestSignupEmptyIPUsesUnknownBucket(t *testing.T) {
	provider := &fakeProvider{nextID: "identity-123"}
	store := &fakeStore{}
	svc := newTestService(provider, store)

	_, err := svc.Signup(context.Background(), validSignup(), "")
	assert.NoError(t, err)
}

func TestSignupProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		kind      identity.Kind
		wantType  apperror.ErrorType
		wantInMsg string
	}{
		{"already registered", identity.KindAlreadyRegistered, apperror.ConflictError, "Email already exists"},
		{"provider rate limited", identity.KindRateLimited, apperror.RateLimitError, "Too many attempts"},
		{"weak password", identity.KindWeakPassword, apperror.ValidationError, "too weak"},
		{"invalid email", identity.KindInvalidEmail, apperror.ValidationError, "valid email"},
		{"network failure", identity.KindNetwork, apperror.ExternalServiceError, "Unable to reach"},
		{"server failure", identity.KindServer, apperror.ExternalServiceError, "temporarily unavailable"},
		{"unclassified", identity.KindUnknown, apperror.InternalError, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{createErr: &identity.Error{Kind: tt.kind}}
			svc := newTestService(provider, &fakeStore{})

			_, err := svc.Signup(context.Background(), validSignup(), "10.0.0.1")
			require.Error(t, err)

			appErr, ok := apperror.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Contains(t, appErr.Message, tt.wantInMsg)
		})
	}
}

func TestLogin(t *testing.T) {
	provider := &fakeProvider{session: &identity.Session{AccessToken: "acc", RefreshToken: "ref", TokenType: "Bearer"}}
	svc := newTestService(provider, &fakeStore{})

	session, err := svc.Login(context.Background(), LoginRequest{Email: "jo@x.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, "acc", session.AccessToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	provider := &fakeProvider{signInErr: &identity.Error{Kind: identity.KindInvalidCredentials}}
	svc := newTestService(provider, &fakeStore{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "jo@x.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
	assert.Contains(t, err.Error(), "Invalid email or password")
}
