package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/clientip"
	"github.com/user/quizcraft-go/guard"
	"github.com/user/quizcraft-go/identity"
	"github.com/user/quizcraft-go/userstore"
)

// Service runs the account flows. Signup is gated by the signup guard:
// nothing reaches the identity provider until validation and the rate limit
// both pass and the email is not already taken.
type Service struct {
	limiter     *guard.Limiter
	provider    identity.Provider
	store       userstore.Store
	logger      *zap.Logger
	minStrength int
}

// NewService creates the account flow service.
func NewService(limiter *guard.Limiter, provider identity.Provider, store userstore.Store, minStrength int, logger *zap.Logger) *Service {
	return &Service{
		limiter:     limiter,
		provider:    provider,
		store:       store,
		logger:      logger,
		minStrength: minStrength,
	}
}

// Signup decides whether to forward a create-account request and, when
// allowed, drives the sequential chain: existence check, create account,
// insert record. A failed insert triggers a best-effort delete of the
// just-created identity so no orphaned account remains.
func (s *Service) Signup(ctx context.Context, req SignupRequest, ip string) (*userstore.Row, error) {
	fields := guard.Fields{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	}
	if violations := guard.ValidateSignup(fields, s.minStrength); len(violations) > 0 {
		// The first violation is the user-facing message.
		return nil, apperror.NewValidationError(violations[0].Message, nil)
	}

	if ip == "" {
		ip = clientip.Unknown
	}
	decision, err := s.limiter.Check(ctx, req.Email, ip)
	if err != nil {
		// A broken attempt store must not block signups; the limit is a
		// soft deterrent.
		s.logger.Warn("rate limit check failed, allowing attempt",
			zap.Error(err))
	} else if !decision.Allowed {
		return nil, apperror.NewRateLimitError(decision.Reason, int64(decision.RetryAfter.Seconds()))
	}

	email := guard.NormalizeEmail(req.Email)
	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		// No create-account call is attempted for a taken email.
		return nil, apperror.NewConflictError("Email already exists", nil)
	}

	role := guard.NormalizeRole(req.Role)
	identityID, err := s.provider.CreateAccount(ctx, email, req.Password, identity.Metadata{
		Name: req.Name,
		Role: role,
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	// The request was forwarded; it counts against the rate limit from here
	// on, whatever happens to the record insert.
	if err := s.limiter.Record(ctx, email, ip); err != nil {
		s.logger.Warn("failed to record signup attempt", zap.Error(err))
	}

	row, err := s.store.Insert(ctx, &userstore.Row{
		IdentityID: identityID,
		Name:       req.Name,
		Email:      email,
		Password:   userstore.PasswordPlaceholder,
		Role:       role,
	})
	if err != nil {
		s.compensateCreate(ctx, identityID, email)
		return nil, err
	}

	return row, nil
}

// compensateCreate deletes the identity created by a signup whose record
// insert failed. Best-effort only: its own failure is logged and swallowed,
// leaving an orphaned identity as a known risk.
func (s *Service) compensateCreate(ctx context.Context, identityID, email string) {
	if err := s.provider.DeleteAccount(ctx, identityID); err != nil {
		s.logger.Error("compensating identity delete failed, orphaned identity remains",
			zap.String("identity_id", identityID),
			zap.String("email", email),
			zap.Error(err))
		return
	}
	s.logger.Info("rolled back identity after failed record insert",
		zap.String("identity_id", identityID))
}

// Login forwards credentials to the identity provider.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*identity.Session, error) {
	session, err := s.provider.SignIn(ctx, guard.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return session, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return session, nil
}

// classifyProviderError maps a provider error's structured kind onto the
// application error taxonomy, with the user-facing message for each
// category.
func classifyProviderError(err error) *apperror.AppError {
	switch identity.KindOf(err) {
	case identity.KindAlreadyRegistered:
		return apperror.NewConflictError("Email already exists", err)
	case identity.KindRateLimited:
		return apperror.NewRateLimitError("Too many attempts. Please wait a moment and try again", 60)
	case identity.KindWeakPassword:
		return apperror.NewValidationError("Password is too weak. Use a mix of uppercase letters, numbers, and symbols", err)
	case identity.KindInvalidEmail:
		return apperror.NewValidationError("Please enter a valid email address", err)
	case identity.KindInvalidCredentials:
		return apperror.NewAuthError("Invalid email or password", err)
	case identity.KindNetwork:
		return apperror.NewExternalServiceError("Unable to reach the authentication service. Please check your connection and try again", err)
	case identity.KindServer:
		return apperror.NewExternalServiceError("The authentication service is temporarily unavailable. Please try again later", err)
	default:
		if appErr, ok := apperror.FromError(err); ok {
			return appErr
		}
		return apperror.NewInternalError("Something went wrong. Please try again", err)
	}
}
