package auth

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/clientip"
)

// Handlers wraps the Service to provide HTTP handlers for the account flows.
type Handlers struct {
	service  *Service
	resolver *clientip.Resolver
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, resolver *clientip.Resolver, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, resolver: resolver, logger: logger}
}

// HandleSignup godoc
// @Summary User Signup
// @Description Validates and rate-limits a signup, then forwards it to the identity provider and stores the player row.
// @Tags Auth
// @Accept json
// @Produce json
// @Param signupBody body auth.SignupRequest true "Signup form fields"
// @Success 201 {object} auth.SignupResponse "Account created"
// @Failure 400 {object} apperror.ErrorResponse "Validation failure"
// @Failure 409 {object} apperror.ErrorResponse "Email already exists"
// @Failure 429 {object} apperror.ErrorResponse "Too many signup attempts"
// @Failure 502 {object} apperror.ErrorResponse "Identity provider unavailable"
// @Router /auth/signup [post]
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		ip := h.resolver.Resolve(r.Context(), r)
		row, err := h.service.Signup(r.Context(), req, ip)
		if err != nil {
			h.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, SignupResponse{
			Message: "Account created successfully",
			Player:  row,
		})
	}
}

// HandleLogin godoc
// @Summary User Login
// @Description Forwards credentials to the identity provider and returns its session tokens.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "Sign-in credentials"
// @Success 200 {object} identity.Session "Login successful, tokens provided"
// @Failure 400 {object} apperror.ErrorResponse "Missing fields"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 502 {object} apperror.ErrorResponse "Identity provider unavailable"
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if req.Email == "" || req.Password == "" {
			h.WriteError(w, r, apperror.NewBadRequestError("email and password are required", nil))
			return
		}

		session, err := h.service.Login(r.Context(), req)
		if err != nil {
			h.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, session)
	}
}

// HandleRefreshToken godoc
// @Summary Refresh Access Token
// @Description Provides a new session using a valid refresh token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param refreshBody body auth.RefreshTokenRequest true "Refresh token details"
// @Success 200 {object} identity.Session "Tokens refreshed successfully"
// @Failure 400 {object} apperror.ErrorResponse "Missing refresh token"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or expired refresh token"
// @Router /auth/refresh [post]
func (h *Handlers) HandleRefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if req.RefreshToken == "" {
			h.WriteError(w, r, apperror.NewBadRequestError("refresh_token is required", nil))
			return
		}

		session, err := h.service.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			h.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, session)
	}
}

// writeJSON serializes data to JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError converts any error into the standardized error response.
// Rate-limit denials also carry a Retry-After header; server-side failures
// are logged with request context. The package-level form exists so other
// handler packages can share the same error surface.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	status := appErr.StatusCode()
	if status >= 500 && logger != nil {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(appErr))
	}
	if appErr.Type == apperror.RateLimitError && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(appErr.RetryAfter, 10))
	}

	writeJSON(w, status, appErr.ToResponse())
}

func (h *Handlers) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, h.logger, err)
}
