package users

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/quizcraft-go/apperror"
	"github.com/user/quizcraft-go/auth"
)

// Handlers holds the HTTP handlers for profile routes.
type Handlers struct {
	service *Service
	logger  *zap.Logger
}

// NewHandlers creates profile route handlers.
func NewHandlers(service *Service, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// HandleGetProfile godoc
// @Summary Get the authenticated player's profile
// @Tags users
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /users/me [get]
// @Security BearerAuth
func (h *Handlers) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityID, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, h.logger, apperror.NewAuthError("Authentication required", nil))
			return
		}

		profile, err := h.service.GetProfile(r.Context(), identityID)
		if err != nil {
			auth.WriteError(w, r, h.logger, err)
			return
		}
		h.respondJSON(w, http.StatusOK, profile)
	}
}

// HandleUpdateProfile godoc
// @Summary Update the authenticated player's profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Router /users/me [patch]
// @Security BearerAuth
func (h *Handlers) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityID, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, h.logger, apperror.NewAuthError("Authentication required", nil))
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, h.logger, apperror.NewBadRequestError("Invalid request body", err))
			return
		}

		profile, err := h.service.UpdateProfile(r.Context(), identityID, req)
		if err != nil {
			auth.WriteError(w, r, h.logger, err)
			return
		}
		h.respondJSON(w, http.StatusOK, profile)
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
