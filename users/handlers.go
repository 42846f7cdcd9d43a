package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/respond"
)

// UserHandlers provides HTTP handlers for the authenticated user's profile.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes mounts the profile routes. The router must already require
// authentication.
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleGetMe())
	r.Put("/me", h.HandleUpdateMe())
	r.Delete("/me", h.HandleDeleteMe())
}

// HandleGetMe godoc
// @Summary Get current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} respond.Envelope{data=User}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /users/me [get]
func (h *UserHandlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		profile, err := h.service.GetProfile(r.Context(), userID)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", profile)
	}
}

// HandleUpdateMe godoc
// @Summary Update current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} respond.Envelope{data=User}
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "Email already exists"
// @Failure 422 {object} apperror.ErrorResponse
// @Router /users/me [put]
func (h *UserHandlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req UpdateProfileRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		profile, err := h.service.UpdateProfile(r.Context(), userID, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Profile updated", profile)
	}
}

// HandleDeleteMe godoc
// @Summary Deactivate the current account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandlers) HandleDeleteMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.Deactivate(r.Context(), userID); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Account deactivated", nil)
	}
}
