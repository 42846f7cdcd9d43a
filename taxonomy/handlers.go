package taxonomy

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/respond"
)

// Handlers serves one vocabulary. The same handlers are mounted under
// /categories and /tags.
type Handlers struct {
	service *Service
	limits  paging.Limits
}

// NewHandlers creates Handlers for service.
func NewHandlers(service *Service, limits paging.Limits) *Handlers {
	return &Handlers{service: service, limits: limits}
}

// RegisterRoutes mounts reads publicly and writes behind requireAuth.
func (h *Handlers) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/", h.HandleList())
	r.Get("/slug/{slug}", h.HandleGetBySlug())
	r.Get("/{id}", h.HandleGet())
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.HandleCreate())
		r.Put("/{id}", h.HandleUpdate())
		r.Delete("/{id}", h.HandleDelete())
	})
}

// HandleList godoc
// @Summary List categories or tags
// @Tags taxonomy
// @Produce json
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size, clamped to the configured maximum" default(10)
// @Success 200 {object} respond.Envelope{data=paging.Page[Term]}
// @Failure 400 {object} apperror.ErrorResponse
// @Router /{kind} [get]
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := h.limits.FromQuery(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		result, err := h.service.List(r.Context(), page)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", result)
	}
}

// HandleGet godoc
// @Summary Get a category or tag by id
// @Tags taxonomy
// @Produce json
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param id path int true "Term ID"
// @Success 200 {object} respond.Envelope{data=Term}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /{kind}/{id} [get]
func (h *Handlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		t, err := h.service.Get(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", t)
	}
}

// HandleGetBySlug godoc
// @Summary Get a category or tag by slug
// @Tags taxonomy
// @Produce json
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param slug path string true "Slug"
// @Success 200 {object} respond.Envelope{data=Term}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /{kind}/slug/{slug} [get]
func (h *Handlers) HandleGetBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", t)
	}
}

// HandleCreate godoc
// @Summary Create a category or tag
// @Tags taxonomy
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param term body CreateTermRequest true "Name, optional slug and description"
// @Success 201 {object} respond.Envelope{data=Term}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "Name or slug already exists"
// @Failure 422 {object} apperror.ErrorResponse
// @Router /{kind} [post]
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req CreateTermRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		t, err := h.service.Create(r.Context(), actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusCreated, h.service.Kind().Noun+" created", t)
	}
}

// HandleUpdate godoc
// @Summary Update a category or tag
// @Tags taxonomy
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param id path int true "Term ID"
// @Param term body UpdateTermRequest true "Fields to change"
// @Success 200 {object} respond.Envelope{data=Term}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse
// @Router /{kind}/{id} [put]
func (h *Handlers) HandleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.IDParam(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req UpdateTermRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		t, err := h.service.Update(r.Context(), id, actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, h.service.Kind().Noun+" updated", t)
	}
}

// HandleDelete godoc
// @Summary Delete a category or tag
// @Description Soft delete. Fails with 409 while a live post still uses the term.
// @Tags taxonomy
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Vocabulary" Enums(categories, tags)
// @Param id path int true "Term ID"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "In use or already deleted"
// @Router /{kind}/{id} [delete]
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.IDParam(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.Delete(r.Context(), id, actor); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, h.service.Kind().Noun+" deleted", nil)
	}
}
