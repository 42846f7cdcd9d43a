package posts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/respond"
)

// PostHandlers provides HTTP handlers for posts.
type PostHandlers struct {
	service *PostService
	limits  paging.Limits
}

// NewPostHandlers creates new PostHandlers.
func NewPostHandlers(service *PostService, limits paging.Limits) *PostHandlers {
	return &PostHandlers{service: service, limits: limits}
}

// RegisterRoutes mounts the post routes. Reads identify the viewer when a
// token is sent; writes require one.
func (h *PostHandlers) RegisterRoutes(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", h.HandleList())
		r.Get("/search/{q}", h.HandleSearch())
		r.Get("/slug/{slug}", h.HandleGetBySlug())
		r.Get("/user/{userID}", h.HandleListByUser())
		r.Get("/{id}", h.HandleGet())
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.HandleCreate())
		r.Put("/{id}", h.HandleUpdate())
		r.Delete("/{id}", h.HandleDelete())
	})
}

// filterFromQuery reads the shared list parameters.
func (h *PostHandlers) filterFromQuery(r *http.Request) (Filter, error) {
	var f Filter
	var err error
	if f.Page, err = h.limits.FromQuery(r); err != nil {
		return f, err
	}
	if f.AuthorID, err = respond.OptionalIDQuery(r, "author_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = respond.OptionalIDQuery(r, "category_id"); err != nil {
		return f, err
	}
	if f.TagID, err = respond.OptionalIDQuery(r, "tag_id"); err != nil {
		return f, err
	}
	if f.IncludeDeleted, err = respond.BoolQuery(r, "include_deleted"); err != nil {
		return f, err
	}
	f.Search = r.URL.Query().Get("search")
	f.Viewer = audit.ViewerFromContext(r.Context())
	return f, nil
}

func (h *PostHandlers) list(w http.ResponseWriter, r *http.Request, adjust func(*Filter) error) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if adjust != nil {
		if err := adjust(&f); err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	page, err := h.service.List(r.Context(), f)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", page)
}

// HandleList godoc
// @Summary List posts
// @Description Published posts plus the caller's own drafts, newest first.
// @Tags posts
// @Produce json
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size, clamped to the configured maximum" default(10)
// @Param author_id query int false "Filter by author"
// @Param category_id query int false "Filter by category"
// @Param tag_id query int false "Filter by tag"
// @Param search query string false "Case-insensitive substring of title, content or excerpt"
// @Param include_deleted query bool false "Include the caller's own deleted posts"
// @Success 200 {object} respond.Envelope{data=paging.Page[Post]}
// @Failure 400 {object} apperror.ErrorResponse
// @Router /posts [get]
func (h *PostHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, nil)
	}
}

// HandleSearch godoc
// @Summary Search posts
// @Tags posts
// @Produce json
// @Param q path string true "Search text"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} respond.Envelope{data=paging.Page[Post]}
// @Router /posts/search/{q} [get]
func (h *PostHandlers) HandleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, func(f *Filter) error {
			f.Search = chi.URLParam(r, "q")
			return nil
		})
	}
}

// HandleListByUser godoc
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param userID path int true "Author ID"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} respond.Envelope{data=paging.Page[Post]}
// @Failure 400 {object} apperror.ErrorResponse
// @Router /posts/user/{userID} [get]
func (h *PostHandlers) HandleListByUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, func(f *Filter) error {
			id, err := respond.IDParam(r, "userID")
			f.AuthorID = &id
			return err
		})
	}
}

// HandleGet godoc
// @Summary Get a post
// @Description Drafts and deleted posts are visible only to their author. Reads by others increment the view count.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Param include_deleted query bool false "Allow the author to read a deleted post"
// @Success 200 {object} respond.Envelope{data=Post}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		includeDeleted, err := respond.BoolQuery(r, "include_deleted")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := h.service.Get(r.Context(), id, audit.ViewerFromContext(r.Context()), includeDeleted)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", p)
	}
}

// HandleGetBySlug godoc
// @Summary Get a post by slug
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} respond.Envelope{data=Post}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /posts/slug/{slug} [get]
func (h *PostHandlers) HandleGetBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"), audit.ViewerFromContext(r.Context()))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", p)
	}
}

// HandleCreate godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post body CreatePostRequest true "Post"
// @Success 201 {object} respond.Envelope{data=Post}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse "Category or tag not found"
// @Failure 409 {object} apperror.ErrorResponse "Slug already exists"
// @Failure 422 {object} apperror.ErrorResponse
// @Router /posts [post]
func (h *PostHandlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req CreatePostRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := h.service.Create(r.Context(), actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusCreated, "Post created", p)
	}
}

// HandleUpdate godoc
// @Summary Update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param post body UpdatePostRequest true "Fields to change"
// @Success 200 {object} respond.Envelope{data=Post}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the author"
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "Slug already exists"
// @Router /posts/{id} [put]
func (h *PostHandlers) HandleUpdate() http.HandlerFunc {
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
		var req UpdatePostRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		p, err := h.service.Update(r.Context(), id, actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Post updated", p)
	}
}

// HandleDelete godoc
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the author"
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "Already deleted"
// @Router /posts/{id} [delete]
func (h *PostHandlers) HandleDelete() http.HandlerFunc {
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
		respond.Success(w, http.StatusOK, "Post deleted", nil)
	}
}
