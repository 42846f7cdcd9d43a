package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/respond"
)

// CommentHandlers provides HTTP handlers for comments.
type CommentHandlers struct {
	service *CommentService
	limits  paging.Limits
}

// NewCommentHandlers creates new CommentHandlers.
func NewCommentHandlers(service *CommentService, limits paging.Limits) *CommentHandlers {
	return &CommentHandlers{service: service, limits: limits}
}

// RegisterRoutes mounts the comment routes.
func (h *CommentHandlers) RegisterRoutes(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/post/{postID}", h.HandleListForPost())
		r.Get("/{id}", h.HandleGet())
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/post/{postID}", h.HandleCreate())
		r.Put("/{id}", h.HandleUpdate())
		r.Delete("/{id}", h.HandleDelete())
		r.Post("/{id}/approve", h.HandleApprove())
	})
}

// HandleListForPost godoc
// @Summary List the comments of a post
// @Description Approved comments plus the caller's own; the post author sees all. With tree=true replies are nested and paging applies to top-level threads.
// @Tags comments
// @Produce json
// @Param postID path int true "Post ID"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(10)
// @Param tree query bool false "Nest replies under their parents"
// @Success 200 {object} respond.Envelope{data=paging.Page[Comment]}
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /comments/post/{postID} [get]
func (h *CommentHandlers) HandleListForPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := respond.IDParam(r, "postID")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		page, err := h.limits.FromQuery(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		tree, err := respond.BoolQuery(r, "tree")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		out, err := h.service.ListForPost(r.Context(), postID, audit.ViewerFromContext(r.Context()), page, tree)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", out)
	}
}

// HandleGet godoc
// @Summary Get a comment
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} respond.Envelope{data=Comment}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /comments/{id} [get]
func (h *CommentHandlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "id")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := h.service.Get(r.Context(), id, audit.ViewerFromContext(r.Context()))
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "", c)
	}
}

// HandleCreate godoc
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postID path int true "Post ID"
// @Param comment body CreateCommentRequest true "Comment"
// @Success 201 {object} respond.Envelope{data=Comment}
// @Failure 400 {object} apperror.ErrorResponse "Invalid parent comment"
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse "Post not found"
// @Failure 422 {object} apperror.ErrorResponse
// @Router /comments/post/{postID} [post]
func (h *CommentHandlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		postID, err := respond.IDParam(r, "postID")
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req CreateCommentRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := h.service.Create(r.Context(), postID, actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusCreated, "Comment created", c)
	}
}

// HandleUpdate godoc
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param comment body UpdateCommentRequest true "New text"
// @Success 200 {object} respond.Envelope{data=Comment}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the comment author"
// @Failure 404 {object} apperror.ErrorResponse
// @Router /comments/{id} [put]
func (h *CommentHandlers) HandleUpdate() http.HandlerFunc {
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
		var req UpdateCommentRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		c, err := h.service.Update(r.Context(), id, actor, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Comment updated", c)
	}
}

// HandleDelete godoc
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the comment author"
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 409 {object} apperror.ErrorResponse "Already deleted"
// @Router /comments/{id} [delete]
func (h *CommentHandlers) HandleDelete() http.HandlerFunc {
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
		respond.Success(w, http.StatusOK, "Comment deleted", nil)
	}
}

// HandleApprove godoc
// @Summary Approve a comment
// @Description Only the author of the commented post may approve.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} respond.Envelope{data=Comment}
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 403 {object} apperror.ErrorResponse "Not the post author"
// @Failure 404 {object} apperror.ErrorResponse
// @Router /comments/{id}/approve [post]
func (h *CommentHandlers) HandleApprove() http.HandlerFunc {
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
		c, err := h.service.Approve(r.Context(), id, actor)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Comment approved", c)
	}
}
