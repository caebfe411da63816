package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"socialfeed/internal/httputil"
	"socialfeed/internal/model"
)

// PostProvider is the slice of the post service the HTTP layer needs.
type PostProvider interface {
	Create(ctx context.Context, req model.CreatePostRequest) (*model.PostResponse, error)
	GetByID(ctx context.Context, postID string) (*model.PostResponse, error)
	Like(ctx context.Context, postID string, req model.LikeRequest) error
}

// PostHandler exposes the write path: post creation, reads, likes.
type PostHandler struct {
	posts PostProvider
}

func NewPostHandler(posts PostProvider) *PostHandler {
	return &PostHandler{posts: posts}
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid JSON payload")
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	resp, err := h.posts.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "author not found")
			return
		}
		log.Printf("[Handler] create post failed: author=%s err=%v", req.UserID, err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /posts/{postID}.
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	resp, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "post not found")
			return
		}
		log.Printf("[Handler] get post failed: post=%s err=%v", postID, err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Like handles POST /posts/{postID}/like.
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")

	var req model.LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid JSON payload")
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	if err := h.posts.Like(r.Context(), postID, req); err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "user not found")
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "post not found")
		default:
			log.Printf("[Handler] like failed: post=%s user=%s err=%v", postID, req.UserID, err)
			httputil.WriteInternalError(w)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
