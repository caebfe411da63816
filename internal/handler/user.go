package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialfeed/internal/httputil"
	"socialfeed/internal/model"
)

const defaultFollowersLimit = 100

// UserProvider is the slice of the user service the HTTP layer needs.
type UserProvider interface {
	Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	Follow(ctx context.Context, req model.FollowRequest) error
	Unfollow(ctx context.Context, req model.FollowRequest) error
	Followers(ctx context.Context, userID string, limit int) ([]model.User, error)
}

// UserHandler exposes profiles and the social graph.
type UserHandler struct {
	users UserProvider
}

func NewUserHandler(users UserProvider) *UserHandler {
	return &UserHandler{users: users}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid JSON payload")
		return
	}

	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			httputil.WriteConflict(w, "username already taken")
			return
		}
		log.Printf("[Handler] create user failed: username=%s err=%v", req.Username, err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// GetByID handles GET /users/{userID}.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		log.Printf("[Handler] get user failed: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// Follow handles POST /users/follow.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, h.users.Follow)
}

// Unfollow handles POST /users/unfollow.
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, h.users.Unfollow)
}

func (h *UserHandler) mutateEdge(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req model.FollowRequest) error) {
	var req model.FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid JSON payload")
		return
	}
	if req.FollowerID == "" || req.FolloweeID == "" {
		httputil.WriteBadRequest(w, "follower_id and followee_id are required")
		return
	}

	if err := op(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, model.ErrSelfFollow):
			httputil.WriteBadRequest(w, "cannot follow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "user not found")
		default:
			log.Printf("[Handler] follow mutation failed: %s -> %s err=%v", req.FollowerID, req.FolloweeID, err)
			httputil.WriteInternalError(w)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Followers handles GET /users/{userID}/followers.
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := defaultFollowersLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	users, err := h.users.Followers(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		log.Printf("[Handler] list followers failed: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user_id": userID, "followers": users})
}
