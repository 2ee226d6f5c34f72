package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/influencerconnect/chat-server/internal/core"
	"github.com/influencerconnect/chat-server/internal/utils"
)

// SearchUsersHandler serves the directory: ranked matches for ?search=, or
// the newest users when the term is empty. The caller is never listed.
func (h *APIHandler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	users, err := h.search.SearchUsers(r.Context(), r.URL.Query().Get("search"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: users})
}

func (h *APIHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.directory.GetUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: user})
}

func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.directory.UpdateProfile(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Profile updated", Data: user})
}

// GetUserHandler returns another user's profile. Hidden profiles are only
// visible to their owner.
func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")
	user, err := h.directory.GetUser(r.Context(), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !user.IsVisible && user.ID != userIDFrom(r.Context()) {
		writeError(w, r, fmt.Errorf("%w: user %s", core.ErrNotFound, targetID))
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: user})
}

var errAvatarsDisabled = fmt.Errorf("%w: avatar uploads are not configured", core.ErrUnavailable)

type AvatarUploadRequest struct {
	ContentType string `json:"content_type"`
}

func (h *APIHandler) AvatarUploadHandler(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, r, errAvatarsDisabled)
		return
	}
	var req AvatarUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	upload, err := h.avatars.PresignUpload(r.Context(), userIDFrom(r.Context()), req.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: upload})
}

type AvatarConfirmRequest struct {
	Key string `json:"key"`
}

// AvatarConfirmHandler points the caller's avatar at an object they uploaded
// through a presigned URL.
func (h *APIHandler) AvatarConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, r, errAvatarsDisabled)
		return
	}
	var req AvatarConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, r, fmt.Errorf("%w: key is required", core.ErrValidation))
		return
	}

	userID := userIDFrom(r.Context())
	publicURL, err := h.avatars.ConfirmUpload(r.Context(), userID, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.directory.UpdateProfile(r.Context(), userID, core.ProfileUpdate{Avatar: &publicURL})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Avatar updated", Data: user})
}
