package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/influencerconnect/chat-server/internal/auth"
	"github.com/influencerconnect/chat-server/internal/core"
	"github.com/influencerconnect/chat-server/internal/media"
	"github.com/influencerconnect/chat-server/internal/store"
	"github.com/influencerconnect/chat-server/internal/utils"
)

type APIHandler struct {
	directory *core.DirectoryService
	search    *core.SearchService
	chats     *core.ChatService
	messages  *core.MessageService
	tokens    *auth.JWTManager
	// avatars is nil when no bucket is configured.
	avatars   *media.AvatarStore
	wsOrigins []string
}

func NewAPIHandler(
	directory *core.DirectoryService,
	search *core.SearchService,
	chats *core.ChatService,
	messages *core.MessageService,
	tokens *auth.JWTManager,
	avatars *media.AvatarStore,
	allowedOrigins []string,
) *APIHandler {
	return &APIHandler{
		directory: directory,
		search:    search,
		chats:     chats,
		messages:  messages,
		tokens:    tokens,
		avatars:   avatars,
		wsOrigins: wsOriginPatterns(allowedOrigins),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound), errors.Is(err, media.ErrObjectMissing):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its kind maps to. Server-side
// failures are logged and their details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		message = "Service temporarily unavailable, please retry"
	case http.StatusInternalServerError:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		message = "Internal server error"
	}
	utils.JSONResponse(w, status, utils.Payload{Success: false, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req core.SignupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.directory.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.ID, err)
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Failed to generate token"})
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Account created",
		Data:    AuthResponse{Token: token, User: user},
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.directory.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.ID, err)
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Failed to generate token"})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: AuthResponse{Token: token, User: user}})
}

// HealthHandler reports whether the database answers.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.CheckStore(r.Context()); err != nil {
		log.Printf("Health check failed: %v", err)
		utils.JSONResponse(w, http.StatusServiceUnavailable, utils.Payload{
			Success: false,
			Message: "database unavailable",
			Data:    map[string]string{"database": "down"},
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "ok", Data: map[string]string{"database": "up"}})
}
