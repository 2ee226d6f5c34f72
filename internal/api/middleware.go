package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/influencerconnect/chat-server/internal/core"
	"github.com/influencerconnect/chat-server/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

func unauthorized(w http.ResponseWriter, message string) {
	utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{Success: false, Message: message})
}

// JWTAuthMiddleware accepts "Authorization: Bearer <token>" or, for browser
// WebSocket clients that cannot set headers, a token query parameter.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		} else {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			unauthorized(w, "Authorization token is required")
			return
		}

		userID, err := h.tokens.Validate(tokenString)
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}

		if _, err := h.directory.GetUser(r.Context(), userID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				unauthorized(w, "User not found")
				return
			}
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
