package api

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/influencerconnect/chat-server/internal/core"
)

const wsWriteTimeout = 10 * time.Second

// WSEvent is a frame pushed to WebSocket clients.
type WSEvent struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsOriginPatterns turns CORS origins into the host patterns websocket.Accept
// checks the Origin header against.
func wsOriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// MessagesWSHandler streams a chat's message list to a participant. The full
// list is pushed on connect and after every new message; the client only
// listens.
func (h *APIHandler) MessagesWSHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.chats.RequireParticipant(r.Context(), chatID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.wsOrigins})
	if err != nil {
		log.Printf("WebSocket accept failed for chat %s: %v", chatID, err)
		return
	}
	defer conn.CloseNow()

	// Push only; reading keeps control frames flowing and notices disconnects.
	ctx := conn.CloseRead(r.Context())

	// Holds at most the latest update; a slow client skips stale lists.
	updates := make(chan core.MessageUpdate, 1)
	sub, err := h.messages.Subscribe(ctx, chatID, func(u core.MessageUpdate) {
		for {
			select {
			case updates <- u:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		log.Printf("Failed to subscribe to chat %s: %v", chatID, err)
		conn.Close(websocket.StatusTryAgainLater, "subscription unavailable")
		return
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case u := <-updates:
			if err := writeUpdate(ctx, conn, u); err != nil {
				log.Printf("WebSocket write failed for chat %s: %v", chatID, err)
				return
			}
		case <-sub.Done():
			select {
			case u := <-updates:
				if err := writeUpdate(ctx, conn, u); err != nil {
					return
				}
			default:
			}
			conn.Close(websocket.StatusGoingAway, "message feed closed")
			return
		}
	}
}

func writeUpdate(ctx context.Context, conn *websocket.Conn, u core.MessageUpdate) error {
	ev := WSEvent{Type: "messages", Data: u.Messages}
	if u.Err != nil {
		ev = WSEvent{Type: "error", Error: "Failed to load messages, retrying on next update"}
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, ev)
}
