package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/influencerconnect/chat-server/internal/utils"
)

type CreateChatRequest struct {
	ParticipantID string `json:"participant_id"`
}

// CreateChatHandler opens, or returns the existing, chat between the caller
// and participant_id.
func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	chat, err := h.chats.GetOrCreateChat(r.Context(), userIDFrom(r.Context()), req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: chat})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListUserChats(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: chats})
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.chats.RequireParticipant(r.Context(), chatID, userIDFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}

	messages, err := h.messages.GetMessages(r.Context(), chatID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Data: messages})
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	chatID := chi.URLParam(r, "chatID")

	var req PostMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.chats.RequireParticipant(r.Context(), chatID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.messages.SendMessage(r.Context(), chatID, userID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{Success: true, Message: "Message sent", Data: msg})
}
