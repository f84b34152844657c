package http

import (
	"encoding/json"
	"net/http"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/usecase"
)

// MessageHandler is the inbound webhook: the external message source posts
// raw alert text here.
type MessageHandler struct {
	copier *usecase.CopierService
}

func NewMessageHandler(copier *usecase.CopierService) *MessageHandler {
	return &MessageHandler{copier: copier}
}

type MessageResponse struct {
	Success bool
	Message string
}

// HandleMessage handles POST /api/messages
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg domain.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg.ID == "" {
		http.Error(w, "messageId is required", http.StatusBadRequest)
		return
	}

	h.copier.HandleMessage(r.Context(), msg)

	response := MessageResponse{
		Success: true,
		Message: "Message processed",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
