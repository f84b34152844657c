package http

import (
	"encoding/json"
	"net/http"

	"fxcopier-backend/internal/repository"
)

type TokenHandler struct {
	tokenRepo *repository.TokenRepository
}

func NewTokenHandler(tokenRepo *repository.TokenRepository) *TokenHandler {
	return &TokenHandler{
		tokenRepo: tokenRepo,
	}
}

type TokenRequest struct {
	Token    string
	Platform string
}

type TokenResponse struct {
	Success bool
	Message string
	Count   int
}

// HandleTokens handles POST (register) and DELETE (unregister) /api/tokens
func (h *TokenHandler) HandleTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	var message string
	if r.Method == http.MethodPost {
		if req.Platform == "" {
			req.Platform = "android"
		}
		h.tokenRepo.Register(req.Token, req.Platform)
		message = "Token registered successfully"
	} else {
		h.tokenRepo.Unregister(req.Token)
		message = "Token unregistered successfully"
	}

	response := TokenResponse{
		Success: true,
		Message: message,
		Count:   h.tokenRepo.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
