package http

import (
	"encoding/json"
	"log"
	"net/http"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/usecase"
)

// SettingsHandler exposes the runtime rule knobs. Updates apply to the
// running service immediately and are persisted when a settings repository
// is configured.
type SettingsHandler struct {
	copier *usecase.CopierService
	repo   domain.SettingsRepository // nil when persistence is disabled
}

func NewSettingsHandler(copier *usecase.CopierService, repo domain.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{copier: copier, repo: repo}
}

// HandleSettings handles GET and POST /api/copier/settings
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r)
	case http.MethodPost:
		h.updateSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) getSettings(w http.ResponseWriter, _ *http.Request) {
	settings := h.copier.Settings()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

func (h *SettingsHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.CopierSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if settings.MaxConcurrentPerSymbol < 1 || settings.MinLot <= 0 ||
		settings.NearMissPips < 0 || settings.VIPTrailDistance <= 0 ||
		settings.TP1ThresholdPercent < 0 || settings.TP1ThresholdPercent > 100 {
		http.Error(w, "Invalid settings values", http.StatusBadRequest)
		return
	}

	h.copier.UpdateSettings(settings)
	if h.repo != nil {
		if err := h.repo.SaveSettings(&settings); err != nil {
			log.Printf("Settings save failed: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}
