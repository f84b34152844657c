package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fxcopier-backend/internal/domain"
)

// TradeHandler serves the tracked trade state.
type TradeHandler struct {
	repo domain.TradeStateRepository
}

func NewTradeHandler(repo domain.TradeStateRepository) *TradeHandler {
	return &TradeHandler{repo: repo}
}

// GetActive handles GET /api/trades/active
func (h *TradeHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trades := h.repo.OpenTrades()
	if trades == nil {
		trades = make([]*domain.OpenTrade, 0)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// GetHistory handles GET /api/trades/history?period=1d|7d|30d
func (h *TradeHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var from time.Time
	switch r.URL.Query().Get("period") {
	case "", "all":
		// zero from returns everything
	case "1d":
		from = time.Now().Add(-24 * time.Hour)
	case "7d":
		from = time.Now().Add(-7 * 24 * time.Hour)
	case "30d":
		from = time.Now().Add(-30 * 24 * time.Hour)
	default:
		http.Error(w, "Invalid period, want 1d, 7d, 30d or all", http.StatusBadRequest)
		return
	}

	entries := h.repo.History(from)
	if entries == nil {
		entries = make([]domain.TradeHistoryEntry, 0)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

type TradeStats struct {
	OpenCount   int     `json:"openCount"`
	ClosedCount int     `json:"closedCount"`
	VIPClosed   int     `json:"vipClosed"`
	PeakedCount int     `json:"peakedCount"`
	PeakedRate  float64 `json:"peakedRate"`
}

// GetStats handles GET /api/trades/stats. PeakedCount counts closed trades
// that were observed in profit at some point; realized P&L lives at the
// broker, not here.
func (h *TradeHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history := h.repo.History(time.Time{})
	stats := TradeStats{
		OpenCount:   len(h.repo.OpenTrades()),
		ClosedCount: len(history),
	}
	for _, e := range history {
		if e.VIP {
			stats.VIPClosed++
		}
		if e.PeakProfit > 0 {
			stats.PeakedCount++
		}
	}
	if stats.ClosedCount > 0 {
		stats.PeakedRate = float64(stats.PeakedCount) / float64(stats.ClosedCount) * 100
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
