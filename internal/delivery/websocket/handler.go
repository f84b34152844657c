package websocket

import (
	"log"
	"net/http"
	"time"

	"fxcopier-backend/internal/domain"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Handler streams the open-trade set to connected clients so a dashboard
// can watch positions without polling the REST API.
type Handler struct {
	repo     domain.TradeStateRepository
	interval time.Duration
}

func NewHandler(repo domain.TradeStateRepository, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Handler{
		repo:     repo,
		interval: interval,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	log.Println("New Client Connected")

	// Send initial data immediately
	if err := conn.WriteJSON(h.snapshot()); err != nil {
		log.Println("Write error:", err)
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(h.snapshot()); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func (h *Handler) snapshot() []*domain.OpenTrade {
	trades := h.repo.OpenTrades()
	if trades == nil {
		trades = make([]*domain.OpenTrade, 0)
	}
	return trades
}
