package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"fxcopier-backend/internal/domain"
)

// Pusher is the push-delivery capability, implemented by the FCM client.
// SendMulticast returns the tokens the provider reports as dead.
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error)
	IsEnabled() bool
}

// TokenSource supplies the registered device tokens and drops dead ones.
type TokenSource interface {
	Tokens() []string
	Unregister(token string)
}

// NotificationService pushes trade lifecycle events to registered devices.
// Sends run in their own goroutine so the trading path never waits on FCM.
type NotificationService struct {
	pusher Pusher
	tokens TokenSource
}

func NewNotificationService(pusher Pusher, tokens TokenSource) *NotificationService {
	return &NotificationService{pusher: pusher, tokens: tokens}
}

func (n *NotificationService) TradeOpened(t *domain.OpenTrade) {
	title := fmt.Sprintf("Trade opened: %s %s", t.Symbol, t.Side)
	body := fmt.Sprintf("%.2f lots @ %.5g", t.Volume, t.EntryPrice)
	if t.VIP {
		title = "VIP " + title
	}
	n.send(title, body, map[string]string{
		"type":   "trade_opened",
		"ticket": t.Ticket,
		"symbol": t.Symbol,
	})
}

func (n *NotificationService) TradeClosed(e *domain.TradeHistoryEntry, reason string) {
	title := fmt.Sprintf("Trade closed: %s %s", e.Symbol, e.Side)
	body := fmt.Sprintf("Ticket %s closed (%s)", e.Ticket, reason)
	n.send(title, body, map[string]string{
		"type":   "trade_closed",
		"ticket": e.Ticket,
		"symbol": e.Symbol,
		"reason": reason,
	})
}

func (n *NotificationService) send(title, body string, data map[string]string) {
	if n.pusher == nil || !n.pusher.IsEnabled() {
		return
	}
	tokens := n.tokens.Tokens()
	if len(tokens) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		invalid, err := n.pusher.SendMulticast(ctx, tokens, title, body, data)
		if err != nil {
			log.Printf("Push send failed: %v", err)
			return
		}
		for _, tok := range invalid {
			n.tokens.Unregister(tok)
		}
	}()
}

// compile-time check
var _ Notifier = (*NotificationService)(nil)
