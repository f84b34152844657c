package usecase

import (
	"context"
	"log"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/metrics"
	"fxcopier-backend/internal/parser"
)

// HandleMessage is the single entry point for inbound alerts. Routing, in
// order: the short VIP grammar for privileged sources, reply follow-ups
// against the parent message's trade, command-only messages, then full
// entry signals.
func (s *CopierService) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	if !s.claimMessage(msg.ID) {
		log.Println("Duplicate message ignored:", msg.ID)
		return
	}

	sig := parser.Parse(msg.Text)

	shortVIP := false
	if msg.Privileged {
		if v, ok := parser.ParseShortVIP(msg.Text); ok {
			sig = v
			shortVIP = true
		}
	}

	if msg.ReplyTo != "" && len(sig.Commands) > 0 {
		for _, cmd := range sig.Commands {
			if s.ApplyCommandToParent(ctx, msg.ReplyTo, cmd) {
				metrics.Signals.WithLabelValues("command").Inc()
				return
			}
		}
	}

	if len(sig.Commands) > 0 && !sig.IsEntry() {
		for _, cmd := range sig.Commands {
			s.ApplyCommand(ctx, msg.ID, sig, cmd)
		}
		metrics.Signals.WithLabelValues("command").Inc()
		return
	}

	if sig.IsEntry() {
		kind := "entry"
		if shortVIP || sig.VIP {
			kind = "vip"
		}
		metrics.Signals.WithLabelValues(kind).Inc()

		ticket, ok := s.OpenTradeFromSignal(ctx, msg.ID, sig, domain.ResultWin)
		if ok {
			log.Printf("Opened trade: %s | VIP = %t", ticket, sig.VIP)
		} else {
			log.Println("No trade opened for", msg.ID)
		}
		return
	}

	metrics.Signals.WithLabelValues("ignored").Inc()
}

// claimMessage records the message id for the life of the process and
// reports whether this is the first delivery. Runs before parsing, so a
// redelivered command cannot be applied twice.
func (s *CopierService) claimMessage(msgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[msgID]; dup {
		return false
	}
	s.seen[msgID] = struct{}{}
	return true
}
