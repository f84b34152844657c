package usecase

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/metrics"
)

// ApplyCommand resolves the target open trade (symbol match first, then the
// most recently opened trade) and applies one management action. Returns
// false only when there is no open trade to act on.
func (s *CopierService) ApplyCommand(ctx context.Context, msgID string, sig domain.Signal, commandText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.resolveTarget(sig.Symbol)
	if !ok {
		log.Println("No open trade for command", commandText)
		return false
	}
	return s.applyToTrade(ctx, target, commandText)
}

// ApplyCommandToParent applies a command against the trade opened from the
// given source message, used for reply follow-ups.
func (s *CopierService) ApplyCommandToParent(ctx context.Context, parentMsgID, commandText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.repo.FindOpenByMessageID(parentMsgID)
	if !ok {
		log.Println("No open trade for reply command", commandText)
		return false
	}
	return s.applyToTrade(ctx, target, commandText)
}

func (s *CopierService) resolveTarget(symbol string) (*domain.OpenTrade, bool) {
	if symbol != "" {
		if t, ok := s.repo.FindOpenBySymbol(symbol); ok {
			return t, true
		}
	}
	return s.repo.MostRecentOpen()
}

// applyToTrade runs exactly one action, first matching phrase wins. The
// partial-close branch does not reduce the tracked volume; bookkeeping of
// the remaining position is delegated to the broker, so a second partial
// close computes 50% of the original volume.
func (s *CopierService) applyToTrade(ctx context.Context, target *domain.OpenTrade, commandText string) bool {
	cmd := strings.ToLower(commandText)
	now := time.Now()

	switch {
	case strings.Contains(cmd, "close half") || strings.Contains(cmd, "partial") || strings.Contains(cmd, "50"):
		half := target.Volume * 0.5
		if err := s.broker.CloseOrder(ctx, target.Ticket, &half); err != nil {
			log.Printf("Partial close %s: %v", target.Ticket, err)
			metrics.BrokerErrors.Inc()
			break
		}
		s.logRow(domain.TradeLogRow{
			Time: now, Action: domain.ActionPartialClose,
			Symbol: target.Symbol, Side: target.Side, Volume: half,
			SL: target.StopLoss, TP: target.TP1, Ticket: target.Ticket, Notes: "cmd",
		})
		metrics.Commands.WithLabelValues(string(domain.ActionPartialClose)).Inc()

	case strings.Contains(cmd, "close all") || strings.Contains(cmd, "take profit now") || strings.Contains(cmd, "tp now"):
		if err := s.broker.CloseOrder(ctx, target.Ticket, nil); err != nil {
			log.Printf("Close %s: %v", target.Ticket, err)
			metrics.BrokerErrors.Inc()
			break
		}
		entry, err := s.repo.CloseTrade(target.Ticket, now)
		if err != nil {
			log.Printf("Move %s to history: %v", target.Ticket, err)
			break
		}
		s.logRow(domain.TradeLogRow{
			Time: now, Action: domain.ActionClose,
			Symbol: target.Symbol, Side: target.Side, Volume: target.Volume,
			SL: target.StopLoss, TP: target.TP1, Ticket: target.Ticket, Notes: "cmd",
		})
		metrics.Commands.WithLabelValues(string(domain.ActionClose)).Inc()
		metrics.OpenTrades.Set(float64(len(s.repo.OpenTrades())))
		if s.notifier != nil {
			s.notifier.TradeClosed(entry, "command")
		}

	case strings.Contains(cmd, "breakeven") || strings.Contains(cmd, "secure entry"):
		if target.EntryPrice == 0 {
			break
		}
		entry := target.EntryPrice
		if err := s.broker.ModifyOrder(ctx, target.Ticket, &entry, target.TP1); err != nil {
			log.Printf("Breakeven %s: %v", target.Ticket, err)
			metrics.BrokerErrors.Inc()
			break
		}
		s.logRow(domain.TradeLogRow{
			Time: now, Action: domain.ActionBreakeven,
			Symbol: target.Symbol, Side: target.Side, Volume: target.Volume,
			SL: &entry, TP: target.TP1, Ticket: target.Ticket, Notes: "cmd",
		})
		metrics.Commands.WithLabelValues(string(domain.ActionBreakeven)).Inc()

	case strings.Contains(cmd, "tighten"):
		q, err := s.broker.GetQuote(ctx, target.Symbol)
		if err != nil || !q.HasPrices() {
			log.Printf("Tighten %s: no usable quote", target.Ticket)
			break
		}
		mid := q.Mid()
		var newSL float64
		if target.Side == domain.SideBuy {
			newSL = round5(mid - s.settings.TightenOffset)
		} else {
			newSL = round5(mid + s.settings.TightenOffset)
		}
		if err := s.broker.ModifyOrder(ctx, target.Ticket, &newSL, nil); err != nil {
			log.Printf("Tighten %s: %v", target.Ticket, err)
			metrics.BrokerErrors.Inc()
			break
		}
		s.logRow(domain.TradeLogRow{
			Time: now, Action: domain.ActionTightenSL,
			Symbol: target.Symbol, Side: target.Side, Volume: target.Volume,
			SL: &newSL, TP: target.TP1, Ticket: target.Ticket, Notes: "cmd",
		})
		metrics.Commands.WithLabelValues(string(domain.ActionTightenSL)).Inc()
	}

	s.flush()
	return true
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
