package usecase

import (
	"context"
	"log"
	"time"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/metrics"
)

// Tick runs one watchdog pass: refresh every open trade's profit, ratchet
// the peak, and close any VIP trade whose profit has retraced the trail
// distance from its peak. A broker failure on one trade is logged and does
// not abort the rest of the pass; the pass ends with a single flush.
func (s *CopierService) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.repo.OpenTrades() {
		profit, err := s.broker.GetProfit(ctx, t.Ticket, t.Symbol)
		if err != nil {
			log.Printf("Watchdog error for %s: %v", t.Ticket, err)
			continue
		}
		if profit > t.PeakProfit {
			t.PeakProfit = profit
			if err := s.repo.UpdateTrade(t); err != nil {
				log.Printf("Watchdog update %s: %v", t.Ticket, err)
				continue
			}
		}
		if !t.VIP {
			continue
		}
		if t.PeakProfit-profit < s.settings.VIPTrailDistance {
			continue
		}
		if err := s.broker.CloseOrder(ctx, t.Ticket, nil); err != nil {
			log.Printf("Watchdog close %s: %v", t.Ticket, err)
			metrics.BrokerErrors.Inc()
			continue
		}
		s.logRow(domain.TradeLogRow{
			Time: time.Now(), Action: domain.ActionVIPClose,
			Symbol: t.Symbol, Side: t.Side, Volume: t.Volume,
			SL: t.StopLoss, TP: t.TP1, Ticket: t.Ticket, Notes: "vip_trail_hit",
		})
		entry, err := s.repo.CloseTrade(t.Ticket, time.Now())
		if err != nil {
			log.Printf("Watchdog history %s: %v", t.Ticket, err)
			continue
		}
		metrics.VIPCloses.Inc()
		if s.notifier != nil {
			s.notifier.TradeClosed(entry, "vip_trail")
		}
	}

	metrics.OpenTrades.Set(float64(len(s.repo.OpenTrades())))
	s.flush()
}

// RunWatchdog ticks on a fixed interval until the context is cancelled.
func (s *CopierService) RunWatchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Watchdog running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
