package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/metrics"
)

// Notifier receives trade lifecycle events. Implementations must not block
// the caller; delivery happens off the critical path.
type Notifier interface {
	TradeOpened(t *domain.OpenTrade)
	TradeClosed(e *domain.TradeHistoryEntry, reason string)
}

// CopierService turns parsed signals into broker orders and tracks the
// resulting trades. One exclusive mutex spans each top-level operation
// (open, command, watchdog tick) including the broker calls and the state
// flush, so two concurrent triggers cannot both pass a gate for the same
// symbol or double-close a trade.
type CopierService struct {
	mu       sync.Mutex
	broker   domain.Broker
	repo     domain.TradeStateRepository
	tradeLog domain.TradeLogger
	notifier Notifier
	settings domain.CopierSettings

	// seen drops redelivered message ids before dispatch. Entry signals
	// are additionally recorded in persistent state, so a replayed entry
	// stays blocked across restarts; commands are deduplicated for the
	// process lifetime only.
	seen map[string]struct{}
}

func NewCopierService(
	broker domain.Broker,
	repo domain.TradeStateRepository,
	tradeLog domain.TradeLogger,
	settings domain.CopierSettings,
) *CopierService {
	return &CopierService{
		broker:   broker,
		repo:     repo,
		tradeLog: tradeLog,
		settings: settings,
		seen:     make(map[string]struct{}),
	}
}

// SetNotifier attaches an optional push notifier. Must be called before the
// service starts handling messages.
func (s *CopierService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Settings returns the current rule knobs.
func (s *CopierService) Settings() domain.CopierSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings swaps the rule knobs. Takes effect from the next operation.
func (s *CopierService) UpdateSettings(settings domain.CopierSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// calculateLot sizes a position from the account balance with a tiered
// percent-of-balance rule. Rounding is round half away from zero, which is
// what math.Round does.
func calculateLot(balance float64, lastResult domain.TradeResult, minLot float64) float64 {
	if balance <= 15 {
		return minLot
	}
	percent := 50.0
	if balance >= 16 && balance <= 49 && lastResult == domain.ResultLoss {
		percent = 40.0
	}
	lots := math.Round(balance*percent/100/100*100) / 100
	return math.Max(minLot, lots)
}

// OpenTradeFromSignal applies the gates in order (idempotency, per-symbol
// concurrency, TP1 progress) and places the order. The message id is
// recorded before any order goes out, so a crash mid-processing cannot
// produce a duplicate order when the same message is replayed.
func (s *CopierService) OpenTradeFromSignal(ctx context.Context, msgID string, sig domain.Signal, lastResult domain.TradeResult) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo.IsProcessed(msgID) {
		return "", false
	}
	s.repo.MarkProcessed(msgID)

	if s.repo.CountOpenBySymbol(sig.Symbol) >= s.settings.MaxConcurrentPerSymbol && !sig.AllowAgain {
		log.Println("Blocked: too many concurrent for", sig.Symbol)
		metrics.Blocked.WithLabelValues("concurrency").Inc()
		s.flush()
		return "", false
	}

	acct, err := s.broker.GetAccount(ctx)
	balance := 0.0
	if err != nil {
		log.Printf("Account lookup failed: %v", err)
		metrics.BrokerErrors.Inc()
	} else {
		balance = acct.Balance
	}
	lot := calculateLot(balance, lastResult, s.settings.MinLot)

	if s.tp1Blocked(ctx, sig.Symbol, sig.Side) && !sig.AllowAgain {
		log.Printf("Blocked by %.0f%% TP1 rule for %s", s.settings.TP1ThresholdPercent, sig.Symbol)
		metrics.Blocked.WithLabelValues("tp1_progress").Inc()
		s.flush()
		return "", false
	}

	clientID := fmt.Sprintf("%s-%d", msgID, time.Now().UnixMilli())
	result, orderType, err := s.executeEntry(ctx, sig, lot, clientID)
	if err != nil {
		log.Printf("Order failed: %v", err)
		metrics.BrokerErrors.Inc()
		s.flush()
		return "", false
	}

	ticket := result.Ticket
	if ticket == "" {
		ticket = clientID
	}
	entryPrice := result.Price
	if entryPrice == 0 && sig.Price != nil {
		entryPrice = *sig.Price
	}

	tp1 := sig.TP1()
	var tp1Target *float64
	if tp1 != nil && entryPrice != 0 {
		target := math.Abs(*tp1-entryPrice) * lot * 100
		tp1Target = &target
	}

	trade := &domain.OpenTrade{
		Ticket:          ticket,
		Symbol:          sig.Symbol,
		Side:            sig.Side,
		EntryPrice:      entryPrice,
		Volume:          lot,
		StopLoss:        sig.StopLoss,
		TP1:             tp1,
		TakeProfits:     sig.TakeProfits,
		VIP:             sig.VIP,
		SourceMessageID: msgID,
		ClientRequestID: clientID,
		OpenedAt:        time.Now(),
		PeakProfit:      0,
		TP1ProfitTarget: tp1Target,
	}
	if err := s.repo.CreateTrade(trade); err != nil {
		log.Printf("Record trade %s: %v", ticket, err)
		s.flush()
		return "", false
	}

	s.logRow(domain.TradeLogRow{
		Time:   time.Now(),
		Action: domain.ActionOpen,
		Symbol: sig.Symbol,
		Side:   sig.Side,
		Volume: lot,
		Price:  &entryPrice,
		SL:     sig.StopLoss,
		TP:     tp1,
		Ticket: ticket,
		Notes:  fmt.Sprintf("vip=%t", sig.VIP),
	})
	metrics.Orders.WithLabelValues(orderType, string(sig.Side)).Inc()
	metrics.OpenTrades.Set(float64(len(s.repo.OpenTrades())))
	if s.notifier != nil {
		s.notifier.TradeOpened(trade)
	}
	s.flush()
	return ticket, true
}

// tp1Blocked reports whether any open trade sharing symbol and side is
// still short of the TP1 progress threshold. A trade without a profit
// target counts as fully progressed.
func (s *CopierService) tp1Blocked(ctx context.Context, symbol string, side domain.Side) bool {
	for _, t := range s.repo.OpenTrades() {
		if t.Symbol != symbol || t.Side != side || t.TP1 == nil {
			continue
		}
		if t.TP1ProfitTarget == nil || *t.TP1ProfitTarget == 0 {
			continue
		}
		profit, err := s.broker.GetProfit(ctx, t.Ticket, "")
		if err != nil {
			log.Printf("Profit lookup for %s failed: %v", t.Ticket, err)
			continue
		}
		progress := profit / *t.TP1ProfitTarget * 100
		if progress < s.settings.TP1ThresholdPercent {
			return true
		}
	}
	return false
}

// executeEntry places the order. A ranged limit signal is converted to a
// market order when the live price sits within the near-miss tolerance of
// the relevant range edge, or has already crossed into the range within
// that tolerance; a resting limit would likely not fill in time.
func (s *CopierService) executeEntry(ctx context.Context, sig domain.Signal, lot float64, clientID string) (*domain.OrderResult, string, error) {
	req := &domain.OrderRequest{
		Symbol:          sig.Symbol,
		Side:            sig.Side,
		Volume:          lot,
		StopLoss:        sig.StopLoss,
		TakeProfit:      sig.TP1(),
		ClientRequestID: clientID,
	}

	if sig.EntryType != domain.EntryLimit || sig.PriceRange == nil {
		res, err := s.broker.PlaceMarket(ctx, req)
		return res, "market", err
	}

	low, high := sig.PriceRange.Low, sig.PriceRange.High
	limitPrice := low
	if sig.Side == domain.SideSell {
		limitPrice = high
	}

	current := limitPrice
	if sig.Price != nil {
		current = *sig.Price
	}
	if q, err := s.broker.GetQuote(ctx, sig.Symbol); err == nil && q.HasPrices() {
		current = q.Mid()
	}

	tol := s.settings.NearMissPips
	var nearMiss bool
	if sig.Side == domain.SideBuy {
		nearMiss = math.Abs(current-low) <= tol || (current <= high && current-low <= tol)
	} else {
		nearMiss = math.Abs(current-high) <= tol || (current >= low && high-current <= tol)
	}

	if nearMiss {
		res, err := s.broker.PlaceMarket(ctx, req)
		return res, "market", err
	}
	req.Price = limitPrice
	res, err := s.broker.PlaceLimit(ctx, req)
	return res, "limit", err
}

// logRow appends to the trade log; a write failure never aborts the trade.
func (s *CopierService) logRow(row domain.TradeLogRow) {
	if s.tradeLog == nil {
		return
	}
	if err := s.tradeLog.Append(row); err != nil {
		log.Printf("Trade log append failed: %v", err)
	}
}

// flush persists the full state. Failures are logged, not propagated; the
// in-memory state stays authoritative until a later flush succeeds.
func (s *CopierService) flush() {
	if err := s.repo.Flush(); err != nil {
		log.Printf("State save error: %v", err)
	}
}
