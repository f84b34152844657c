package repository

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"fxcopier-backend/internal/domain"
)

// snapshot is the full persisted state, the unit every flush writes.
type snapshot struct {
	ProcessedMessages []string                     `json:"processedMessages"`
	OpenTrades        map[string]*domain.OpenTrade `json:"openTrades"`
	TradeHistory      []domain.TradeHistoryEntry   `json:"tradeHistory"`
}

// StatePersister round-trips the full copier state to durable storage.
// Load returns an empty snapshot when no storage exists yet; Save must be
// atomic from a concurrent reader's perspective.
type StatePersister interface {
	Load() (*snapshot, error)
	Save(snap *snapshot) error
}

// TradeStateStore is the single owner of the processed-message ledger, the
// open trades and the trade history. The in-memory state is authoritative;
// Flush pushes a full snapshot to the persister. Callers only ever receive
// copies of trades.
type TradeStateStore struct {
	mu        sync.RWMutex
	persister StatePersister
	processed map[string]struct{}
	open      map[string]*domain.OpenTrade
	history   []domain.TradeHistoryEntry
}

// NewTradeStateStore builds a store hydrated from the persister. A load
// failure is logged and yields an empty state, never an error: a missing
// state file on first run is the normal case.
func NewTradeStateStore(p StatePersister) *TradeStateStore {
	s := &TradeStateStore{
		persister: p,
		processed: make(map[string]struct{}),
		open:      make(map[string]*domain.OpenTrade),
	}
	snap, err := p.Load()
	if err != nil {
		log.Printf("state load: %v (starting empty)", err)
		return s
	}
	for _, id := range snap.ProcessedMessages {
		s.processed[id] = struct{}{}
	}
	for ticket, t := range snap.OpenTrades {
		s.open[ticket] = t.Clone()
	}
	s.history = append(s.history, snap.TradeHistory...)
	return s
}

func (s *TradeStateStore) IsProcessed(messageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[messageID]
	return ok
}

func (s *TradeStateStore) MarkProcessed(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[messageID] = struct{}{}
}

func (s *TradeStateStore) CreateTrade(t *domain.OpenTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.open[t.Ticket]; exists {
		return fmt.Errorf("trade with ticket %s already exists", t.Ticket)
	}
	s.open[t.Ticket] = t.Clone()
	return nil
}

func (s *TradeStateStore) UpdateTrade(t *domain.OpenTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.open[t.Ticket]; !exists {
		return fmt.Errorf("trade %s not found", t.Ticket)
	}
	s.open[t.Ticket] = t.Clone()
	return nil
}

func (s *TradeStateStore) GetTrade(ticket string) (*domain.OpenTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.open[ticket]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// OpenTrades returns copies of all open trades, oldest first.
func (s *TradeStateStore) OpenTrades() []*domain.OpenTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := make([]*domain.OpenTrade, 0, len(s.open))
	for _, t := range s.open {
		trades = append(trades, t.Clone())
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].OpenedAt.Before(trades[j].OpenedAt)
	})
	return trades
}

func (s *TradeStateStore) CountOpenBySymbol(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.open {
		if t.Symbol == symbol {
			n++
		}
	}
	return n
}

// FindOpenBySymbol returns the oldest open trade for the symbol.
func (s *TradeStateStore) FindOpenBySymbol(symbol string) (*domain.OpenTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.OpenTrade
	for _, t := range s.open {
		if t.Symbol != symbol {
			continue
		}
		if best == nil || t.OpenedAt.Before(best.OpenedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

func (s *TradeStateStore) FindOpenByMessageID(messageID string) (*domain.OpenTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.open {
		if t.SourceMessageID == messageID {
			return t.Clone(), true
		}
	}
	return nil, false
}

func (s *TradeStateStore) MostRecentOpen() (*domain.OpenTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.OpenTrade
	for _, t := range s.open {
		if best == nil || t.OpenedAt.After(best.OpenedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

func (s *TradeStateStore) CloseTrade(ticket string, closedAt time.Time) (*domain.TradeHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.open[ticket]
	if !ok {
		return nil, fmt.Errorf("trade %s not found", ticket)
	}
	delete(s.open, ticket)
	entry := domain.TradeHistoryEntry{OpenTrade: *t.Clone(), ClosedAt: closedAt}
	s.history = append(s.history, entry)
	copyEntry := entry
	copyEntry.OpenTrade = *entry.OpenTrade.Clone()
	return &copyEntry, nil
}

// History returns closed trades with ClosedAt at or after from, newest last.
// A zero from returns everything.
func (s *TradeStateStore) History(from time.Time) []domain.TradeHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TradeHistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		if !from.IsZero() && e.ClosedAt.Before(from) {
			continue
		}
		c := e
		c.OpenTrade = *e.OpenTrade.Clone()
		out = append(out, c)
	}
	return out
}

// Flush writes the full state through the persister. The in-memory state
// stays authoritative when the write fails.
func (s *TradeStateStore) Flush() error {
	s.mu.RLock()
	snap := &snapshot{
		ProcessedMessages: make([]string, 0, len(s.processed)),
		OpenTrades:        make(map[string]*domain.OpenTrade, len(s.open)),
		TradeHistory:      make([]domain.TradeHistoryEntry, len(s.history)),
	}
	for id := range s.processed {
		snap.ProcessedMessages = append(snap.ProcessedMessages, id)
	}
	sort.Strings(snap.ProcessedMessages)
	for ticket, t := range s.open {
		snap.OpenTrades[ticket] = t.Clone()
	}
	copy(snap.TradeHistory, s.history)
	s.mu.RUnlock()

	return s.persister.Save(snap)
}

// compile-time check
var _ domain.TradeStateRepository = (*TradeStateStore)(nil)
