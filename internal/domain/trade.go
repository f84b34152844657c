package domain

import "time"

// TradeResult is the outcome of the previous trade, used by lot sizing.
type TradeResult string

const (
	ResultWin  TradeResult = "win"
	ResultLoss TradeResult = "loss"
)

// OpenTrade represents one live position tracked by the copier.
type OpenTrade struct {
	Ticket          string    `json:"ticket"`
	Symbol          string    `json:"symbol"`
	Side            Side      `json:"side"`
	EntryPrice      float64   `json:"entryPrice"`
	Volume          float64   `json:"volume"`
	StopLoss        *float64  `json:"stopLoss,omitempty"`
	TP1             *float64  `json:"tp1,omitempty"`
	TakeProfits     []float64 `json:"takeProfits,omitempty"`
	VIP             bool      `json:"vip"`
	SourceMessageID string    `json:"sourceMessageId"`
	ClientRequestID string    `json:"clientRequestId"`
	OpenedAt        time.Time `json:"openedAt"`
	PeakProfit      float64   `json:"peakProfit"`
	// TP1ProfitTarget is the estimated $ profit at TP1. nil means the
	// TP1-progress gate treats the trade as fully progressed.
	TP1ProfitTarget *float64 `json:"tp1ProfitTarget,omitempty"`
}

// Clone returns an independent copy, so callers never hold a reference
// into the state store's collections.
func (t *OpenTrade) Clone() *OpenTrade {
	c := *t
	if t.StopLoss != nil {
		v := *t.StopLoss
		c.StopLoss = &v
	}
	if t.TP1 != nil {
		v := *t.TP1
		c.TP1 = &v
	}
	if t.TP1ProfitTarget != nil {
		v := *t.TP1ProfitTarget
		c.TP1ProfitTarget = &v
	}
	if t.TakeProfits != nil {
		c.TakeProfits = append([]float64(nil), t.TakeProfits...)
	}
	return &c
}

// TradeHistoryEntry is a closed trade snapshot. Append-only.
type TradeHistoryEntry struct {
	OpenTrade
	ClosedAt time.Time `json:"closedAt"`
}

// TradeStateRepository owns the persisted copier state: the processed-message
// ledger, the open trades and the trade history. Implementations must make
// Flush atomic from a concurrent reader's perspective; a failed Flush leaves
// the in-memory state authoritative.
type TradeStateRepository interface {
	IsProcessed(messageID string) bool
	MarkProcessed(messageID string)

	CreateTrade(t *OpenTrade) error
	UpdateTrade(t *OpenTrade) error
	GetTrade(ticket string) (*OpenTrade, bool)
	OpenTrades() []*OpenTrade
	CountOpenBySymbol(symbol string) int
	FindOpenBySymbol(symbol string) (*OpenTrade, bool)
	FindOpenByMessageID(messageID string) (*OpenTrade, bool)
	MostRecentOpen() (*OpenTrade, bool)

	// CloseTrade moves an open trade to history with the given close time.
	CloseTrade(ticket string, closedAt time.Time) (*TradeHistoryEntry, error)
	History(from time.Time) []TradeHistoryEntry

	Flush() error
}
