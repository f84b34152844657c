package domain

import "time"

// TradeAction labels one row of the append-only trade log.
type TradeAction string

const (
	ActionOpen         TradeAction = "open"
	ActionPartialClose TradeAction = "partial_close"
	ActionClose        TradeAction = "close"
	ActionBreakeven    TradeAction = "breakeven"
	ActionTightenSL    TradeAction = "tighten_sl"
	ActionVIPClose     TradeAction = "vip_close"
)

// TradeLogRow is one action taken on a trade. Price/SL/TP are nil when the
// action has no meaningful value for them.
type TradeLogRow struct {
	Time   time.Time
	Action TradeAction
	Symbol string
	Side   Side
	Volume float64
	Price  *float64
	SL     *float64
	TP     *float64
	Ticket string
	Notes  string
}

// TradeLogger appends trade actions to a durable log.
type TradeLogger interface {
	Append(row TradeLogRow) error
}
