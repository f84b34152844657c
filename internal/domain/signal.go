package domain

// Side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// EntryType distinguishes immediate execution from a resting order.
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryLimit  EntryType = "limit"
)

// PriceRange is an ordered entry zone, Low <= High.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Signal is the structured interpretation of one inbound alert message.
// Fields that could not be extracted from the text are left nil/empty;
// an unparseable message is simply not an entry signal.
type Signal struct {
	Raw         string      `json:"raw"`
	Symbol      string      `json:"symbol,omitempty"`
	Side        Side        `json:"side,omitempty"`
	EntryType   EntryType   `json:"entryType"`
	Price       *float64    `json:"price,omitempty"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
	StopLoss    *float64    `json:"stopLoss,omitempty"`
	TakeProfits []float64   `json:"takeProfits,omitempty"`
	Commands    []string    `json:"commands,omitempty"`
	VIP         bool        `json:"vip"`
	AllowAgain  bool        `json:"allowAgain"`
}

// IsEntry reports whether the signal carries enough to open a position.
func (s *Signal) IsEntry() bool {
	return s.Symbol != "" && s.Side != ""
}

// TP1 returns the first take-profit, the only one sent to the broker.
func (s *Signal) TP1() *float64 {
	if len(s.TakeProfits) == 0 {
		return nil
	}
	tp := s.TakeProfits[0]
	return &tp
}
