package domain

import "context"

// Account is the broker account snapshot the copier needs for sizing.
type Account struct {
	Balance float64 `json:"balance"`
}

// Quote is a two-sided price for a symbol.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// Mid returns the midpoint of bid and ask.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// HasPrices reports whether the quote carries usable prices.
func (q Quote) HasPrices() bool {
	return q.Bid > 0 && q.Ask > 0
}

// OrderRequest describes an order to be placed. ClientRequestID is the
// idempotency token; the broker client generates one if it is empty.
type OrderRequest struct {
	Symbol          string
	Side            Side
	Volume          float64
	Price           float64 // limit orders only
	StopLoss        *float64
	TakeProfit      *float64
	ClientRequestID string
}

// OrderResult is the broker's acknowledgement of a placed order.
type OrderResult struct {
	Ticket string
	Price  float64 // reported execution price, 0 when unknown
}

// Position is a live broker-side position.
type Position struct {
	Ticket string  `json:"ticket"`
	Symbol string  `json:"symbol"`
	Side   Side    `json:"side"`
	Volume float64 `json:"volume"`
	Profit float64 `json:"profit"`
}

// Broker is the execution capability the copier consumes. All calls are
// expected to retry transient failures internally; a returned error means
// the operation is aborted for this invocation.
type Broker interface {
	GetAccount(ctx context.Context) (*Account, error)
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	PlaceMarket(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	PlaceLimit(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	ModifyOrder(ctx context.Context, ticket string, stopLoss, takeProfit *float64) error
	// CloseOrder closes the position, fully when volume is nil.
	CloseOrder(ctx context.Context, ticket string, volume *float64) error
	GetPositions(ctx context.Context) ([]Position, error)
	// GetProfit resolves current profit by ticket first, then by symbol.
	// A position that cannot be found yields 0, not an error.
	GetProfit(ctx context.Context, ticket, symbol string) (float64, error)
}
