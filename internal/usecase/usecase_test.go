package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"fxcopier-backend/internal/domain"
	"fxcopier-backend/internal/repository"
)

// fakeBroker records every call and answers from fixed fixtures.
type fakeBroker struct {
	balance       float64
	quotes        map[string]domain.Quote
	profits       map[string]float64
	symbolProfits map[string]float64
	failOrders    bool

	marketCalls []*domain.OrderRequest
	limitCalls  []*domain.OrderRequest
	modifyCalls []modifyCall
	closeCalls  []closeCall
	nextTicket  int
}

type modifyCall struct {
	ticket string
	sl, tp *float64
}

type closeCall struct {
	ticket string
	volume *float64
}

func (b *fakeBroker) GetAccount(ctx context.Context) (*domain.Account, error) {
	return &domain.Account{Balance: b.balance}, nil
}

func (b *fakeBroker) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, ok := b.quotes[symbol]
	if !ok {
		return &domain.Quote{}, nil
	}
	return &q, nil
}

func (b *fakeBroker) place(req *domain.OrderRequest) (*domain.OrderResult, error) {
	if b.failOrders {
		return nil, errors.New("order rejected")
	}
	b.nextTicket++
	return &domain.OrderResult{Ticket: fmt.Sprintf("TK%d", b.nextTicket)}, nil
}

func (b *fakeBroker) PlaceMarket(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	b.marketCalls = append(b.marketCalls, req)
	return b.place(req)
}

func (b *fakeBroker) PlaceLimit(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	b.limitCalls = append(b.limitCalls, req)
	return b.place(req)
}

func (b *fakeBroker) ModifyOrder(ctx context.Context, ticket string, sl, tp *float64) error {
	b.modifyCalls = append(b.modifyCalls, modifyCall{ticket: ticket, sl: sl, tp: tp})
	return nil
}

func (b *fakeBroker) CloseOrder(ctx context.Context, ticket string, volume *float64) error {
	b.closeCalls = append(b.closeCalls, closeCall{ticket: ticket, volume: volume})
	return nil
}

func (b *fakeBroker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return nil, nil
}

func (b *fakeBroker) GetProfit(ctx context.Context, ticket, symbol string) (float64, error) {
	if p, ok := b.profits[ticket]; ok {
		return p, nil
	}
	if p, ok := b.symbolProfits[symbol]; ok {
		return p, nil
	}
	return 0, nil
}

var _ domain.Broker = (*fakeBroker)(nil)

func newTestService(t *testing.T, broker *fakeBroker) (*CopierService, domain.TradeStateRepository) {
	t.Helper()
	store := repository.NewTradeStateStore(
		repository.NewFilePersister(filepath.Join(t.TempDir(), "state.json")))
	svc := NewCopierService(broker, store, nil, domain.DefaultCopierSettings())
	return svc, store
}

func f64(v float64) *float64 { return &v }

func buySignal(symbol string) domain.Signal {
	return domain.Signal{
		Symbol:    symbol,
		Side:      domain.SideBuy,
		EntryType: domain.EntryMarket,
		Price:     f64(2300),
	}
}
