package usecase

import (
	"context"
	"testing"

	"fxcopier-backend/internal/domain"
)

func TestOpenTradeIdempotency(t *testing.T) {
	broker := &fakeBroker{balance: 1000}
	svc, store := newTestService(t, broker)

	ticket, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", buySignal("XAUUSD"), domain.ResultWin)
	if !ok || ticket == "" {
		t.Fatal("first call should open a trade")
	}
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", buySignal("XAUUSD"), domain.ResultWin); ok {
		t.Fatal("second call with the same message id must be a no-op")
	}
	if len(store.OpenTrades()) != 1 {
		t.Fatalf("open trades = %d, want 1", len(store.OpenTrades()))
	}
	if len(broker.marketCalls) != 1 {
		t.Fatalf("market orders = %d, want 1", len(broker.marketCalls))
	}
}

func TestConcurrencyGate(t *testing.T) {
	broker := &fakeBroker{balance: 1000}
	svc, store := newTestService(t, broker)

	for i := 0; i < 3; i++ {
		if _, ok := svc.OpenTradeFromSignal(context.Background(),
			frame("msg", i), buySignal("XAUUSD"), domain.ResultWin); !ok {
			t.Fatalf("trade %d should open", i)
		}
	}
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-blocked", buySignal("XAUUSD"), domain.ResultWin); ok {
		t.Fatal("fourth trade for the same symbol must be blocked")
	}

	again := buySignal("XAUUSD")
	again.AllowAgain = true
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-again", again, domain.ResultWin); !ok {
		t.Fatal("allowAgain must bypass the concurrency gate")
	}
	if n := store.CountOpenBySymbol("XAUUSD"); n != 4 {
		t.Fatalf("open XAUUSD trades = %d, want 4", n)
	}
}

func frame(prefix string, i int) string {
	return prefix + "-" + string(rune('a'+i))
}

func TestTP1ProgressGate(t *testing.T) {
	broker := &fakeBroker{balance: 1000, profits: map[string]float64{"TK1": 10}}
	svc, store := newTestService(t, broker)

	first := buySignal("XAUUSD")
	first.TakeProfits = []float64{2320}
	ticket, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", first, domain.ResultWin)
	if !ok {
		t.Fatal("first trade should open")
	}
	held, _ := store.GetTrade(ticket)
	if held.TP1ProfitTarget == nil {
		t.Fatal("trade with TP1 and entry price should carry a profit target")
	}
	// Target = |2320-2300| * 5 lots * 100 = 10000; profit 10 is far below 75%.
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-2", first, domain.ResultWin); ok {
		t.Fatal("second same-symbol-same-side entry must be blocked by TP1 progress")
	}

	// Push profit past the threshold and the gate opens.
	broker.profits["TK1"] = *held.TP1ProfitTarget * 0.80
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-3", first, domain.ResultWin); !ok {
		t.Fatal("entry should pass once progress exceeds the threshold")
	}
}

func TestTP1GatePassesWithoutTarget(t *testing.T) {
	broker := &fakeBroker{balance: 1000, profits: map[string]float64{"TK1": 0}}
	svc, store := newTestService(t, broker)

	first := buySignal("XAUUSD")
	first.TakeProfits = []float64{2320}
	ticket, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", first, domain.ResultWin)
	if !ok {
		t.Fatal("first trade should open")
	}
	// A trade whose profit target is unknown never blocks pyramiding.
	held, _ := store.GetTrade(ticket)
	held.TP1ProfitTarget = nil
	if err := store.UpdateTrade(held); err != nil {
		t.Fatalf("UpdateTrade: %v", err)
	}
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-2", first, domain.ResultWin); !ok {
		t.Fatal("nil profit target must count as fully progressed")
	}
}

func TestCalculateLot(t *testing.T) {
	tests := []struct {
		name       string
		balance    float64
		lastResult domain.TradeResult
		want       float64
	}{
		{"tiny balance floors at min lot", 10, domain.ResultWin, 0.01},
		{"small balance after loss uses 40 percent", 30, domain.ResultLoss, 0.12},
		{"small balance after win uses 50 percent", 30, domain.ResultWin, 0.15},
		{"large balance uses 50 percent", 1000, domain.ResultWin, 5.0},
		{"large balance ignores last result", 1000, domain.ResultLoss, 5.0},
		{"boundary 15 is still min lot", 15, domain.ResultWin, 0.01},
		{"fractional balance below 16 skips the loss tier", 15.5, domain.ResultLoss, 0.08},
		{"boundary 16 after loss uses 40 percent", 16, domain.ResultLoss, 0.06},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateLot(tt.balance, tt.lastResult, 0.01); got != tt.want {
				t.Fatalf("calculateLot(%v, %s) = %v, want %v", tt.balance, tt.lastResult, got, tt.want)
			}
		})
	}
}

func TestNearMissRangeExecutesAsMarket(t *testing.T) {
	broker := &fakeBroker{
		balance: 1000,
		quotes:  map[string]domain.Quote{"XAUUSD": {Bid: 2297.9, Ask: 2298.1}}, // mid 2298
	}
	svc, _ := newTestService(t, broker)

	sig := domain.Signal{
		Symbol:     "XAUUSD",
		Side:       domain.SideBuy,
		EntryType:  domain.EntryLimit,
		Price:      f64(2305),
		PriceRange: &domain.PriceRange{Low: 2300, High: 2310},
	}
	// |2298-2300| = 2 <= tolerance 2, so the limit converts to a market order.
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", sig, domain.ResultWin); !ok {
		t.Fatal("trade should open")
	}
	if len(broker.marketCalls) != 1 || len(broker.limitCalls) != 0 {
		t.Fatalf("market=%d limit=%d, want the near-miss path", len(broker.marketCalls), len(broker.limitCalls))
	}
}

func TestFarRangeRestsLimitAtFarBoundary(t *testing.T) {
	broker := &fakeBroker{
		balance: 1000,
		quotes:  map[string]domain.Quote{"XAUUSD": {Bid: 2289.9, Ask: 2290.1}}, // mid 2290
	}
	svc, _ := newTestService(t, broker)

	sig := domain.Signal{
		Symbol:     "XAUUSD",
		Side:       domain.SideSell,
		EntryType:  domain.EntryLimit,
		Price:      f64(2305),
		PriceRange: &domain.PriceRange{Low: 2300, High: 2310},
	}
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", sig, domain.ResultWin); !ok {
		t.Fatal("trade should open")
	}
	if len(broker.limitCalls) != 1 {
		t.Fatalf("limit orders = %d, want 1", len(broker.limitCalls))
	}
	if got := broker.limitCalls[0].Price; got != 2310 {
		t.Fatalf("sell limit price = %v, want the high edge 2310", got)
	}
}

func TestOpenRecordsTradeFields(t *testing.T) {
	broker := &fakeBroker{balance: 1000}
	svc, store := newTestService(t, broker)

	sig := buySignal("XAUUSD")
	sig.StopLoss = f64(2295)
	sig.TakeProfits = []float64{2320, 2330}
	sig.VIP = true

	ticket, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", sig, domain.ResultWin)
	if !ok {
		t.Fatal("trade should open")
	}
	tr, found := store.GetTrade(ticket)
	if !found {
		t.Fatal("trade not recorded")
	}
	if tr.Symbol != "XAUUSD" || tr.Side != domain.SideBuy || !tr.VIP {
		t.Fatalf("trade = %+v", tr)
	}
	// Broker reported no fill price; the parsed price is the fallback.
	if tr.EntryPrice != 2300 {
		t.Fatalf("entry price = %v, want parsed 2300", tr.EntryPrice)
	}
	if tr.TP1 == nil || *tr.TP1 != 2320 || len(tr.TakeProfits) != 2 {
		t.Fatalf("take profits = %v / %v", tr.TP1, tr.TakeProfits)
	}
	if tr.PeakProfit != 0 {
		t.Fatalf("peak profit = %v, want 0", tr.PeakProfit)
	}
	if tr.SourceMessageID != "msg-1" || tr.ClientRequestID == "" {
		t.Fatalf("provenance = %q / %q", tr.SourceMessageID, tr.ClientRequestID)
	}
	// Only TP1 is sent to the broker.
	if req := broker.marketCalls[0]; req.TakeProfit == nil || *req.TakeProfit != 2320 {
		t.Fatalf("broker TP = %v, want 2320", req.TakeProfit)
	}
}

func TestOrderFailureLeavesNoTrade(t *testing.T) {
	broker := &fakeBroker{balance: 1000, failOrders: true}
	svc, store := newTestService(t, broker)

	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", buySignal("XAUUSD"), domain.ResultWin); ok {
		t.Fatal("failed order must not report success")
	}
	if len(store.OpenTrades()) != 0 {
		t.Fatal("failed order must not record a trade")
	}
	// The message stays processed so a replay cannot re-order it.
	broker.failOrders = false
	if _, ok := svc.OpenTradeFromSignal(context.Background(), "msg-1", buySignal("XAUUSD"), domain.ResultWin); ok {
		t.Fatal("replay of a failed message must stay blocked by the ledger")
	}
}
