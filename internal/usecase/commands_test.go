package usecase

import (
	"context"
	"testing"
	"time"

	"fxcopier-backend/internal/domain"
)

func openFixture(t *testing.T, store domain.TradeStateRepository, ticket, symbol string, side domain.Side, openedAt time.Time) *domain.OpenTrade {
	t.Helper()
	tr := &domain.OpenTrade{
		Ticket:          ticket,
		Symbol:          symbol,
		Side:            side,
		EntryPrice:      2300,
		Volume:          1.0,
		StopLoss:        f64(2295),
		TP1:             f64(2320),
		SourceMessageID: "src-" + ticket,
		OpenedAt:        openedAt,
	}
	if err := store.CreateTrade(tr); err != nil {
		t.Fatalf("CreateTrade(%s): %v", ticket, err)
	}
	return tr
}

func TestCommandTargetsSymbolMatchOverRecency(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)

	base := time.Now()
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, base)
	openFixture(t, store, "T2", "EURUSD", domain.SideBuy, base.Add(time.Minute))

	sig := domain.Signal{Symbol: "XAUUSD"}
	if !svc.ApplyCommand(context.Background(), "msg-1", sig, "close all") {
		t.Fatal("command should apply")
	}
	if len(broker.closeCalls) != 1 || broker.closeCalls[0].ticket != "T1" {
		t.Fatalf("close calls = %+v, want T1 despite T2 being newer", broker.closeCalls)
	}
}

func TestCommandFallsBackToMostRecent(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)

	base := time.Now()
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, base)
	openFixture(t, store, "T2", "EURUSD", domain.SideBuy, base.Add(time.Minute))

	if !svc.ApplyCommand(context.Background(), "msg-1", domain.Signal{}, "close all") {
		t.Fatal("command should apply")
	}
	if broker.closeCalls[0].ticket != "T2" {
		t.Fatalf("close target = %s, want the most recent T2", broker.closeCalls[0].ticket)
	}
}

func TestCommandNoOpenTradesIsNoOp(t *testing.T) {
	broker := &fakeBroker{}
	svc, _ := newTestService(t, broker)

	if svc.ApplyCommand(context.Background(), "msg-1", domain.Signal{}, "close all") {
		t.Fatal("no open trades must report a no-op")
	}
	if len(broker.closeCalls) != 0 {
		t.Fatal("no broker call expected")
	}
}

func TestPartialCloseKeepsTrackedVolume(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, time.Now())

	sig := domain.Signal{Symbol: "XAUUSD"}
	if !svc.ApplyCommand(context.Background(), "msg-1", sig, "close half") {
		t.Fatal("command should apply")
	}
	if got := broker.closeCalls[0]; got.volume == nil || *got.volume != 0.5 {
		t.Fatalf("partial close volume = %v, want 0.5", got.volume)
	}
	// The remaining position's bookkeeping is the broker's; the local record
	// is not reduced, so a second partial close sends 50% of the original.
	tr, _ := store.GetTrade("T1")
	if tr.Volume != 1.0 {
		t.Fatalf("tracked volume = %v, want unchanged 1.0", tr.Volume)
	}
	if !svc.ApplyCommand(context.Background(), "msg-2", sig, "partial") {
		t.Fatal("second command should apply")
	}
	if *broker.closeCalls[1].volume != 0.5 {
		t.Fatalf("second partial volume = %v, want 0.5 again", *broker.closeCalls[1].volume)
	}
}

func TestFullCloseMovesToHistory(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, time.Now())

	if !svc.ApplyCommand(context.Background(), "msg-1", domain.Signal{Symbol: "XAUUSD"}, "take profit now") {
		t.Fatal("command should apply")
	}
	if got := broker.closeCalls[0]; got.volume != nil {
		t.Fatal("full close must not pass a volume")
	}
	if _, ok := store.GetTrade("T1"); ok {
		t.Fatal("closed trade must leave the open set")
	}
	hist := store.History(time.Time{})
	if len(hist) != 1 || hist[0].Ticket != "T1" || hist[0].ClosedAt.IsZero() {
		t.Fatalf("history = %+v", hist)
	}
}

func TestBreakevenMovesStopToEntry(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, time.Now())

	if !svc.ApplyCommand(context.Background(), "msg-1", domain.Signal{Symbol: "XAUUSD"}, "secure entry") {
		t.Fatal("command should apply")
	}
	mod := broker.modifyCalls[0]
	if mod.ticket != "T1" || mod.sl == nil || *mod.sl != 2300 {
		t.Fatalf("modify = %+v, want SL at entry 2300", mod)
	}
	if mod.tp == nil || *mod.tp != 2320 {
		t.Fatalf("breakeven must keep TP1, got %v", mod.tp)
	}
}

func TestTightenStopUsesMidAndOffset(t *testing.T) {
	broker := &fakeBroker{quotes: map[string]domain.Quote{
		"XAUUSD": {Bid: 2304.9, Ask: 2305.1}, // mid 2305
	}}
	svc, store := newTestService(t, broker)
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, time.Now())
	openFixture(t, store, "T2", "EURUSD", domain.SideSell, time.Now().Add(time.Second))
	broker.quotes["EURUSD"] = domain.Quote{Bid: 1.0999, Ask: 1.1001} // mid 1.1

	if !svc.ApplyCommand(context.Background(), "msg-1", domain.Signal{Symbol: "XAUUSD"}, "tighten") {
		t.Fatal("command should apply")
	}
	if got := *broker.modifyCalls[0].sl; got != 2304.5 {
		t.Fatalf("buy tighten SL = %v, want mid - offset = 2304.5", got)
	}
	if broker.modifyCalls[0].tp != nil {
		t.Fatal("tighten must not touch the take profit")
	}

	if !svc.ApplyCommand(context.Background(), "msg-2", domain.Signal{Symbol: "EURUSD"}, "tighten") {
		t.Fatal("command should apply")
	}
	if got := *broker.modifyCalls[1].sl; got != 1.6 {
		t.Fatalf("sell tighten SL = %v, want mid + offset = 1.6", got)
	}
}

func TestReplyCommandRoutesToParentTrade(t *testing.T) {
	broker := &fakeBroker{}
	svc, store := newTestService(t, broker)

	base := time.Now()
	openFixture(t, store, "T1", "XAUUSD", domain.SideBuy, base)
	openFixture(t, store, "T2", "EURUSD", domain.SideBuy, base.Add(time.Minute))

	if !svc.ApplyCommandToParent(context.Background(), "src-T1", "close all") {
		t.Fatal("reply command should apply")
	}
	if broker.closeCalls[0].ticket != "T1" {
		t.Fatalf("close target = %s, want the parent's trade T1", broker.closeCalls[0].ticket)
	}
	if svc.ApplyCommandToParent(context.Background(), "src-unknown", "close all") {
		t.Fatal("unknown parent must be a no-op")
	}
}
