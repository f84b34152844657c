package repository

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fxcopier-backend/internal/domain"
)

func TestCSVTradeLogHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	logger := NewCSVTradeLog(path)

	when := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	row := domain.TradeLogRow{
		Time:   when,
		Action: domain.ActionOpen,
		Symbol: "XAUUSD",
		Side:   domain.SideBuy,
		Volume: 0.01,
		Price:  f64(2300.5),
		SL:     f64(2290),
		TP:     f64(2310),
		Ticket: "T1",
		Notes:  "range entry",
	}
	if err := logger.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	row.Action = domain.ActionClose
	row.Notes = ""
	if err := logger.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[0][0] != "time" || records[0][9] != "notes" {
		t.Fatalf("header = %v", records[0])
	}
	first := records[1]
	if first[0] != "2026-03-01 10:30:00" || first[1] != "open" || first[2] != "XAUUSD" {
		t.Fatalf("first row = %v", first)
	}
	if first[4] != "0.01" || first[5] != "2300.5" || first[8] != "T1" {
		t.Fatalf("first row = %v", first)
	}
	if records[2][1] != "close" {
		t.Fatalf("second row action = %q", records[2][1])
	}
}

func TestCSVTradeLogNilPricesStayEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	logger := NewCSVTradeLog(path)

	row := domain.TradeLogRow{
		Time:   time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		Action: domain.ActionBreakeven,
		Symbol: "EURUSD",
		Side:   domain.SideSell,
		Volume: 0.5,
		Ticket: "T2",
	}
	if err := logger.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := records[1]
	for _, idx := range []int{5, 6, 7} {
		if got[idx] != "" {
			t.Fatalf("column %d should be empty, got %q", idx, got[idx])
		}
	}
}

func TestCSVTradeLogAppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	when := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	row := domain.TradeLogRow{Time: when, Action: domain.ActionOpen, Symbol: "XAUUSD", Side: domain.SideBuy, Volume: 0.01, Ticket: "T1"}
	if err := NewCSVTradeLog(path).Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// A restart reopens the same file and must not repeat the header.
	row.Ticket = "T2"
	if err := NewCSVTradeLog(path).Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[1][8] != "T1" || records[2][8] != "T2" {
		t.Fatalf("rows = %v / %v", records[1], records[2])
	}
}
