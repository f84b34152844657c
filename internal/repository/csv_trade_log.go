package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"fxcopier-backend/internal/domain"
)

var tradeLogHeader = []string{"time", "action", "symbol", "side", "volume", "price", "sl", "tp", "ticket", "notes"}

// CSVTradeLog appends one row per trade action to a CSV file. The header is
// written once when the file is created.
type CSVTradeLog struct {
	mu   sync.Mutex
	path string
}

func NewCSVTradeLog(path string) *CSVTradeLog {
	return &CSVTradeLog{path: path}
}

func (l *CSVTradeLog) Append(row domain.TradeLogRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(tradeLogHeader); err != nil {
			return err
		}
	}
	record := []string{
		row.Time.Format("2006-01-02 15:04:05"),
		string(row.Action),
		row.Symbol,
		string(row.Side),
		formatVolume(row.Volume),
		formatPrice(row.Price),
		formatPrice(row.SL),
		formatPrice(row.TP),
		row.Ticket,
		row.Notes,
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// compile-time check
var _ domain.TradeLogger = (*CSVTradeLog)(nil)
