package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"fxcopier-backend/internal/domain"
)

// PostgresPersister stores the copier state in Postgres. Save rewrites the
// open-trades table and appends to the ledger tables inside one
// transaction, so the stored state is always a consistent snapshot.
type PostgresPersister struct {
	pool *pgxpool.Pool
}

func NewPostgresPersister(pool *pgxpool.Pool) *PostgresPersister {
	return &PostgresPersister{pool: pool}
}

const openTradeColumns = `ticket, symbol, side, entry_price, volume, stop_loss, tp1,
	take_profits, vip, source_message_id, client_request_id, opened_at,
	peak_profit, tp1_profit_target`

func (p *PostgresPersister) Load() (*snapshot, error) {
	ctx := context.Background()
	snap := emptySnapshot()

	rows, err := p.pool.Query(ctx, `select message_id from processed_messages order by message_id`)
	if err != nil {
		return nil, fmt.Errorf("load processed messages: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		snap.ProcessedMessages = append(snap.ProcessedMessages, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.pool.Query(ctx, `select `+openTradeColumns+` from open_trades order by opened_at`)
	if err != nil {
		return nil, fmt.Errorf("load open trades: %w", err)
	}
	for rows.Next() {
		t, scanErr := scanOpenTrade(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		snap.OpenTrades[t.Ticket] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.pool.Query(ctx, `select `+openTradeColumns+`, closed_at from trade_history order by closed_at`)
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w", err)
	}
	for rows.Next() {
		entry, scanErr := scanHistoryEntry(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		snap.TradeHistory = append(snap.TradeHistory, *entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

func (p *PostgresPersister) Save(snap *snapshot) error {
	ctx := context.Background()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin state save: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range snap.ProcessedMessages {
		if _, err := tx.Exec(ctx, `
			insert into processed_messages(message_id) values ($1)
			on conflict (message_id) do nothing
		`, id); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `delete from open_trades`); err != nil {
		return err
	}
	for _, t := range snap.OpenTrades {
		if _, err := tx.Exec(ctx, `
			insert into open_trades(`+openTradeColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		`, openTradeArgs(t)...); err != nil {
			return err
		}
	}

	for i := range snap.TradeHistory {
		e := &snap.TradeHistory[i]
		args := append(openTradeArgs(&e.OpenTrade), e.ClosedAt)
		if _, err := tx.Exec(ctx, `
			insert into trade_history(`+openTradeColumns+`, closed_at)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			on conflict (ticket, closed_at) do nothing
		`, args...); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func openTradeArgs(t *domain.OpenTrade) []any {
	return []any{
		t.Ticket,
		t.Symbol,
		string(t.Side),
		t.EntryPrice,
		t.Volume,
		nullableFloat(t.StopLoss),
		nullableFloat(t.TP1),
		t.TakeProfits,
		t.VIP,
		t.SourceMessageID,
		t.ClientRequestID,
		t.OpenedAt,
		t.PeakProfit,
		nullableFloat(t.TP1ProfitTarget),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOpenTradeInto(s scanner, t *domain.OpenTrade, extra ...any) error {
	var side string
	var stopLoss, tp1, tp1Target pgtype.Float8
	dest := []any{
		&t.Ticket,
		&t.Symbol,
		&side,
		&t.EntryPrice,
		&t.Volume,
		&stopLoss,
		&tp1,
		&t.TakeProfits,
		&t.VIP,
		&t.SourceMessageID,
		&t.ClientRequestID,
		&t.OpenedAt,
		&t.PeakProfit,
		&tp1Target,
	}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	t.Side = domain.Side(side)
	t.StopLoss = floatPtr(stopLoss)
	t.TP1 = floatPtr(tp1)
	t.TP1ProfitTarget = floatPtr(tp1Target)
	return nil
}

func scanOpenTrade(s scanner) (*domain.OpenTrade, error) {
	var t domain.OpenTrade
	if err := scanOpenTradeInto(s, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanHistoryEntry(s scanner) (*domain.TradeHistoryEntry, error) {
	var e domain.TradeHistoryEntry
	if err := scanOpenTradeInto(s, &e.OpenTrade, &e.ClosedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Valid: true, Float64: *v}
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// compile-time check
var _ StatePersister = (*PostgresPersister)(nil)
