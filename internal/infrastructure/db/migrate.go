package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the minimal tables needed by this app.
// This keeps setup simple (no external migration tool), but still gives persistence.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists processed_messages (
			message_id text primary key,
			processed_at timestamptz not null default now()
		);`,
		`create table if not exists open_trades (
			ticket text primary key,
			symbol text not null,
			side text not null,
			entry_price double precision not null,
			volume double precision not null,
			stop_loss double precision null,
			tp1 double precision null,
			take_profits double precision[] not null default '{}',
			vip boolean not null default false,
			source_message_id text not null default '',
			client_request_id text not null default '',
			opened_at timestamptz not null,
			peak_profit double precision not null default 0,
			tp1_profit_target double precision null
		);`,
		`create table if not exists trade_history (
			ticket text not null,
			symbol text not null,
			side text not null,
			entry_price double precision not null,
			volume double precision not null,
			stop_loss double precision null,
			tp1 double precision null,
			take_profits double precision[] not null default '{}',
			vip boolean not null default false,
			source_message_id text not null default '',
			client_request_id text not null default '',
			opened_at timestamptz not null,
			peak_profit double precision not null default 0,
			tp1_profit_target double precision null,
			closed_at timestamptz not null,
			primary key (ticket, closed_at)
		);`,
		`create table if not exists copier_settings (
			id int primary key,
			near_miss_pips double precision not null,
			vip_trail_distance double precision not null,
			tp1_threshold_percent double precision not null,
			max_concurrent_per_symbol int not null,
			min_lot double precision not null,
			tighten_offset double precision not null,
			updated_at timestamptz not null default now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
