package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fxcopier-backend/internal/domain"
)

// PostgresSettingsRepository stores the copier settings as a single row so
// tuning survives restarts.
type PostgresSettingsRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSettingsRepository(db *pgxpool.Pool) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) LoadSettings() (*domain.CopierSettings, error) {
	query := `
		SELECT near_miss_pips, vip_trail_distance, tp1_threshold_percent,
		       max_concurrent_per_symbol, min_lot, tighten_offset
		FROM copier_settings
		WHERE id = 1
	`
	var s domain.CopierSettings
	err := r.db.QueryRow(context.Background(), query).Scan(
		&s.NearMissPips,
		&s.VIPTrailDistance,
		&s.TP1ThresholdPercent,
		&s.MaxConcurrentPerSymbol,
		&s.MinLot,
		&s.TightenOffset,
	)
	if err == pgx.ErrNoRows {
		defaults := domain.DefaultCopierSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSettingsRepository) SaveSettings(s *domain.CopierSettings) error {
	query := `
		INSERT INTO copier_settings (
			id, near_miss_pips, vip_trail_distance, tp1_threshold_percent,
			max_concurrent_per_symbol, min_lot, tighten_offset, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			near_miss_pips = EXCLUDED.near_miss_pips,
			vip_trail_distance = EXCLUDED.vip_trail_distance,
			tp1_threshold_percent = EXCLUDED.tp1_threshold_percent,
			max_concurrent_per_symbol = EXCLUDED.max_concurrent_per_symbol,
			min_lot = EXCLUDED.min_lot,
			tighten_offset = EXCLUDED.tighten_offset,
			updated_at = NOW()
	`
	_, err := r.db.Exec(context.Background(), query,
		s.NearMissPips,
		s.VIPTrailDistance,
		s.TP1ThresholdPercent,
		s.MaxConcurrentPerSymbol,
		s.MinLot,
		s.TightenOffset,
	)
	return err
}

// MemorySettingsRepository backs the settings API when no database is
// configured.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings domain.CopierSettings
}

func NewMemorySettingsRepository(initial domain.CopierSettings) *MemorySettingsRepository {
	return &MemorySettingsRepository{settings: initial}
}

func (r *MemorySettingsRepository) LoadSettings() (*domain.CopierSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.settings
	return &s, nil
}

func (r *MemorySettingsRepository) SaveSettings(s *domain.CopierSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = *s
	return nil
}

// compile-time check
var _ domain.SettingsRepository = (*PostgresSettingsRepository)(nil)
var _ domain.SettingsRepository = (*MemorySettingsRepository)(nil)
