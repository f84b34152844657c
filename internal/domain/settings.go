package domain

// CopierSettings are the runtime-tunable rule knobs. They can be updated
// over the HTTP API while the service runs; persistence is optional.
type CopierSettings struct {
	// NearMissPips: a resting limit is replaced by a market order when the
	// live price is within this distance of the relevant range boundary.
	NearMissPips float64 `json:"nearMissPips"`
	// VIPTrailDistance closes a VIP trade once profit retraces this much
	// from its observed peak.
	VIPTrailDistance float64 `json:"vipTrailDistance"`
	// TP1ThresholdPercent blocks pyramiding until the first open position
	// has captured this fraction of its TP1 target.
	TP1ThresholdPercent float64 `json:"tp1ThresholdPercent"`
	// MaxConcurrentPerSymbol caps simultaneous open trades per symbol.
	MaxConcurrentPerSymbol int `json:"maxConcurrentPerSymbol"`
	// MinLot is the floor for position sizing.
	MinLot float64 `json:"minLot"`
	// TightenOffset is the distance from the current mid used by the
	// "tighten" command when moving a stop.
	TightenOffset float64 `json:"tightenOffset"`
}

// DefaultCopierSettings mirrors the shipped configuration defaults.
func DefaultCopierSettings() CopierSettings {
	return CopierSettings{
		NearMissPips:           2,
		VIPTrailDistance:       3,
		TP1ThresholdPercent:    75,
		MaxConcurrentPerSymbol: 3,
		MinLot:                 0.01,
		TightenOffset:          0.5,
	}
}

// SettingsRepository persists copier settings across restarts.
type SettingsRepository interface {
	LoadSettings() (*CopierSettings, error)
	SaveSettings(s *CopierSettings) error
}
