// Package metrics registers the Prometheus series the copier updates while
// it runs, served at /metrics in text exposition format.
//
//   - copier_signals_total{kind}      – Parsed inbound messages (entry|command|vip|ignored)
//   - copier_orders_total{type,side}  – Orders sent to the broker (market|limit)
//   - copier_blocked_total{reason}    – Entries rejected by a rule
//   - copier_commands_total{action}   – Management commands applied
//   - copier_vip_closes_total         – VIP trades closed by the trail monitor
//   - copier_open_trades              – Currently tracked open trades (gauge)
//   - copier_broker_errors_total      – Broker calls that failed after retries
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_signals_total",
			Help: "Inbound messages by parse outcome",
		},
		[]string{"kind"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_orders_total",
			Help: "Broker orders placed",
		},
		[]string{"type", "side"},
	)

	Blocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_blocked_total",
			Help: "Entry signals rejected by a rule",
		},
		[]string{"reason"}, // reason: concurrency|tp1_progress
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_commands_total",
			Help: "Management commands applied to trades",
		},
		[]string{"action"},
	)

	VIPCloses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copier_vip_closes_total",
			Help: "VIP trades closed by the trailing monitor",
		},
	)

	OpenTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copier_open_trades",
			Help: "Currently tracked open trades",
		},
	)

	BrokerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copier_broker_errors_total",
			Help: "Broker calls that failed after retries",
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, Orders, Blocked, Commands)
	prometheus.MustRegister(VIPCloses, OpenTrades, BrokerErrors)
}
