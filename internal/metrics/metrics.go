// Package metrics exposes Prometheus instrumentation of the auth server.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks auth server activity.
//
// All metrics use the "realmd_" prefix. Methods handle a nil receiver, so a
// nil *Metrics is a no-op when metrics are disabled.
type Metrics struct {
	// LogonResults counts challenge/proof replies by command and status code.
	// Labels: command=[LOGON_CHALLENGE, LOGON_PROOF, ...], status
	LogonResults *prometheus.CounterVec

	// ActiveSessions tracks open client connections.
	ActiveSessions prometheus.Gauge

	// FramingDrops counts buffers discarded because of an unknown command.
	FramingDrops prometheus.Counter

	// AutoBans counts bans issued by the failed-login policy.
	// Labels: scope=[account, ip]
	AutoBans *prometheus.CounterVec

	// PatchBytes counts patch payload bytes streamed to clients.
	PatchBytes prometheus.Counter

	// HandlerDuration tracks handler processing time by command.
	HandlerDuration *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultInstance *Metrics
)

// Default returns the process-wide Metrics registered on
// prometheus.DefaultRegisterer. Safe to call more than once.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultInstance = New(nil)
	})
	return defaultInstance
}

// New creates Metrics and registers them on registerer.
// If registerer is nil, prometheus.DefaultRegisterer is used.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		LogonResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realmd_logon_results_total",
				Help: "Logon replies by command and status code",
			},
			[]string{"command", "status"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realmd_active_sessions",
				Help: "Current number of client connections",
			},
		),
		FramingDrops: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realmd_framing_drops_total",
				Help: "Input buffers discarded on unknown commands",
			},
		),
		AutoBans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realmd_auto_bans_total",
				Help: "Bans issued after too many wrong passwords",
			},
			[]string{"scope"},
		),
		PatchBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realmd_patch_bytes_total",
				Help: "Patch bytes sent to clients",
			},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "realmd_handler_duration_seconds",
				Help:    "Command handler duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}

	registerer.MustRegister(
		m.LogonResults,
		m.ActiveSessions,
		m.FramingDrops,
		m.AutoBans,
		m.PatchBytes,
		m.HandlerDuration,
	)

	return m
}

// RecordLogonResult records the status code sent in reply to command.
func (m *Metrics) RecordLogonResult(command string, status uint8) {
	if m == nil {
		return
	}
	m.LogonResults.WithLabelValues(command, strconv.Itoa(int(status))).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordFramingDrop records a discarded input buffer.
func (m *Metrics) RecordFramingDrop() {
	if m == nil {
		return
	}
	m.FramingDrops.Inc()
}

// RecordAutoBan records a failed-login ban. account selects the scope label.
func (m *Metrics) RecordAutoBan(account bool) {
	if m == nil {
		return
	}
	scope := "ip"
	if account {
		scope = "account"
	}
	m.AutoBans.WithLabelValues(scope).Inc()
}

// RecordPatchBytes adds n streamed patch bytes.
func (m *Metrics) RecordPatchBytes(n int) {
	if m == nil {
		return
	}
	m.PatchBytes.Add(float64(n))
}

// RecordHandler records how long a command handler took.
func (m *Metrics) RecordHandler(command string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(command).Observe(d.Seconds())
}
