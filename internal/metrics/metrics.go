// Package metrics exports monitor counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed sense/predict cycles by status.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volcano_cycles_total",
			Help: "Total number of completed monitoring cycles",
		},
		[]string{"status"},
	)

	// SkippedCyclesTotal counts cycles dropped because inference failed.
	SkippedCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volcano_skipped_cycles_total",
			Help: "Total number of cycles skipped after an inference error",
		},
	)

	// RiskScore is the most recent classifier output.
	RiskScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volcano_risk_score",
			Help: "Most recent risk score",
		},
	)

	// SensorValue is the most recent raw reading per channel.
	SensorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volcano_sensor_value",
			Help: "Most recent raw sensor reading",
		},
		[]string{"channel"},
	)

	// LogWriteFaults counts records that could not be appended.
	LogWriteFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volcano_log_write_faults_total",
			Help: "Total number of failed log appends",
		},
	)

	// DumpsTotal counts dump commands by outcome.
	DumpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volcano_dumps_total",
			Help: "Total number of log dumps",
		},
		[]string{"result"},
	)

	// Mode is 1 for the current loop mode and 0 for the others.
	Mode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volcano_mode",
			Help: "Current loop controller mode",
		},
		[]string{"mode"},
	)
)

var channelNames = []string{"water_temp", "flow_rate", "so2", "h2s"}

// ObserveCycle records one completed cycle.
func ObserveCycle(reading [4]float64, score float64, status string) {
	CyclesTotal.WithLabelValues(status).Inc()
	RiskScore.Set(score)
	for i, name := range channelNames {
		SensorValue.WithLabelValues(name).Set(reading[i])
	}
}

// SetMode marks current as the active mode.
func SetMode(current string, all ...string) {
	for _, m := range all {
		v := 0.0
		if m == current {
			v = 1
		}
		Mode.WithLabelValues(m).Set(v)
	}
}
