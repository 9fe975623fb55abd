// Package types holds the values passed between the sensing, inference and
// logging stages of the monitor.
package types

import (
	"strings"
	"time"

	"github.com/chrissnell/volcanomonitor/internal/constants"
)

// Channel indexes into a Reading.
const (
	WaterTemp = iota
	FlowRate
	SO2
	H2S
)

// Reading is one cycle's raw sensor vector: water temperature (°C), flow
// rate, SO2 concentration and H2S concentration, in that order.
type Reading [constants.NumInputs]float64

// Status is the alert label derived from a risk score.
type Status int

const (
	StatusSafe Status = iota
	StatusEruption
)

// String returns the label used in the CSV log and on the console.
func (s Status) String() string {
	if s == StatusEruption {
		return "ERUPTION"
	}
	return "Safe"
}

// ParseStatus reverses String. Unknown labels report false.
func ParseStatus(label string) (Status, bool) {
	switch label {
	case "Safe":
		return StatusSafe, true
	case "ERUPTION":
		return StatusEruption, true
	}
	return StatusSafe, false
}

// StatusFor classifies a risk score. There is no hysteresis.
func StatusFor(score float64) Status {
	if score > constants.DecisionThreshold {
		return StatusEruption
	}
	return StatusSafe
}

// Record is one persisted log entry.
type Record struct {
	Reading Reading
	Score   float64
	Status  Status
}

// NewRecord builds a Record and derives its Status from score.
func NewRecord(r Reading, score float64) Record {
	return Record{Reading: r, Score: score, Status: StatusFor(score)}
}

// Mode is the loop controller state.
type Mode int

const (
	ModeRunning Mode = iota
	ModeDumping
	ModeHalted
)

func (m Mode) String() string {
	switch m {
	case ModeRunning:
		return "running"
	case ModeDumping:
		return "dumping"
	case ModeHalted:
		return "halted"
	}
	return "unknown"
}

// AlertMode is the escalation level pushed to the device by a host manager.
type AlertMode int

const (
	AlertSafe AlertMode = iota
	AlertDisaster
)

func (a AlertMode) String() string {
	if a == AlertDisaster {
		return "DISASTER"
	}
	return "SAFE"
}

// ParseAlertMode accepts SAFE or DISASTER in any case.
func ParseAlertMode(s string) (AlertMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAFE":
		return AlertSafe, true
	case "DISASTER":
		return AlertDisaster, true
	}
	return AlertSafe, false
}

// Sample is a Record stamped with when and by which boot session it was
// produced. Mirror storage engines and the status server consume these.
type Sample struct {
	Timestamp time.Time `json:"timestamp" gorm:"column:time"`
	SessionID string    `json:"session_id" gorm:"column:session_id"`
	WaterTemp float64   `json:"water_temp" gorm:"column:water_temp"`
	FlowRate  float64   `json:"flow_rate" gorm:"column:flow_rate"`
	SO2       float64   `json:"so2" gorm:"column:so2"`
	H2S       float64   `json:"h2s" gorm:"column:h2s"`
	RiskScore float64   `json:"risk_score" gorm:"column:risk_score"`
	Status    string    `json:"status" gorm:"column:alert_status"`
}

// NewSample flattens a Record.
func NewSample(ts time.Time, sessionID string, rec Record) Sample {
	return Sample{
		Timestamp: ts,
		SessionID: sessionID,
		WaterTemp: rec.Reading[WaterTemp],
		FlowRate:  rec.Reading[FlowRate],
		SO2:       rec.Reading[SO2],
		H2S:       rec.Reading[H2S],
		RiskScore: rec.Score,
		Status:    rec.Status.String(),
	}
}
