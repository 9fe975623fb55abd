// Package escalation implements the host-side manager that watches device
// telemetry and switches the device between SAFE and DISASTER alert modes.
package escalation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/report"
)

const (
	DefaultEscalateRule = "risk > 0.7"
	DefaultClearRule    = "risk < 0.3"
	DefaultClearCount   = 10

	// Lines sent to the device.
	CommandDisaster = "MODE_DISASTER"
	CommandSafe     = "MODE_SAFE"
)

// State is the manager's escalation level.
type State int

const (
	Passive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "PASSIVE"
}

// Env is the variable set rules are evaluated against.
type Env struct {
	Temp   float64 `expr:"temp"`
	Flow   float64 `expr:"flow"`
	SO2    float64 `expr:"so2"`
	H2S    float64 `expr:"h2s"`
	Risk   float64 `expr:"risk"`
	Status string  `expr:"status"`
	Mode   string  `expr:"mode"`
}

func envFor(t report.Telemetry) Env {
	return Env{
		Temp:   t.Temp,
		Flow:   t.Flow,
		SO2:    t.SO2,
		H2S:    t.H2S,
		Risk:   t.Risk,
		Status: t.Status,
		Mode:   t.Mode,
	}
}

// Rules configures a Manager.
type Rules struct {
	Escalate   string
	Clear      string
	ClearCount int
}

// DefaultRules returns the stock hysteresis.
func DefaultRules() Rules {
	return Rules{
		Escalate:   DefaultEscalateRule,
		Clear:      DefaultClearRule,
		ClearCount: DefaultClearCount,
	}
}

// Manager tracks escalation state. It is not safe for concurrent use.
type Manager struct {
	escalate   *vm.Program
	clear      *vm.Program
	clearCount int

	state     State
	safeCount int
}

// New compiles rules. Both must evaluate to a bool.
func New(rules Rules) (*Manager, error) {
	if rules.ClearCount < 1 {
		return nil, fmt.Errorf("clear count must be at least 1, got %d", rules.ClearCount)
	}

	esc, err := expr.Compile(rules.Escalate, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile escalate rule %q: %w", rules.Escalate, err)
	}
	clr, err := expr.Compile(rules.Clear, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile clear rule %q: %w", rules.Clear, err)
	}

	return &Manager{escalate: esc, clear: clr, clearCount: rules.ClearCount}, nil
}

// State returns the current escalation level.
func (m *Manager) State() State {
	return m.state
}

// Observe feeds one telemetry sample through the rules. It returns the line
// to send to the device when the state changes.
func (m *Manager) Observe(t report.Telemetry) (string, bool, error) {
	env := envFor(t)

	switch m.state {
	case Passive:
		hit, err := m.match(m.escalate, env)
		if err != nil || !hit {
			return "", false, err
		}
		m.state = Active
		m.safeCount = 0
		return CommandDisaster, true, nil

	default:
		hit, err := m.match(m.clear, env)
		if err != nil {
			return "", false, err
		}
		if !hit {
			m.safeCount = 0
			return "", false, nil
		}
		m.safeCount++
		log.Debugf("clear signal %d/%d", m.safeCount, m.clearCount)
		if m.safeCount < m.clearCount {
			return "", false, nil
		}
		m.state = Passive
		m.safeCount = 0
		return CommandSafe, true, nil
	}
}

func (m *Manager) match(p *vm.Program, env Env) (bool, error) {
	out, err := expr.Run(p, env)
	if err != nil {
		return false, err
	}
	matched, _ := out.(bool)
	return matched, nil
}

// ParseTelemetry decodes a telemetry line. Anything that is not a JSON
// object is reported as not ok.
func ParseTelemetry(line string) (report.Telemetry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
		return report.Telemetry{}, false
	}
	var t report.Telemetry
	if err := json.Unmarshal([]byte(line), &t); err != nil {
		return report.Telemetry{}, false
	}
	return t, true
}

// Run reads telemetry from rw and writes mode commands back until ctx is
// done or the stream ends. Non-telemetry lines are ignored.
func (m *Manager) Run(ctx context.Context, rw io.ReadWriter) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(rw)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			t, ok := ParseTelemetry(line)
			if !ok {
				continue
			}
			log.Infow("telemetry", "temp", t.Temp, "risk", t.Risk, "mode", t.Mode)

			cmd, changed, err := m.Observe(t)
			if err != nil {
				log.Errorf("rule evaluation failed: %v", err)
				continue
			}
			if !changed {
				continue
			}

			log.Warnw("escalation state changed", "state", m.state.String(), "command", cmd)
			if _, err := io.WriteString(rw, cmd+"\n"); err != nil {
				return fmt.Errorf("could not send %s to device: %w", cmd, err)
			}
		}
	}
}
