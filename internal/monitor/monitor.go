// Package monitor runs the sense, infer, report and log loop and owns the
// controller state machine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/volcanomonitor/internal/classifier"
	"github.com/chrissnell/volcanomonitor/internal/command"
	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/features"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/logstore"
	"github.com/chrissnell/volcanomonitor/internal/metrics"
	"github.com/chrissnell/volcanomonitor/internal/report"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

var (
	// ErrHalted is returned by Run once the monitor has reached its terminal state.
	ErrHalted = errors.New("monitor halted")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("monitor already running")
)

// StartupFault is an unrecoverable failure during boot. The loop never runs.
type StartupFault struct {
	Stage string
	Err   error
}

func (f *StartupFault) Error() string {
	return fmt.Sprintf("startup fault during %s: %v", f.Stage, f.Err)
}

func (f *StartupFault) Unwrap() error {
	return f.Err
}

// CommandSource is polled once per iteration and must not block.
type CommandSource interface {
	TryReadCommand() (command.Command, bool)
}

// SensorSource produces one reading per call.
type SensorSource interface {
	Sample() types.Reading
}

// Publisher receives a copy of every logged sample.
type Publisher interface {
	Publish(types.Sample)
}

// Timing holds the loop's fixed delays.
type Timing struct {
	BootDelay      time.Duration
	SampleInterval time.Duration
	DumpCooldown   time.Duration
}

// DefaultTiming returns the device delays.
func DefaultTiming() Timing {
	return Timing{
		BootDelay:      constants.BootDelay,
		SampleInterval: constants.SampleInterval,
		DumpCooldown:   constants.DumpCooldown,
	}
}

// ModelLoader returns the classifier's model blob. It runs during boot so a
// missing model is reported on the console like any other init failure.
type ModelLoader func() ([]byte, error)

// Config collects the collaborators of a Monitor. Publisher may be nil, as
// may LoadModel, in which case the classifier is initialized with no blob.
type Config struct {
	Store      *logstore.Store
	Sensor     SensorSource
	Normalizer *features.Normalizer
	Classifier classifier.Classifier
	LoadModel  ModelLoader
	Commands   CommandSource
	Reporter   *report.Reporter
	Publisher  Publisher
	SessionID  string
	Timing     Timing
}

// Monitor is the loop controller.
type Monitor struct {
	cfg Config

	mu      sync.RWMutex
	mode    types.Mode
	alert   types.AlertMode
	latest  *types.Sample
	running bool
}

// New returns a Monitor in the Running mode. Nothing happens until Run.
func New(cfg Config) *Monitor {
	m := &Monitor{cfg: cfg}
	m.setMode(types.ModeRunning)
	return m
}

// Mode returns the current controller state.
func (m *Monitor) Mode() types.Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// AlertMode returns the escalation level last set by a host manager.
func (m *Monitor) AlertMode() types.AlertMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alert
}

// Latest returns the most recently logged sample.
func (m *Monitor) Latest() (types.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return types.Sample{}, false
	}
	return *m.latest, true
}

// SessionID identifies this boot.
func (m *Monitor) SessionID() string {
	return m.cfg.SessionID
}

func (m *Monitor) setMode(mode types.Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	metrics.SetMode(mode.String(), types.ModeRunning.String(), types.ModeDumping.String(), types.ModeHalted.String())
}

// Run boots the device and cycles until a stop command, a startup fault or
// ctx cancellation. Whatever the cause, the monitor is Halted when Run
// returns and every later call returns ErrHalted. A stop command yields a nil
// error; a boot failure yields a *StartupFault.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.mode == types.ModeHalted:
		m.mu.Unlock()
		return ErrHalted
	case m.running:
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer m.setMode(types.ModeHalted)

	if err := m.boot(ctx); err != nil {
		return err
	}

	for {
		halt, err := m.iterate(ctx)
		if err != nil {
			log.Infof("monitor loop stopped: %v", err)
			return err
		}
		if halt {
			return nil
		}
	}
}

func (m *Monitor) boot(ctx context.Context) error {
	r := m.cfg.Reporter

	r.ClearScreen()
	r.Starting()
	if err := sleep(ctx, m.cfg.Timing.BootDelay); err != nil {
		return err
	}

	if err := m.cfg.Store.Mount(); err != nil {
		r.ReportFault("Storage Mount Failed!")
		log.Errorf("storage mount failed: %v", err)
		return &StartupFault{Stage: "storage mount", Err: err}
	}
	r.Line("Filesystem Mounted.")

	created, err := m.cfg.Store.EnsureLogFile()
	switch {
	case err != nil:
		// Appends will fault each cycle; the loop still runs.
		r.Line("Could not create log file!")
		log.Errorf("could not create log file: %v", err)
	case created:
		r.Line("Creating new log file...")
		log.Infof("created log file %s", m.cfg.Store.Path())
	default:
		m.cfg.Store.Stat()
	}

	if err := m.initClassifier(); err != nil {
		r.ReportFault("ERROR: Failed to initialize risk classifier!")
		log.Errorf("classifier init failed: %v", err)
		return &StartupFault{Stage: "classifier init", Err: err}
	}

	log.Infow("monitor started", "session", m.cfg.SessionID, "log", m.cfg.Store.Path())
	r.Banner()
	return nil
}

func (m *Monitor) initClassifier() error {
	var blob []byte
	if m.cfg.LoadModel != nil {
		var err error
		if blob, err = m.cfg.LoadModel(); err != nil {
			return err
		}
	}
	return m.cfg.Classifier.Init(blob)
}

// iterate runs one pass of the loop. It reports true when a stop command was
// received.
func (m *Monitor) iterate(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if c, ok := m.cfg.Commands.TryReadCommand(); ok {
		switch c {
		case command.Halt:
			m.cfg.Reporter.ReportHalted()
			log.Info("stop command received, halting")
			return true, nil
		case command.DumpLogs:
			return false, m.dump(ctx)
		case command.AlertSafe:
			m.setAlert(types.AlertSafe)
		case command.AlertDisaster:
			m.setAlert(types.AlertDisaster)
		}
	}

	m.cycle()
	return false, sleep(ctx, m.cfg.Timing.SampleInterval)
}

func (m *Monitor) setAlert(a types.AlertMode) {
	m.mu.Lock()
	m.alert = a
	m.mu.Unlock()
	log.Infof("alert mode set to %s", a)
}

func (m *Monitor) dump(ctx context.Context) error {
	r := m.cfg.Reporter
	m.setMode(types.ModeDumping)

	r.ReportDumpBoundary(report.DumpBegin)
	rc, err := m.cfg.Store.ReadAll()
	if err != nil {
		r.ReportDumpFailed()
		log.Errorf("dump failed: %v", err)
		metrics.DumpsTotal.WithLabelValues("failed").Inc()
	} else {
		n, err := r.Dump(rc)
		rc.Close()
		if err != nil {
			log.Warnf("dump interrupted after %d bytes: %v", n, err)
			metrics.DumpsTotal.WithLabelValues("partial").Inc()
		} else {
			metrics.DumpsTotal.WithLabelValues("ok").Inc()
		}
	}
	r.ReportDumpBoundary(report.DumpEnd)
	r.Line(fmt.Sprintf("Resuming simulation in %d seconds...", int(m.cfg.Timing.DumpCooldown.Round(time.Second)/time.Second)))

	err = sleep(ctx, m.cfg.Timing.DumpCooldown)
	if err == nil {
		m.setMode(types.ModeRunning)
	}
	return err
}

func (m *Monitor) cycle() {
	reading := m.cfg.Sensor.Sample()
	vec := m.cfg.Normalizer.Normalize(reading)

	score, err := m.cfg.Classifier.Predict(vec)
	if err != nil {
		m.cfg.Reporter.Line("ERROR: inference failed, cycle skipped")
		log.Errorf("inference failed: %v", err)
		metrics.SkippedCyclesTotal.Inc()
		return
	}

	rec := types.NewRecord(reading, score)
	m.cfg.Reporter.ReportCycle(reading, score, rec.Status, m.AlertMode())
	metrics.ObserveCycle(reading, score, rec.Status.String())

	if err := m.cfg.Store.Append(rec); err != nil {
		m.cfg.Reporter.ReportLogFailed()
		log.Errorf("could not append record: %v", err)
		metrics.LogWriteFaults.Inc()
		return
	}
	m.cfg.Reporter.ReportLogged()

	sample := types.NewSample(time.Now(), m.cfg.SessionID, rec)
	m.mu.Lock()
	m.latest = &sample
	m.mu.Unlock()

	if m.cfg.Publisher != nil {
		m.cfg.Publisher.Publish(sample)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
