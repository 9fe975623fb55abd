// Package report renders the operator-facing console output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/chrissnell/volcanomonitor/internal/types"
)

const separator = "------------------------------------------------"

// Boundary marks the start or end of a log dump.
type Boundary int

const (
	DumpBegin Boundary = iota
	DumpEnd
)

// Telemetry is the machine-readable line emitted after each cycle when
// telemetry is enabled. Host managers parse these.
type Telemetry struct {
	Temp   float64 `json:"temp"`
	Flow   float64 `json:"flow"`
	SO2    float64 `json:"so2"`
	H2S    float64 `json:"h2s"`
	Risk   float64 `json:"risk"`
	Status string  `json:"status"`
	Mode   string  `json:"mode"`
}

// Reporter writes human-readable blocks to the console stream. Write errors
// are ignored: the console is treated as always writable.
type Reporter struct {
	mu        sync.Mutex
	w         io.Writer
	telemetry bool
}

// New returns a Reporter writing to w. When telemetry is true each cycle is
// followed by one JSON line.
func New(w io.Writer, telemetry bool) *Reporter {
	return &Reporter{w: w, telemetry: telemetry}
}

// Writer exposes the underlying stream for raw dumps.
func (r *Reporter) Writer() io.Writer {
	return r.w
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// ClearScreen sends the ANSI clear and home sequences.
func (r *Reporter) ClearScreen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("\x1b[2J\x1b[H")
}

// Starting prints the boot line shown before the storage is mounted.
func (r *Reporter) Starting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("\n\n\n\n--- SYSTEM STARTING ---\n")
}

// Line prints one diagnostic line.
func (r *Reporter) Line(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s\n", msg)
}

// Banner prints the ready banner and the command help.
func (r *Reporter) Banner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("\n=== VIRTUAL VOLCANO MONITOR & LOGGER STARTED ===\n")
	r.printf("Commands:\n")
	r.printf("  'dump' -> Print all saved CSV logs to Serial\n")
	r.printf("  'stop' -> Halt the system\n")
}

// ReportCycle prints the readings, score and status of one cycle.
func (r *Reporter) ReportCycle(reading types.Reading, score float64, status types.Status, mode types.AlertMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s\n", separator)
	r.printf("Sensors:    [Temp: %.1f, Flow: %.1f, SO2: %.2f, H2S: %.2f]\n",
		reading[types.WaterTemp], reading[types.FlowRate], reading[types.SO2], reading[types.H2S])
	r.printf("Risk Score: %.4f [%s]\n", score, status)

	if r.telemetry {
		line, err := json.Marshal(Telemetry{
			Temp:   reading[types.WaterTemp],
			Flow:   reading[types.FlowRate],
			SO2:    reading[types.SO2],
			H2S:    reading[types.H2S],
			Risk:   score,
			Status: status.String(),
			Mode:   mode.String(),
		})
		if err == nil {
			r.printf("%s\n", line)
		}
	}
}

// ReportLogged confirms a record reached the log file.
func (r *Reporter) ReportLogged() {
	r.Line(" -> Logged to CSV")
}

// ReportLogFailed replaces the logged confirmation when the append failed.
func (r *Reporter) ReportLogFailed() {
	r.Line(" -> ERROR: could not write to log file!")
}

// ReportDumpBoundary prints the dump begin or end marker.
func (r *Reporter) ReportDumpBoundary(b Boundary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == DumpBegin {
		r.printf("\n\n=== BEGIN CSV DUMP ===\n")
		return
	}
	r.printf("\n=== END CSV DUMP ===\n\n")
}

// ReportDumpFailed is printed in place of the file content on a read fault.
func (r *Reporter) ReportDumpFailed() {
	r.Line("Error reading log file!")
}

// Dump streams src verbatim to the console.
func (r *Reporter) Dump(src io.Reader) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return io.Copy(r.w, src)
}

// ReportHalted prints the final message before the loop stops.
func (r *Reporter) ReportHalted() {
	r.Line("\n!!! STOP COMMAND RECEIVED. SYSTEM HALTED. !!!")
}

// ReportFault prints a fatal startup diagnostic.
func (r *Reporter) ReportFault(msg string) {
	r.Line(msg)
	r.Line("!!! SYSTEM HALTED: restart the device to recover. !!!")
}
