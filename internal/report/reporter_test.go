package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/volcanomonitor/internal/types"
)

func TestReportCycle(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	r.ReportCycle(types.Reading{65.44, 4.56, 1.234, 12.346}, 0.51239, types.StatusEruption, types.AlertSafe)

	want := separator + "\n" +
		"Sensors:    [Temp: 65.4, Flow: 4.6, SO2: 1.23, H2S: 12.35]\n" +
		"Risk Score: 0.5124 [ERUPTION]\n"
	assert.Equal(t, want, buf.String())
}

func TestReportCycleTelemetry(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	r.ReportCycle(types.Reading{50, 1, 2, 3}, 0.25, types.StatusSafe, types.AlertDisaster)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var tm Telemetry
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &tm))
	assert.Equal(t, Telemetry{Temp: 50, Flow: 1, SO2: 2, H2S: 3, Risk: 0.25, Status: "Safe", Mode: "DISASTER"}, tm)
}

func TestDumpBoundaries(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	r.ReportDumpBoundary(DumpBegin)
	_, err := r.Dump(strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	r.ReportDumpBoundary(DumpEnd)

	assert.Equal(t, "\n\n=== BEGIN CSV DUMP ===\na,b\n1,2\n\n=== END CSV DUMP ===\n\n", buf.String())
}

func TestBannerListsCommands(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Banner()

	out := buf.String()
	assert.Contains(t, out, "=== VIRTUAL VOLCANO MONITOR & LOGGER STARTED ===")
	assert.Contains(t, out, "'dump'")
	assert.Contains(t, out, "'stop'")
}

func TestConfirmations(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	r.ReportLogged()
	r.ReportLogFailed()
	r.ReportDumpFailed()

	assert.Equal(t, " -> Logged to CSV\n -> ERROR: could not write to log file!\nError reading log file!\n", buf.String())
}
