package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/types"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

type fakeStatus struct {
	latest *types.Sample
}

func (f *fakeStatus) Mode() types.Mode           { return types.ModeRunning }
func (f *fakeStatus) AlertMode() types.AlertMode { return types.AlertDisaster }
func (f *fakeStatus) SessionID() string          { return "session-1" }
func (f *fakeStatus) Latest() (types.Sample, bool) {
	if f.latest == nil {
		return types.Sample{}, false
	}
	return *f.latest, true
}

type fakeLogs struct {
	body string
	err  error
}

func (f fakeLogs) CopyTo(w io.Writer) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.WriteString(w, f.body)
	return int64(n), err
}

func newTestController(status StatusSource, logs LogCopier, health *storage.HealthManager) *Controller {
	return NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{ListenAddr: "127.0.0.1:0"}, status, logs, health)
}

func serve(c *Controller, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetStatus(t *testing.T) {
	c := newTestController(&fakeStatus{}, nil, nil)
	rec := serve(c, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, types.ModeRunning.String(), got.Mode)
	assert.Equal(t, types.AlertDisaster.String(), got.AlertMode)
}

func TestGetLatest(t *testing.T) {
	tests := []struct {
		name     string
		latest   *types.Sample
		wantCode int
	}{
		{name: "no readings", wantCode: http.StatusNotFound},
		{
			name: "reading present",
			latest: &types.Sample{
				Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				WaterTemp: 80, RiskScore: 0.75, Status: "ERUPTION",
			},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&fakeStatus{latest: tt.latest}, nil, nil)
			rec := serve(c, "/api/latest")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.latest == nil {
				return
			}
			var got types.Sample
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, *tt.latest, got)
		})
	}
}

func TestGetLogs(t *testing.T) {
	body := "WaterTemp,FlowRate,SO2,H2S,RiskScore,Status\n50.00,1.00,0.100,0.200,0.1000,Safe\n"

	c := newTestController(&fakeStatus{}, fakeLogs{body: body}, nil)
	rec := serve(c, "/api/logs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, body, rec.Body.String())

	c = newTestController(&fakeStatus{}, fakeLogs{err: errors.New("gone")}, nil)
	rec = serve(c, "/api/logs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	c = newTestController(&fakeStatus{}, nil, nil)
	rec = serve(c, "/api/logs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetHealth(t *testing.T) {
	hm := storage.NewHealthManager()
	hm.RecordSuccess("sqlite")

	c := newTestController(&fakeStatus{}, nil, hm)
	rec := serve(c, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sqlite"`)

	hm.RecordFailure("timescaledb", errors.New("connection refused"))
	rec = serve(c, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestController(&fakeStatus{}, nil, nil)
	rec := serve(c, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

type fakeHistory struct {
	samples   []types.Sample
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]types.Sample, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.samples) {
		return f.samples[:limit], nil
	}
	return f.samples, nil
}

func TestGetSamples(t *testing.T) {
	three := []types.Sample{{RiskScore: 0.9}, {RiskScore: 0.5}, {RiskScore: 0.1}}

	tests := []struct {
		name      string
		history   *fakeHistory
		path      string
		wantCode  int
		wantLimit int
		wantLen   int
	}{
		{name: "no history", path: "/api/samples", wantCode: http.StatusServiceUnavailable},
		{name: "default limit", history: &fakeHistory{samples: three}, path: "/api/samples", wantCode: http.StatusOK, wantLimit: defaultSampleLimit, wantLen: 3},
		{name: "explicit limit", history: &fakeHistory{samples: three}, path: "/api/samples?limit=2", wantCode: http.StatusOK, wantLimit: 2, wantLen: 2},
		{name: "limit capped", history: &fakeHistory{}, path: "/api/samples?limit=999999", wantCode: http.StatusOK, wantLimit: maxSampleLimit},
		{name: "bad limit", history: &fakeHistory{}, path: "/api/samples?limit=abc", wantCode: http.StatusBadRequest},
		{name: "zero limit", history: &fakeHistory{}, path: "/api/samples?limit=0", wantCode: http.StatusBadRequest},
		{name: "query error", history: &fakeHistory{err: errors.New("db closed")}, path: "/api/samples", wantCode: http.StatusInternalServerError, wantLimit: defaultSampleLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&fakeStatus{}, nil, nil)
			if tt.history != nil {
				c.SetHistory(tt.history)
			}

			rec := serve(c, tt.path)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.history != nil {
				assert.Equal(t, tt.wantLimit, tt.history.lastLimit)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var got []types.Sample
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got, tt.wantLen)
		})
	}
}
