package restserver

import (
	"net/http"
	"strconv"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// StatusResponse describes the controller state.
type StatusResponse struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	AlertMode string `json:"alert_mode"`
	Version   string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetStatus reports the controller mode and alert mode.
func (c *Controller) GetStatus(w http.ResponseWriter, req *http.Request) {
	resp := StatusResponse{
		SessionID: c.status.SessionID(),
		Mode:      c.status.Mode().String(),
		AlertMode: c.status.AlertMode().String(),
		Version:   constants.Version,
	}
	c.write(w, req, http.StatusOK, resp)
}

// GetLatest returns the most recently logged sample.
func (c *Controller) GetLatest(w http.ResponseWriter, req *http.Request) {
	sample, ok := c.status.Latest()
	if !ok {
		c.write(w, req, http.StatusNotFound, errorResponse{Error: "no readings yet"})
		return
	}
	c.write(w, req, http.StatusOK, sample)
}

// GetLogs streams the raw CSV log.
func (c *Controller) GetLogs(w http.ResponseWriter, req *http.Request) {
	if c.logs == nil {
		http.Error(w, "log store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := c.logs.CopyTo(w); err != nil {
		// Headers may already be out; all we can do is log it.
		log.Errorf("error streaming log file: %v", err)
		http.Error(w, "error reading log file", http.StatusInternalServerError)
	}
}

const (
	defaultSampleLimit = 50
	maxSampleLimit     = 1000
)

// GetSamples returns the most recent mirrored samples, newest first.
func (c *Controller) GetSamples(w http.ResponseWriter, req *http.Request) {
	if c.history == nil {
		c.write(w, req, http.StatusServiceUnavailable, errorResponse{Error: "no sample history configured"})
		return
	}

	limit := defaultSampleLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.write(w, req, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSampleLimit)
	}

	samples, err := c.history.Recent(req.Context(), limit)
	if err != nil {
		log.Errorf("error querying sample history: %v", err)
		c.write(w, req, http.StatusInternalServerError, errorResponse{Error: "error querying sample history"})
		return
	}
	if samples == nil {
		samples = []types.Sample{}
	}
	c.write(w, req, http.StatusOK, samples)
}

// GetHealth returns the health of every mirror storage backend.
func (c *Controller) GetHealth(w http.ResponseWriter, req *http.Request) {
	all := map[string]storage.Health{}
	if c.health != nil {
		all = c.health.GetAllHealth()
	}

	status := http.StatusOK
	for _, h := range all {
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
			break
		}
	}
	c.write(w, req, status, all)
}

func (c *Controller) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := c.formatter.WriteResponse(w, req, status, data); err != nil {
		log.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}
