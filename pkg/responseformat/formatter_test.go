package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	RiskScore float64 `json:"risk_score"`
	Status    string  `json:"status"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/latest", nil)

	require.NoError(t, NewFormatter().WriteResponse(rec, req, http.StatusOK, payload{0.5, "Safe"}))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payload{0.5, "Safe"}, got)
}

func TestWriteResponseMsgpack(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/latest?format=msgpack", nil)

	require.NoError(t, NewFormatter().WriteResponse(rec, req, http.StatusAccepted, payload{0.9, "ERUPTION"}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0.9, got["risk_score"])
	assert.Equal(t, "ERUPTION", got["status"])
}
