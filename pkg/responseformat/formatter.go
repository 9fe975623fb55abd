// Package responseformat writes API responses as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WriteResponse writes data with the given status. JSON is the default;
// MessagePack is used when the request carries format=msgpack.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if req.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/x-msgpack")
		w.WriteHeader(status)
		encoder := msgpack.NewEncoder(w)
		encoder.SetCustomStructTag("json") // Use json tags for MessagePack
		return encoder.Encode(data)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
