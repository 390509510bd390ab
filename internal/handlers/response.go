package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tradekit/mexc-trading-proxy/pkg/upstream"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw forwards an upstream JSON body unchanged.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// errorResponse is the failure envelope. ErrorClass lets callers tell an
// exchange rejection from a proxy-side failure.
type errorResponse struct {
	Status     string  `json:"status"`
	Error      string  `json:"error"`
	ErrorClass string  `json:"error_class,omitempty"`
	Timestamp  float64 `json:"timestamp"`
}

// writeError writes a proxy-side error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Status:    "error",
		Error:     message,
		Timestamp: unixNow(),
	})
}

// writeUpstreamError maps an upstream failure onto an HTTP response:
// client-class rejections keep the exchange's own status, everything else
// becomes a 502.
func writeUpstreamError(w http.ResponseWriter, err error, endpoint string) {
	ue := upstream.AsError(err, endpoint)
	writeJSON(w, ue.HTTPStatus(), errorResponse{
		Status:     "error",
		Error:      ue.Error(),
		ErrorClass: string(ue.Class),
		Timestamp:  unixNow(),
	})
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
