package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/romeoscript/crime-report/internal/apperr"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Responder writes envelopes. In development the raw error text is included
// in failure responses.
type Responder struct {
	Development bool
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// OK writes a success envelope.
func (rs Responder) OK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with a caller-chosen message.
func (rs Responder) Fail(w http.ResponseWriter, status int, message string, err error) {
	env := Envelope{Success: false, Message: message}
	if rs.Development && err != nil {
		env.Error = err.Error()
	}
	WriteJSON(w, status, env)
}

// Error maps err onto a status code. Validation and not-found messages are
// safe to show; anything else gets fallback as its message.
func (rs Responder) Error(w http.ResponseWriter, err error, fallback string) {
	switch {
	case apperr.IsValidation(err):
		rs.Fail(w, http.StatusBadRequest, err.Error(), nil)
	case apperr.IsNotFound(err):
		rs.Fail(w, http.StatusNotFound, notFoundMessage(err), nil)
	default:
		rs.Fail(w, http.StatusInternalServerError, fallback, err)
	}
}

func notFoundMessage(err error) string {
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) && nf.Resource != "" {
		return strings.ToUpper(nf.Resource[:1]) + nf.Resource[1:] + " not found"
	}
	return "Not found"
}

// MaxJSONBytes caps every JSON request body.
const MaxJSONBytes = 64 << 10

// DecodeJSON reads a JSON request body of at most MaxJSONBytes into dst.
// Oversized and malformed bodies become a ValidationError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("Request body too large")
		}
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// AddServerTiming appends a Server-Timing entry, e.g. "db;dur=12.3".
func AddServerTiming(w http.ResponseWriter, name string, d time.Duration) {
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%.1f", name, float64(d.Microseconds())/1000))
}
