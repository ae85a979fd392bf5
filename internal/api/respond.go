package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/speed.report/internal/kld7"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps driver errors onto HTTP status codes.
func statusForError(err error) int {
	var fe *kld7.FramingError
	switch {
	case errors.Is(err, kld7.ErrParameterNotFound):
		return http.StatusNotFound
	case errors.Is(err, kld7.ErrUnknownLabel),
		errors.Is(err, kld7.ErrReadOnlyParameter):
		return http.StatusBadRequest
	case errors.As(err, &fe) && fe.Op == "encode":
		return http.StatusBadRequest
	case errors.Is(err, kld7.ErrNotInitialized),
		errors.Is(err, kld7.ErrDisconnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDriverError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusForError(err), err.Error())
}

// statusResponse reports a sensor status code. Non-OK codes are not HTTP
// errors; the sensor answered.
type statusResponse struct {
	Status     kld7.Status     `json:"status"`
	StatusText string          `json:"status_text"`
	Parameter  *kld7.Parameter `json:"parameter,omitempty"`
}

func newStatusResponse(st kld7.Status) statusResponse {
	return statusResponse{Status: st, StatusText: st.String()}
}
