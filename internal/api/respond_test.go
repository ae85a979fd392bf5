package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/banshee-data/speed.report/internal/kld7"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", kld7.ErrParameterNotFound, "x"), http.StatusNotFound},
		{kld7.ErrUnknownLabel, http.StatusBadRequest},
		{kld7.ErrReadOnlyParameter, http.StatusBadRequest},
		{&kld7.FramingError{Op: "encode", Msg: "too big"}, http.StatusBadRequest},
		{&kld7.FramingError{Op: "decode RPST", Want: 42, Got: 3}, http.StatusInternalServerError},
		{kld7.ErrNotInitialized, http.StatusServiceUnavailable},
		{kld7.ErrDisconnected, http.StatusServiceUnavailable},
		{&kld7.TransportError{Op: "read", Err: kld7.ErrReadTimeout}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
