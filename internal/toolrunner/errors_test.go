package toolrunner

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrToolFailure, "probe", "run", "stderr summary", cause)

	if !errors.Is(err, ErrToolFailure) {
		t.Error("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if !strings.Contains(err.Error(), "probe: run: stderr summary") {
		t.Errorf("detail missing: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToToolFailure(t *testing.T) {
	err := Wrap(nil, "probe", "run", "", nil)
	if !errors.Is(err, ErrToolFailure) {
		t.Errorf("expected ErrToolFailure default, got %v", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Wrap(ErrValidation, "probe", "invoke", "bad input", nil), http.StatusBadRequest},
		{Wrap(ErrTimeout, "probe", "run", "over budget", nil), http.StatusGatewayTimeout},
		{Wrap(ErrCancelled, "probe", "run", "gone", nil), 499},
		{Wrap(ErrToolFailure, "probe", "run", "boom", nil), http.StatusInternalServerError},
		{errors.New("unrelated"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
