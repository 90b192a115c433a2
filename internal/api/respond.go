package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/solver"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errRowBudget = fmt.Errorf("%w: table exceeds %d rows, increase step or reduce max_range", solver.ErrInvalidRequest, maxRows)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeSolveError maps a solve failure to a status code and JSON body.
func writeSolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, errRowBudget) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    err.Error(),
			"max_rows": maxRows,
		})
		return
	}
	writeError(w, statusFor(err), err.Error())
}

// statusFor returns the HTTP status for a solver error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, solver.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ballistics.ErrNoZeroSolution), errors.Is(err, ballistics.ErrDragOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", solver.ErrInvalidRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON object", solver.ErrInvalidRequest)
	}
	return nil
}

// queryInt parses an optional integer query parameter within [lo, hi].
func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: invalid %s parameter, must be %d-%d", solver.ErrInvalidRequest, name, lo, hi)
	}
	return n, nil
}
