package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps an error kind to a status code. Server-side failures are
// logged and answered with a generic "failed to <action>" message.
func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, xerrors.ErrValidation), errors.Is(err, xerrors.ErrInvalidBatchFormat):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrUnknownCategory):
		jsonError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("request failed", zap.String("action", action), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// categoryKey resolves the {category} path segment, answering 404 itself
// when it names no category.
func categoryKey(w http.ResponseWriter, r *http.Request) (category.Key, bool) {
	key, err := category.Parse(r.PathValue("category"))
	if err != nil {
		writeError(w, err, "resolve category")
		return "", false
	}
	return key, true
}

// recordID parses the {id} path segment, answering 400 itself when it is
// not a positive integer.
func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}
