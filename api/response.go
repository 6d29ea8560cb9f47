package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	autowebsites "github.com/isethius/Autowebsites-sub001"
)

type errCode string

const (
	errCodeBadRequest   errCode = "BAD_REQUEST"
	errCodeUnauthorized errCode = "UNAUTHORIZED"
	errCodeNotFound     errCode = "NOT_FOUND"
	errCodeInternal     errCode = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errCode `json:"code"`
	Message string  `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // headers are already out
}

func writeError(w http.ResponseWriter, status int, code errCode, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errCodeBadRequest, message)
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "missing or invalid bearer token")
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, errCodeNotFound, message)
}

func internalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
}

// storeError maps sentinel store errors onto HTTP responses and reports
// whether err was handled.
func storeError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, autowebsites.ErrRunNotFound) || errors.Is(err, autowebsites.ErrInstanceNotFound) {
		notFound(w, err.Error())
		return true
	}
	internalError(w, logger, err)
	return true
}
