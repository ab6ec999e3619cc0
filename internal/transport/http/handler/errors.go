package handler

import (
	"errors"
	"net/http"

	"github.com/wazir-realty/api/internal/domain"
)

// httpError maps domain sentinels to HTTP responses. Expected verification
// outcomes (not found, expired, mismatch) are 4xx envelopes; only adapter
// exhaustion becomes a 5xx.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrChannelUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
