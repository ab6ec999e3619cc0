package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
//
// NotFound, Expired and Mismatch are expected outcomes of the verification flow
// and never cross a handler boundary as a 5xx. An expired record is always
// removed at the point of detection; a mismatched one is retained so the caller
// may retry.
var (
	ErrNotFound           = errors.New("not found")
	ErrExpired            = errors.New("expired")
	ErrMismatch           = errors.New("mismatch")
	ErrChannelUnavailable = errors.New("channel unavailable")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
