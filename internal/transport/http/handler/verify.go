package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wazir-realty/api/internal/application/verify"
	"github.com/wazir-realty/api/internal/pkg/validate"
)

// VerifyHandler exposes the contact-verification flow.
type VerifyHandler struct {
	svc verify.Service
}

func NewVerifyHandler(svc verify.Service) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

type InitiateRequest struct {
	Contact string `json:"contact" validate:"required"`
}

type ConfirmContactRequest struct {
	TelegramUserID int64  `json:"telegram_user_id" validate:"required"`
	Contact        string `json:"contact" validate:"required"`
	SessionID      string `json:"session_id" validate:"required"`
}

type ValidateCodeRequest struct {
	Contact string `json:"contact" validate:"required"`
	Code    string `json:"code" validate:"required"`
}

// Initiate opens a verification session and pushes a code through the first
// available delivery channel.
func (h *VerifyHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	session, err := h.svc.CreateSession(r.Context(), req.Contact)
	if err != nil {
		httpError(w, err)
		return
	}
	delivery := h.svc.RequestCode(r.Context(), req.Contact)

	writeJSON(w, http.StatusOK, verify.InitiateResult{
		SessionID:   session.SessionID,
		TelegramURL: session.TelegramURL,
		Message:     delivery.Message,
		Code:        delivery.Code,
		Debug:       delivery.Debug,
	})
}

// ConfirmContact is the inbound channel event endpoint: the bot reports the
// identity and contact it observed for a session.
func (h *VerifyHandler) ConfirmContact(w http.ResponseWriter, r *http.Request) {
	var req ConfirmContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	code, err := h.svc.Confirm(r.Context(), req.TelegramUserID, req.Contact, req.SessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ResultEnvelope
		Code string `json:"code"`
	}{ResultEnvelope{Success: true, Message: "contact confirmed, code issued"}, code})
}

// ValidateCode checks a submitted code. Business mismatches come back as a
// verified=false envelope, never a 5xx.
func (h *VerifyHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req ValidateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result := h.svc.VerifyCode(r.Context(), req.Contact, req.Code)
	status := http.StatusOK
	if !result.Verified {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

// SessionStatus reports one session for the polling page. Polling doubles as
// the expiry sweep trigger.
func (h *VerifyHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	h.svc.CleanupExpired()
	writeJSON(w, http.StatusOK, h.svc.GetSessionStatus(chi.URLParam(r, "id")))
}

// Status reports aggregate verification state and sweeps expired entries as a
// side effect of being polled.
func (h *VerifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.svc.CleanupExpired()
	writeJSON(w, http.StatusOK, h.svc.Status())
}
