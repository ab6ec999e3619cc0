// Package verify orchestrates contact-verification sessions and one-time
// codes across the delivery channels.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
	"github.com/wazir-realty/api/internal/pkg/code"
	"github.com/wazir-realty/api/internal/pkg/phone"
	"github.com/wazir-realty/api/internal/pkg/token"
)

// timeNow is swapped in tests to drive expiry.
var timeNow = time.Now

// InitiateResult is what the caller needs to continue the flow after
// requesting a code.
type InitiateResult struct {
	SessionID   string `json:"session_id,omitempty"`
	TelegramURL string `json:"telegram_url,omitempty"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"` // only in debug/degraded mode
	Debug       bool   `json:"debug,omitempty"`
}

// VerifyResult is the structured outcome of a code check. Business failures
// are values here, never transport errors.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// SessionStatus is the polling view of one session.
type SessionStatus struct {
	Found         bool   `json:"found"`
	Confirmed     bool   `json:"confirmed"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
	MaskedContact string `json:"phone,omitempty"`
}

// ServiceStatus is the aggregate view for the status endpoint.
type ServiceStatus struct {
	ActiveSessions    int  `json:"active_sessions"`
	ActiveCodes       int  `json:"active_codes"`
	GatewayConfigured bool `json:"gateway_configured"`
	BotConfigured     bool `json:"bot_configured"`
}

// Service is the verification orchestrator.
type Service interface {
	CreateSession(ctx context.Context, contact string) (*InitiateResult, error)
	Confirm(ctx context.Context, channelUserID int64, reportedContact, sessionID string) (string, error)
	ValidateCode(ctx context.Context, contact, submitted string) error
	VerifyCode(ctx context.Context, contact, submitted string) VerifyResult
	RequestCode(ctx context.Context, contact string) *InitiateResult
	GetSessionStatus(sessionID string) SessionStatus
	CleanupExpired() int
	Status() ServiceStatus
}

// Deps carries the injected collaborators. Codes is the shared (file-backed)
// store the bot process also reads; Gateway, Push and Mailer are optional.
type Deps struct {
	Codes           codestore.Store
	Gateway         SMSGateway
	SMS             SMSSender
	Push            BotPush
	Mailer          Mailer
	BotUsername     string
	SessionLifetime time.Duration
	Degraded        DegradedPolicy
}

type service struct {
	mu        sync.Mutex
	sessions  map[string]*domain.VerificationSession
	byContact map[string]string // normalized contact -> session id (latest)

	codes           codestore.Store
	gateway         SMSGateway
	sms             SMSSender
	push            BotPush
	mailer          Mailer
	botUsername     string
	sessionLifetime time.Duration
	degraded        DegradedPolicy

	// contact -> telegram chat id, learned when the bot confirms a session
	chatMu  sync.RWMutex
	chatIDs map[string]int64
}

func NewService(d Deps) Service {
	lifetime := d.SessionLifetime
	if lifetime == 0 {
		lifetime = 15 * time.Minute
	}
	return &service{
		sessions:        make(map[string]*domain.VerificationSession),
		byContact:       make(map[string]string),
		codes:           d.Codes,
		gateway:         d.Gateway,
		sms:             d.SMS,
		push:            d.Push,
		mailer:          d.Mailer,
		botUsername:     d.BotUsername,
		sessionLifetime: lifetime,
		degraded:        d.Degraded,
		chatIDs:         make(map[string]int64),
	}
}

// CreateSession opens a verification session for the claimed contact and
// returns the deep link the user follows to confirm it over the bot channel.
func (s *service) CreateSession(ctx context.Context, contact string) (*InitiateResult, error) {
	sessionID, err := token.NewSessionID()
	if err != nil {
		return nil, err
	}
	normalized := phone.Digits(contact)
	now := timeNow()

	s.mu.Lock()
	s.sessions[sessionID] = &domain.VerificationSession{
		SessionID: sessionID,
		Contact:   normalized,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionLifetime),
	}
	s.byContact[normalized] = sessionID
	s.mu.Unlock()

	slog.Info("verification session created", "session_id", sessionID, "contact", maskContact(normalized))

	res := &InitiateResult{SessionID: sessionID, Message: "session created"}
	if s.botUsername != "" {
		res.TelegramURL = fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, sessionID)
	}
	return res, nil
}

// Confirm reconciles the channel-reported identity and contact against the
// session. On success it issues the 4-digit code, marks the session confirmed
// and returns the code for delivery. Re-confirming an already confirmed
// session overwrites the code without breaking the confirmed⇒code invariant.
func (s *service) Confirm(ctx context.Context, channelUserID int64, reportedContact, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if sess.Expired(timeNow()) {
		s.removeLocked(sess)
		return "", fmt.Errorf("session %s: %w", sessionID, domain.ErrExpired)
	}

	reported := phone.Digits(reportedContact)
	if reported != sess.Contact {
		// No state change; the channel may retry with the right number.
		slog.Warn("contact mismatch on confirm", "session_id", sessionID,
			"claimed", maskContact(sess.Contact), "reported", maskContact(reported))
		return "", fmt.Errorf("reported contact does not match claimed contact: %w", domain.ErrMismatch)
	}

	c, err := code.New()
	if err != nil {
		return "", err
	}
	sess.Confirmed = true
	sess.ChannelUserID = &channelUserID
	sess.Code = c

	s.chatMu.Lock()
	s.chatIDs[sess.Contact] = channelUserID
	s.chatMu.Unlock()

	slog.Info("session confirmed, code issued", "session_id", sessionID)
	return c, nil
}

// ValidateCode checks a submitted code against the confirmed session for the
// contact. Success consumes the session; a mismatch retains it for retry.
func (s *service) ValidateCode(ctx context.Context, contact, submitted string) error {
	normalized := phone.Digits(contact)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findConfirmedLocked(normalized)
	if sess == nil {
		return fmt.Errorf("no confirmed session for contact: %w", domain.ErrNotFound)
	}
	if sess.Expired(timeNow()) {
		s.removeLocked(sess)
		return fmt.Errorf("session %s: %w", sess.SessionID, domain.ErrExpired)
	}
	if sess.Code != submitted {
		return fmt.Errorf("wrong code: %w", domain.ErrMismatch)
	}

	s.removeLocked(sess)
	slog.Info("code validated, session consumed", "session_id", sess.SessionID)
	return nil
}

// findConfirmedLocked resolves the confirmed session for a normalized contact,
// preferring the secondary index and falling back to a scan for sessions the
// index no longer points at.
func (s *service) findConfirmedLocked(normalized string) *domain.VerificationSession {
	if sid, ok := s.byContact[normalized]; ok {
		if sess, ok := s.sessions[sid]; ok && sess.Confirmed {
			return sess
		}
	}
	for _, sess := range s.sessions {
		if sess.Confirmed && sess.Contact == normalized {
			return sess
		}
	}
	return nil
}

func (s *service) removeLocked(sess *domain.VerificationSession) {
	delete(s.sessions, sess.SessionID)
	if s.byContact[sess.Contact] == sess.SessionID {
		delete(s.byContact, sess.Contact)
	}
}

// VerifyCode is the outward-facing check used by the login endpoint. It walks
// the validation chain: confirmed session, then the shared code store, then
// the gateway; when every source is unavailable the degraded policy may
// accept any syntactically valid code.
func (s *service) VerifyCode(ctx context.Context, contact, submitted string) VerifyResult {
	if !code.Valid(submitted) {
		return VerifyResult{Verified: false, Reason: "code must be 4 digits"}
	}

	err := s.ValidateCode(ctx, contact, submitted)
	if err == nil {
		return VerifyResult{Verified: true}
	}
	if errors.Is(err, domain.ErrMismatch) {
		// A confirmed session exists and the code is simply wrong; the
		// session is retained and the caller may retry. No fallback applies.
		return VerifyResult{Verified: false, Reason: "invalid code"}
	}

	if s.codes != nil && s.codes.Validate(storeKey(contact), submitted) {
		return VerifyResult{Verified: true}
	}

	// The gateway only knows phone numbers; an email has no digits to check.
	if s.gateway != nil && !phone.IsEmail(contact) {
		valid, err := s.gateway.CheckCode(ctx, contact, submitted)
		if err == nil {
			if valid {
				return VerifyResult{Verified: true}
			}
			return VerifyResult{Verified: false, Reason: "invalid code"}
		}
		slog.Warn("gateway check unavailable", "err", err)
	}

	if s.degraded.AcceptAnyValidCode {
		slog.Warn("degraded mode: accepting syntactically valid code", "contact", maskContact(phone.Digits(contact)))
		return VerifyResult{Verified: true, Degraded: true}
	}
	return VerifyResult{Verified: false, Reason: "invalid code"}
}

// RequestCode issues a code for the contact and pushes it through the first
// channel that succeeds: mail for email contacts, otherwise gateway, bot
// relay, file fallback. Channel and storage failures degrade to returning the
// code for manual display rather than dropping it.
func (s *service) RequestCode(ctx context.Context, contact string) *InitiateResult {
	c, err := code.New()
	if err != nil {
		return &InitiateResult{Message: "failed to generate code"}
	}

	var chain []Channel
	if phone.IsEmail(contact) && s.mailer != nil {
		chain = append(chain, &MailChannel{Mailer: s.mailer})
	} else {
		if s.gateway != nil {
			chain = append(chain, &GatewayChannel{Gateway: s.gateway})
		}
		if s.sms != nil {
			chain = append(chain, &SNSChannel{Sender: s.sms})
		}
		chain = append(chain, &RelayChannel{Push: s.push, ChatIDs: s.lookupChatID})
	}
	if s.codes != nil {
		chain = append(chain, &FileChannel{Store: s.codes})
	}

	// The file channel stages the code for the bot regardless of which
	// channel reports delivery, so stage first, then deliver.
	var staged bool
	if s.codes != nil {
		if err := s.codes.Put(domain.VerificationCode{Contact: storeKey(contact), Code: c, IssuedAt: timeNow()}); err != nil {
			slog.Error("failed to stage code in store", "err", err)
		} else {
			staged = true
		}
	}

	for _, ch := range chain {
		if _, isFile := ch.(*FileChannel); isFile && staged {
			res := &InitiateResult{Message: "code staged for bot pickup"}
			if s.botUsername != "" {
				res.TelegramURL = "https://t.me/" + s.botUsername
			}
			return res
		}
		res := ch.Send(ctx, contact, c)
		if res.Err != nil {
			slog.Warn("delivery channel failed", "channel", ch.Name(), "err", res.Err)
			continue
		}
		if res.Success {
			out := &InitiateResult{Message: res.Message, Debug: res.Debug}
			if res.Debug {
				out.Code = res.Code
			}
			if s.botUsername != "" {
				out.TelegramURL = "https://t.me/" + s.botUsername
			}
			return out
		}
	}

	// Every channel and the store failed. Hand the code back for manual
	// entry instead of dropping it.
	slog.Error("all delivery channels failed, returning code for manual display", "contact", maskContact(phone.Digits(contact)))
	return &InitiateResult{Message: "delivery unavailable, use the code below", Code: c, Debug: true}
}

func (s *service) lookupChatID(contact string) (int64, bool) {
	s.chatMu.RLock()
	defer s.chatMu.RUnlock()
	id, ok := s.chatIDs[phone.Digits(contact)]
	return id, ok
}

// GetSessionStatus reports one session for polling. Expired sessions are
// removed on detection and reported as not found.
func (s *service) GetSessionStatus(sessionID string) SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return SessionStatus{Found: false}
	}
	now := timeNow()
	if sess.Expired(now) {
		s.removeLocked(sess)
		return SessionStatus{Found: false}
	}
	return SessionStatus{
		Found:         true,
		Confirmed:     sess.Confirmed,
		ExpiresIn:     int(sess.ExpiresAt.Sub(now).Seconds()),
		MaskedContact: sess.MaskedContact(),
	}
}

// CleanupExpired sweeps expired sessions and codes. Idempotent; triggered by
// status polling.
func (s *service) CleanupExpired() int {
	now := timeNow()

	s.mu.Lock()
	removed := 0
	for _, sess := range s.sessions {
		if sess.Expired(now) {
			s.removeLocked(sess)
			removed++
		}
	}
	s.mu.Unlock()

	if s.codes != nil {
		removed += s.codes.Sweep(now)
	}
	if removed > 0 {
		slog.Info("swept expired verification state", "removed", removed)
	}
	return removed
}

// Status summarizes service health for the status endpoint.
func (s *service) Status() ServiceStatus {
	s.mu.Lock()
	active := len(s.sessions)
	s.mu.Unlock()

	codes := 0
	if s.codes != nil {
		if counter, ok := s.codes.(interface{ Len() int }); ok {
			codes = counter.Len()
		}
	}
	return ServiceStatus{
		ActiveSessions:    active,
		ActiveCodes:       codes,
		GatewayConfigured: s.gateway != nil && !s.gateway.Debug(),
		BotConfigured:     s.botUsername != "",
	}
}

func maskContact(contact string) string {
	if len(contact) <= 4 {
		return contact
	}
	return "****" + contact[len(contact)-4:]
}
