package domain

import "time"

// VerificationCode is a one-time code bound to a contact (phone or email).
// At most one live code exists per contact; issuance overwrites any prior one.
// A code is consumed (deleted) on successful validation and swept once its TTL
// passes.
//
// The JSON tags define the on-disk layout of the shared codes file:
// {contact: {code, issued_at, owner_id}}, timestamps as ISO-8601 strings.
type VerificationCode struct {
	Contact  string    `json:"-"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	OwnerID  *int64    `json:"owner_id"` // channel identity that drew the code, if known
}

// VerificationSession binds a claimed contact to a delivery channel identity
// and tracks the confirmed/unconfirmed state of the contact check.
//
// Lifecycle: created -> confirmed (channel reported a matching contact, code
// issued) -> consumed (code validated, session removed). Expiry removes the
// session in any state. Confirmed implies Code is non-empty.
type VerificationSession struct {
	SessionID     string    `json:"session_id"`
	Contact       string    `json:"contact"` // normalized, digits only
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Confirmed     bool      `json:"confirmed"`
	ChannelUserID *int64    `json:"channel_user_id,omitempty"`
	Code          string    `json:"-"` // never serialized outward
}

// Expired reports whether the session's lifetime has passed at now.
func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// MaskedContact returns the contact with all but the last four characters
// replaced by asterisks, for status responses.
func (s *VerificationSession) MaskedContact() string {
	if len(s.Contact) <= 4 {
		return s.Contact
	}
	masked := make([]byte, len(s.Contact))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(masked)-4:], s.Contact[len(s.Contact)-4:])
	return string(masked)
}
