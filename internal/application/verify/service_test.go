package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
	"github.com/wazir-realty/api/internal/infrastructure/devino"
)

// --- fakes ---

type fakeGateway struct {
	sendRes    devino.SendResult
	checkValid bool
	checkErr   error
	debug      bool
}

func (g *fakeGateway) SendCode(ctx context.Context, phone, code string) devino.SendResult {
	return g.sendRes
}
func (g *fakeGateway) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	return g.checkValid, g.checkErr
}
func (g *fakeGateway) Debug() bool { return g.debug }

type fakeMailer struct {
	to, code string
	err      error
}

func (m *fakeMailer) SendCode(to, code string) error {
	m.to, m.code = to, code
	return m.err
}

func freezeTime(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })
	return &now
}

func newTestService(t *testing.T, d Deps) Service {
	t.Helper()
	if d.SessionLifetime == 0 {
		d.SessionLifetime = 15 * time.Minute
	}
	return NewService(d)
}

// --- session lifecycle ---

func TestCreateSession_ReturnsDeepLink(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{BotUsername: "wazir_verify_bot"})

	res, err := svc.CreateSession(context.Background(), "+996 555 123 456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "https://t.me/wazir_verify_bot?start="+res.SessionID, res.TelegramURL)
}

func TestConfirm_MatchingContactIssuesCode(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{})

	res, err := svc.CreateSession(context.Background(), "+996 555 123 456")
	require.NoError(t, err)

	code, err := svc.Confirm(context.Background(), 99, "+996555123456", res.SessionID)
	require.NoError(t, err)
	assert.Len(t, code, 4)

	status := svc.GetSessionStatus(res.SessionID)
	assert.True(t, status.Found)
	assert.True(t, status.Confirmed)
	assert.Equal(t, "********3456", status.MaskedContact)
}

func TestConfirm_MismatchRetainsSession(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{})

	res, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), 99, "+996700000000", res.SessionID)
	assert.ErrorIs(t, err, domain.ErrMismatch)

	status := svc.GetSessionStatus(res.SessionID)
	assert.True(t, status.Found, "a mismatch must not consume the session")
	assert.False(t, status.Confirmed)

	// The channel retries with the right number and succeeds.
	_, err = svc.Confirm(context.Background(), 99, "+996555123456", res.SessionID)
	assert.NoError(t, err)
}

func TestConfirm_UnknownSession(t *testing.T) {
	svc := newTestService(t, Deps{})
	_, err := svc.Confirm(context.Background(), 99, "+996555123456", "no-such-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirm_ExpiredSessionIsRemoved(t *testing.T) {
	now := freezeTime(t)
	svc := newTestService(t, Deps{SessionLifetime: 15 * time.Minute})

	res, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)

	*now = now.Add(16 * time.Minute)
	_, err = svc.Confirm(context.Background(), 99, "+996555123456", res.SessionID)
	assert.ErrorIs(t, err, domain.ErrExpired)

	assert.False(t, svc.GetSessionStatus(res.SessionID).Found)
}

func TestValidateCode_SuccessConsumesSession(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{})

	res, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	code, err := svc.Confirm(context.Background(), 99, "996555123456", res.SessionID)
	require.NoError(t, err)

	require.NoError(t, svc.ValidateCode(context.Background(), "996555123456", code))

	err = svc.ValidateCode(context.Background(), "996555123456", code)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a validated session must be gone")
}

func TestValidateCode_WrongCodeRetainsSession(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{})

	res, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	code, err := svc.Confirm(context.Background(), 99, "996555123456", res.SessionID)
	require.NoError(t, err)

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}
	err = svc.ValidateCode(context.Background(), "996555123456", wrong)
	assert.ErrorIs(t, err, domain.ErrMismatch)

	assert.NoError(t, svc.ValidateCode(context.Background(), "996555123456", code),
		"a failed guess must not consume the code")
}

func TestValidateCode_ExpiryBetweenConfirmAndSubmit(t *testing.T) {
	now := freezeTime(t)
	svc := newTestService(t, Deps{SessionLifetime: 15 * time.Minute})

	res, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	code, err := svc.Confirm(context.Background(), 99, "996555123456", res.SessionID)
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	err = svc.ValidateCode(context.Background(), "996555123456", code)
	assert.ErrorIs(t, err, domain.ErrExpired)
}

// --- the outward verification chain ---

func TestVerifyCode_RejectsMalformedCode(t *testing.T) {
	svc := newTestService(t, Deps{Degraded: DegradedPolicy{AcceptAnyValidCode: true}})
	res := svc.VerifyCode(context.Background(), "996555123456", "12")
	assert.False(t, res.Verified)
}

func TestVerifyCode_SessionPath(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{})

	created, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	code, err := svc.Confirm(context.Background(), 99, "996555123456", created.SessionID)
	require.NoError(t, err)

	res := svc.VerifyCode(context.Background(), "996555123456", code)
	assert.True(t, res.Verified)
	assert.False(t, res.Degraded)
}

func TestVerifyCode_SessionMismatchNeverFallsThrough(t *testing.T) {
	freezeTime(t)
	// Degraded acceptance is on, but a live confirmed session with the wrong
	// guess must still fail: the fallback only covers absent state.
	svc := newTestService(t, Deps{Degraded: DegradedPolicy{AcceptAnyValidCode: true}})

	created, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	code, err := svc.Confirm(context.Background(), 99, "996555123456", created.SessionID)
	require.NoError(t, err)

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}
	res := svc.VerifyCode(context.Background(), "996555123456", wrong)
	assert.False(t, res.Verified)
	assert.False(t, res.Degraded)
}

func TestVerifyCode_SharedStorePath(t *testing.T) {
	codes := codestore.NewMemory(5 * time.Minute)
	require.NoError(t, codes.Put(domain.VerificationCode{
		Contact: "+996555123456", Code: "4321", IssuedAt: time.Now(),
	}))
	svc := newTestService(t, Deps{Codes: codes})

	res := svc.VerifyCode(context.Background(), "0555123456", "4321")
	assert.True(t, res.Verified, "local formats must normalize onto the stored key")

	res = svc.VerifyCode(context.Background(), "0555123456", "4321")
	assert.False(t, res.Verified, "store codes are single-use")
}

func TestVerifyCode_EmailedCodeRoundTrip(t *testing.T) {
	mailer := &fakeMailer{}
	codes := codestore.NewMemory(5 * time.Minute)
	// Degraded acceptance off: only the genuinely staged code may pass.
	svc := newTestService(t, Deps{Codes: codes, Mailer: mailer})

	res := svc.RequestCode(context.Background(), "user@example.com")
	require.NotNil(t, res)
	require.Len(t, mailer.code, 4)

	verdict := svc.VerifyCode(context.Background(), "user@example.com", mailer.code)
	assert.True(t, verdict.Verified, "the emailed code must validate for the same contact")
	assert.False(t, verdict.Degraded)

	verdict = svc.VerifyCode(context.Background(), "user@example.com", mailer.code)
	assert.False(t, verdict.Verified, "an emailed code validates exactly once")
}

func TestVerifyCode_EmailNeverHitsGateway(t *testing.T) {
	// A gateway normalizes an email to an empty digit string; it must not be
	// consulted for email contacts at all.
	gw := &fakeGateway{checkValid: true}
	svc := newTestService(t, Deps{Gateway: gw})

	verdict := svc.VerifyCode(context.Background(), "user@example.com", "4321")
	assert.False(t, verdict.Verified)
}

func TestVerifyCode_GatewayPath(t *testing.T) {
	svc := newTestService(t, Deps{Gateway: &fakeGateway{checkValid: true}})
	res := svc.VerifyCode(context.Background(), "996555123456", "4321")
	assert.True(t, res.Verified)
}

func TestVerifyCode_GatewayRejectionIsFinal(t *testing.T) {
	svc := newTestService(t, Deps{
		Gateway:  &fakeGateway{checkValid: false},
		Degraded: DegradedPolicy{AcceptAnyValidCode: true},
	})
	res := svc.VerifyCode(context.Background(), "996555123456", "4321")
	assert.False(t, res.Verified, "a gateway that answered must be believed")
}

func TestVerifyCode_DegradedMode(t *testing.T) {
	gw := &fakeGateway{checkErr: domain.ErrChannelUnavailable}

	svc := newTestService(t, Deps{Gateway: gw, Degraded: DegradedPolicy{AcceptAnyValidCode: true}})
	res := svc.VerifyCode(context.Background(), "996555123456", "4321")
	assert.True(t, res.Verified)
	assert.True(t, res.Degraded)

	strict := newTestService(t, Deps{Gateway: gw})
	res = strict.VerifyCode(context.Background(), "996555123456", "4321")
	assert.False(t, res.Verified)
}

// --- delivery ---

func TestRequestCode_StagesForBotPickup(t *testing.T) {
	codes := codestore.NewMemory(5 * time.Minute)
	svc := newTestService(t, Deps{Codes: codes, BotUsername: "wazir_verify_bot"})

	res := svc.RequestCode(context.Background(), "0555123456")
	require.NotNil(t, res)
	assert.Equal(t, "https://t.me/wazir_verify_bot", res.TelegramURL)

	vc, ok := codes.Get("+996555123456")
	require.True(t, ok, "the code must be staged under the normalized key")
	assert.Len(t, vc.Code, 4)
}

func TestRequestCode_EmailGoesToMailer(t *testing.T) {
	mailer := &fakeMailer{}
	codes := codestore.NewMemory(5 * time.Minute)
	svc := newTestService(t, Deps{Codes: codes, Mailer: mailer})

	res := svc.RequestCode(context.Background(), "user@example.com")
	require.NotNil(t, res)
	assert.Equal(t, "user@example.com", mailer.to)
	assert.Len(t, mailer.code, 4)

	// Emails are staged under the raw address, not a phone key.
	_, ok := codes.Get("user@example.com")
	assert.True(t, ok)
}

func TestRequestCode_GatewayDeliveryWins(t *testing.T) {
	gw := &fakeGateway{sendRes: devino.SendResult{Success: true, Message: "SMS code sent"}}
	codes := codestore.NewMemory(5 * time.Minute)
	svc := newTestService(t, Deps{Codes: codes, Gateway: gw})

	res := svc.RequestCode(context.Background(), "996555123456")
	require.NotNil(t, res)
	assert.Equal(t, "SMS code sent", res.Message)
	assert.Empty(t, res.Code, "a delivered code is never echoed back")
}

func TestRequestCode_AllChannelsDownReturnsCode(t *testing.T) {
	gw := &fakeGateway{sendRes: devino.SendResult{Err: domain.ErrChannelUnavailable}}
	svc := newTestService(t, Deps{Gateway: gw})

	res := svc.RequestCode(context.Background(), "996555123456")
	require.NotNil(t, res)
	assert.Len(t, res.Code, 4, "with nothing to deliver through, hand the code back")
	assert.True(t, res.Debug)
}

// --- housekeeping ---

func TestCleanupExpired(t *testing.T) {
	now := freezeTime(t)
	codes := codestore.NewMemory(5 * time.Minute)
	require.NoError(t, codes.Put(domain.VerificationCode{
		Contact: "+996700000000", Code: "1111", IssuedAt: now.Add(-10 * time.Minute),
	}))
	svc := newTestService(t, Deps{Codes: codes, SessionLifetime: 15 * time.Minute})

	_, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)
	_, err = svc.CreateSession(context.Background(), "996555123457")
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	removed := svc.CleanupExpired()
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, svc.Status().ActiveSessions)
	assert.Equal(t, 0, codes.Len())
}

func TestStatus(t *testing.T) {
	freezeTime(t)
	svc := newTestService(t, Deps{
		Codes:       codestore.NewMemory(5 * time.Minute),
		Gateway:     &fakeGateway{debug: true},
		BotUsername: "wazir_verify_bot",
	})
	_, err := svc.CreateSession(context.Background(), "996555123456")
	require.NoError(t, err)

	st := svc.Status()
	assert.Equal(t, 1, st.ActiveSessions)
	assert.False(t, st.GatewayConfigured, "a debug gateway is not a configured one")
	assert.True(t, st.BotConfigured)
}
