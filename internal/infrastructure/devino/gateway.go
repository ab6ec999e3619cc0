// Package devino talks to the Devino 2FA phone-verification HTTP API.
package devino

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/pkg/code"
	"github.com/wazir-realty/api/internal/pkg/phone"
)

// placeholderKey is the unconfigured sample value that, like an empty key,
// routes the gateway into debug mode.
const placeholderKey = "your_api_key_here"

// SendResult is the structured outcome of a delivery attempt. Failures are
// values, never panics: the verification flow must keep moving when the
// gateway is down.
type SendResult struct {
	Success bool
	Message string
	Code    string // populated in debug mode where no SMS actually goes out
	Phone   string // normalized destination
	Debug   bool
	Err     error
}

// Gateway sends and checks one-time codes through the external SMS gateway.
// With no usable API key it runs in debug mode: sends are simulated and carry
// a generated code back to the caller, and checks accept a small fixed
// allow-list so the flow stays testable without live credentials.
type Gateway struct {
	apiURL string
	apiKey string
	client *http.Client
	debug  bool
}

func NewGateway(cfg *config.Config) *Gateway {
	g := &Gateway{
		apiURL: cfg.SMSGatewayURL,
		apiKey: cfg.SMSGatewayAPIKey,
		client: &http.Client{Timeout: cfg.SMSTimeout},
		debug:  cfg.SMSGatewayAPIKey == "" || cfg.SMSGatewayAPIKey == placeholderKey,
	}
	if g.debug {
		slog.Warn("SMS gateway API key not configured, running in debug mode", "url", g.apiURL)
	}
	return g
}

// Debug reports whether the gateway is simulating deliveries.
func (g *Gateway) Debug() bool { return g.debug }

type generatePayload struct {
	DestinationNumber string `json:"DestinationNumber"`
	SMSCode           string `json:"SMSCode,omitempty"`
}

type checkPayload struct {
	DestinationNumber string `json:"DestinationNumber"`
	Code              string `json:"Code"`
}

type checkResponse struct {
	Code int `json:"Code"` // 0 means the submitted code matched
}

// SendCode delivers smsCode to the phone. An empty smsCode lets the gateway
// generate one on its side; in debug mode one is generated locally instead so
// the caller always has something to verify against.
func (g *Gateway) SendCode(ctx context.Context, rawPhone, smsCode string) SendResult {
	normalized := phone.Normalize(rawPhone)

	if g.debug {
		c := smsCode
		if c == "" {
			var err error
			if c, err = code.New(); err != nil {
				return SendResult{Success: false, Phone: normalized, Err: err}
			}
		}
		slog.Info("debug mode: simulated SMS send", "phone", normalized, "code", c)
		return SendResult{Success: true, Message: "SMS sent (debug mode)", Code: c, Phone: normalized, Debug: true}
	}

	if _, err := g.post(ctx, "/GenerateCode", generatePayload{DestinationNumber: normalized, SMSCode: smsCode}); err != nil {
		return SendResult{Success: false, Phone: normalized, Err: err}
	}
	return SendResult{Success: true, Message: "SMS code sent", Phone: normalized}
}

// CheckCode verifies a submitted code against the gateway. In debug mode it
// accepts 1234, 0000 and the phone's own last four digits.
func (g *Gateway) CheckCode(ctx context.Context, rawPhone, submitted string) (bool, error) {
	normalized := phone.Normalize(rawPhone)

	if g.debug {
		valid := submitted == "1234" || submitted == "0000" ||
			(len(normalized) >= 4 && submitted == normalized[len(normalized)-4:])
		slog.Info("debug mode: simulated code check", "phone", normalized, "valid", valid)
		return valid, nil
	}

	body, err := g.post(ctx, "/CheckCode", checkPayload{DestinationNumber: normalized, Code: submitted})
	if err != nil {
		return false, err
	}
	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("parse gateway response: %w", domain.ErrChannelUnavailable)
	}
	return resp.Code == 0, nil
}

func (g *Gateway) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-ApiKey", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("gateway request timed out", "path", path)
			return nil, fmt.Errorf("gateway timeout: %w", domain.ErrChannelUnavailable)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			slog.Error("gateway request timed out", "path", path)
			return nil, fmt.Errorf("gateway timeout: %w", domain.ErrChannelUnavailable)
		}
		slog.Error("gateway request failed", "path", path, "err", err)
		return nil, fmt.Errorf("gateway request: %w", domain.ErrChannelUnavailable)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK {
		slog.Error("gateway returned non-200", "path", path, "status", resp.StatusCode, "body", buf.String())
		return nil, fmt.Errorf("gateway HTTP %d: %w", resp.StatusCode, domain.ErrChannelUnavailable)
	}
	return buf.Bytes(), nil
}
