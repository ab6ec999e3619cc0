package verify

import (
	"context"
	"fmt"

	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
	"github.com/wazir-realty/api/internal/infrastructure/devino"
	"github.com/wazir-realty/api/internal/pkg/phone"
)

// storeKey derives the shared-store key for a contact: emails are keyed by
// the raw address, phones by the "+"-prefixed normalized number. Staging and
// validation must agree on this or an issued code can never validate.
func storeKey(contact string) string {
	if phone.IsEmail(contact) {
		return contact
	}
	return "+" + phone.Normalize(contact)
}

// ChannelResult is the uniform outcome of a delivery attempt across all
// adapters: gateway, bot relay, file fallback.
type ChannelResult struct {
	Success bool
	Message string
	Code    string // set when the code must be shown to the requester instead
	Debug   bool
	Err     error
}

// Channel is a pluggable strategy for getting a one-time code to a recipient.
type Channel interface {
	Name() string
	Send(ctx context.Context, contact, code string) ChannelResult
}

// SMSGateway is the slice of the gateway adapter the service needs.
type SMSGateway interface {
	SendCode(ctx context.Context, phone, code string) devino.SendResult
	CheckCode(ctx context.Context, phone, code string) (bool, error)
	Debug() bool
}

// SMSSender is a direct-publish SMS alternative to the gateway, for
// deployments that already carry cloud credentials.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// BotPush is the push half of the chat-bot channel.
type BotPush interface {
	SendTo(chatID int64, text string) error
}

// Mailer delivers codes to email contacts.
type Mailer interface {
	SendCode(to, code string) error
}

// GatewayChannel delivers through the external SMS gateway.
type GatewayChannel struct {
	Gateway SMSGateway
}

func (c *GatewayChannel) Name() string { return "gateway" }

func (c *GatewayChannel) Send(ctx context.Context, contact, code string) ChannelResult {
	res := c.Gateway.SendCode(ctx, contact, code)
	if res.Err != nil {
		return ChannelResult{Success: false, Err: res.Err}
	}
	return ChannelResult{Success: res.Success, Message: res.Message, Code: res.Code, Debug: res.Debug}
}

// SNSChannel publishes the code as an SMS directly, bypassing the gateway.
type SNSChannel struct {
	Sender SMSSender
}

func (c *SNSChannel) Name() string { return "sns" }

func (c *SNSChannel) Send(ctx context.Context, contact, code string) ChannelResult {
	if err := c.Sender.SendCode(ctx, contact, code); err != nil {
		return ChannelResult{Success: false, Err: err}
	}
	return ChannelResult{Success: true, Message: "SMS code sent"}
}

// RelayChannel pushes the code through the chat bot when the recipient's chat
// id is known; otherwise it hands the code back for display, since the
// recipient must first open the bot themselves.
type RelayChannel struct {
	Push    BotPush
	ChatIDs func(contact string) (int64, bool) // resolves contact -> known chat id
}

func (c *RelayChannel) Name() string { return "bot-relay" }

func (c *RelayChannel) Send(ctx context.Context, contact, code string) ChannelResult {
	if c.Push != nil && c.ChatIDs != nil {
		if chatID, ok := c.ChatIDs(contact); ok {
			if err := c.Push.SendTo(chatID, "Your confirmation code: "+code); err != nil {
				return ChannelResult{Success: false, Err: err}
			}
			return ChannelResult{Success: true, Message: "code sent via bot"}
		}
	}
	return ChannelResult{Success: true, Message: "open the bot to receive your code", Code: code, Debug: true}
}

// FileChannel writes the code where the standalone bot process will find it.
// Delivery completes later, when the recipient shares their contact with the
// bot; the write itself is the send.
type FileChannel struct {
	Store codestore.Store
}

func (c *FileChannel) Name() string { return "file" }

func (c *FileChannel) Send(ctx context.Context, contact, code string) ChannelResult {
	vc := domain.VerificationCode{Contact: storeKey(contact), Code: code, IssuedAt: timeNow()}
	if err := c.Store.Put(vc); err != nil {
		return ChannelResult{Success: false, Err: err}
	}
	return ChannelResult{Success: true, Message: "code staged for bot pickup"}
}

// MailChannel delivers to email contacts.
type MailChannel struct {
	Mailer Mailer
}

func (c *MailChannel) Name() string { return "mail" }

func (c *MailChannel) Send(ctx context.Context, contact, code string) ChannelResult {
	if err := c.Mailer.SendCode(contact, code); err != nil {
		return ChannelResult{Success: false, Err: err}
	}
	return ChannelResult{Success: true, Message: "code emailed"}
}

// DegradedPolicy is the deliberate availability-over-strictness tradeoff:
// when every channel and the fallback storage have failed, any syntactically
// valid 4-digit code is accepted so verification is never a hard dead-end.
// Stricter deployments disable it. This weakens security by design; see
// DESIGN.md.
type DegradedPolicy struct {
	AcceptAnyValidCode bool
}

func (p DegradedPolicy) String() string {
	return fmt.Sprintf("degraded(accept_any=%t)", p.AcceptAnyValidCode)
}
