// Package telegram is the chat-bot front-end for contact verification. It
// listens for shared contacts and forwards them into the verification service,
// and doubles as the push channel for the bot-relay delivery adapter.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/domain"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
)

// Confirmer reconciles a channel-reported identity and contact against a
// verification session. The verification service implements it.
type Confirmer interface {
	Confirm(ctx context.Context, channelUserID int64, reportedContact, sessionID string) (string, error)
}

// Bot wraps the Telegram connection. With a Confirmer it serves the
// session-based flow (/start carries a session id); without one it falls back
// to the shared-file code flow, which is how the standalone bot process runs.
type Bot struct {
	api       *tgbotapi.BotAPI
	username  string
	confirmer Confirmer
	memory    *codestore.Memory // bot-local reuse window for issued codes
	shared    codestore.Store   // file store shared with the web process
	botTTL    time.Duration
	sharedTTL time.Duration // lifetime of codes the web process staged

	mu      sync.Mutex
	pending map[int64]string // telegram user id -> session id from /start payload
}

// New connects to Telegram. A missing token is not an error to the caller;
// it returns (nil, nil) so the rest of the process keeps running without the
// bot channel.
func New(cfg *config.Config, confirmer Confirmer, shared codestore.Store) (*Bot, error) {
	if cfg.TelegramBotToken == "" {
		slog.Warn("telegram bot token not configured, bot channel disabled")
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return &Bot{
		api:       api,
		username:  cfg.TelegramBotUsername,
		confirmer: confirmer,
		memory:    codestore.NewMemory(cfg.BotCodeTTL),
		shared:    shared,
		botTTL:    cfg.BotCodeTTL,
		sharedTTL: cfg.CodeTTL,
		pending:   make(map[int64]string),
	}, nil
}

// Username returns the bot handle for building t.me deep links.
func (b *Bot) Username() string { return b.username }

// SetConfirmer wires the verification service in after construction. The web
// process needs this because the service takes the bot as its push channel.
// Must be called before Run.
func (b *Bot) SetConfirmer(c Confirmer) { b.confirmer = c }

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	slog.Info("telegram bot polling", "bot", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		b.handleStart(msg)
	case msg.Contact != nil:
		b.handleContact(ctx, msg)
	default:
		b.offerKeyboard(msg.Chat.ID, "To receive a login code, press the button below:")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	if sessionID := msg.CommandArguments(); sessionID != "" {
		b.mu.Lock()
		b.pending[msg.From.ID] = sessionID
		b.mu.Unlock()
	}
	b.offerKeyboard(msg.Chat.ID,
		"Hi! I verify phone numbers for Wazir.\n\nPress the button below to receive your confirmation code:")
}

// handleContact is the inbound channel event: the user shared a contact.
func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	contact := msg.Contact
	if contact.UserID != msg.From.ID {
		b.reply(msg.Chat.ID, "Please share YOUR OWN phone number")
		return
	}

	phoneNumber := contact.PhoneNumber
	if len(phoneNumber) > 0 && phoneNumber[0] != '+' {
		phoneNumber = "+" + phoneNumber
	}

	b.mu.Lock()
	sessionID, hasSession := b.pending[msg.From.ID]
	b.mu.Unlock()

	if hasSession && b.confirmer != nil {
		b.confirmSession(ctx, msg, phoneNumber, sessionID)
		return
	}
	b.fileModeCode(msg, phoneNumber)
}

func (b *Bot) confirmSession(ctx context.Context, msg *tgbotapi.Message, phoneNumber, sessionID string) {
	code, err := b.confirmer.Confirm(ctx, msg.From.ID, phoneNumber, sessionID)
	switch {
	case err == nil:
		b.mu.Lock()
		delete(b.pending, msg.From.ID)
		b.mu.Unlock()
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Number received: %s\nYOUR CONFIRMATION CODE: %s\n\nEnter this code in the app to continue.",
			phoneNumber, code))
	case errors.Is(err, domain.ErrMismatch):
		b.reply(msg.Chat.ID, "This phone number does not match the one you entered in the app. Share the same number and try again.")
	case errors.Is(err, domain.ErrExpired):
		b.mu.Lock()
		delete(b.pending, msg.From.ID)
		b.mu.Unlock()
		b.reply(msg.Chat.ID, "Your verification session expired. Start over from the app.")
	default:
		b.reply(msg.Chat.ID, "Verification session not found. Start over from the app.")
	}
}

// fileModeCode serves the shared-file flow: reuse an unexpired code issued by
// the web process, otherwise generate one locally.
func (b *Bot) fileModeCode(msg *tgbotapi.Message, phoneNumber string) {
	userID := msg.From.ID

	if vc, ok := b.memory.Get(phoneNumber); ok {
		b.replyWithCode(msg.Chat.ID, phoneNumber, vc.Code, vc.IssuedAt, b.botTTL, "This is the same code issued earlier.")
		return
	}

	if b.shared != nil {
		if vc, ok := b.shared.Get(phoneNumber); ok {
			// Cache locally so repeated shares don't hit the file. The reply
			// reports the staging store's lifetime, not the cache's.
			_ = b.memory.Put(*vc)
			b.replyWithCode(msg.Chat.ID, phoneNumber, vc.Code, vc.IssuedAt, b.sharedTTL, "The code was generated when you opened the page.")
			return
		}
	}

	code, err := b.memory.Issue(phoneNumber, &userID)
	if err != nil {
		slog.Error("failed to issue bot code", "err", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.replyWithCode(msg.Chat.ID, phoneNumber, code, time.Now(), b.botTTL, "A new code was generated.")
}

// codeValiditySeconds reports how many whole seconds of the code's lifetime
// remain, floored at zero.
func codeValiditySeconds(issuedAt time.Time, ttl time.Duration, now time.Time) int {
	left := int(ttl.Seconds() - now.Sub(issuedAt).Seconds())
	if left < 0 {
		left = 0
	}
	return left
}

func (b *Bot) replyWithCode(chatID int64, phoneNumber, code string, issuedAt time.Time, ttl time.Duration, note string) {
	b.reply(chatID, fmt.Sprintf(
		"Number received: %s\nYOUR CONFIRMATION CODE: %s\n\nEnter this code in the app to log in.\nThe code is valid for another %d seconds.\n\n%s",
		phoneNumber, code, codeValiditySeconds(issuedAt, ttl, time.Now()), note))
}

// SendTo pushes text to a Telegram user directly. The bot-relay delivery
// adapter uses it when the recipient's chat id is already known.
func (b *Bot) SendTo(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		slog.Error("telegram push failed", "chat_id", chatID, "err", err)
		return fmt.Errorf("telegram send: %w", domain.ErrChannelUnavailable)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendTo(chatID, text); err != nil {
		slog.Warn("telegram reply failed", "chat_id", chatID)
	}
}

func (b *Bot) offerKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("Share my number")),
	)
	keyboard.OneTimeKeyboard = false
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("telegram keyboard send failed", "chat_id", chatID, "err", err)
	}
}
