package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// Sender is the part of tgbotapi.BotAPI the alerter uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config contains alert bot configuration
type Config struct {
	Token       string
	ChatIDs     []int64
	HTTPTimeout time.Duration
}

// Alerter notifies operator chats about runs that aborted
type Alerter struct {
	api         Sender
	chatIDs     []int64
	rateLimiter *rate.Limiter
	log         *logger.Logger
}

// NewAlerter connects to the Bot API with token
func NewAlerter(cfg Config, log *logger.Logger) (*Alerter, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	return NewAlerterWithSender(api, cfg.ChatIDs, log), nil
}

// NewAlerterWithSender builds an alerter on an existing sender
func NewAlerterWithSender(api Sender, chatIDs []int64, log *logger.Logger) *Alerter {
	if log == nil {
		log = logger.Nop()
	}
	return &Alerter{
		api:         api,
		chatIDs:     chatIDs,
		rateLimiter: rate.NewLimiter(rate.Limit(1), 3), // Telegram allows ~1 msg/s per chat
		log:         log.With("component", "telegram_alerter"),
	}
}

// AlertRunFailed sends the report summary to every configured chat.
// Delivery errors are collected; one unreachable chat does not stop the rest.
func (a *Alerter) AlertRunFailed(ctx context.Context, report *calendar.RunReport) error {
	text := FormatRunFailure(report)

	var errs errors.MultiError
	for _, chatID := range a.chatIDs {
		if err := a.rateLimiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter error")
		}

		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := a.api.Send(msg); err != nil {
			a.log.Errorw("Failed to send alert", "chat_id", chatID, "job", report.Job, "error", err)
			errs.Add(errors.Wrapf(err, "send alert to chat %d", chatID))
		}
	}

	return errs.ToError()
}

// FormatRunFailure renders a report as a short HTML message
func FormatRunFailure(report *calendar.RunReport) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeHTML, s) }

	var b strings.Builder
	fmt.Fprintf(&b, "<b>⚠️ Calendar sync failed: %s</b>\n", esc(report.Job))
	fmt.Fprintf(&b, "Kind: %s\n", esc(report.Kind.String()))
	fmt.Fprintf(&b, "Window: %s\n", esc(report.Window.String()))
	if report.SourceUsed != "" {
		fmt.Fprintf(&b, "Source: %s\n", esc(report.SourceUsed))
	}
	fmt.Fprintf(&b, "Processed: %s, inserted: %s, errors: %s\n",
		humanize.Comma(int64(report.Processed)),
		humanize.Comma(int64(report.Inserted)),
		humanize.Comma(int64(report.Errors)),
	)
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", humanize.Time(report.StartedAt))
	}
	for _, tr := range report.Transitions {
		fmt.Fprintf(&b, "• batch %d: %s → %s (%s)\n", tr.Batch, esc(tr.From), esc(tr.To), esc(tr.Reason))
	}
	if report.Error != "" {
		fmt.Fprintf(&b, "<code>%s</code>\n", esc(report.Error))
	}
	fmt.Fprintf(&b, "Run: <code>%s</code>", esc(report.RunID))

	return b.String()
}
