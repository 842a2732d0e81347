package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/config"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/membership"
	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/repository"
)

// handlerTimeout bounds the processing of one inbound update, so a hung
// outbound call aborts only its own event.
const handlerTimeout = 90 * time.Second

// Bot wraps the telebot instance. It routes inbound messages into the
// membership service and implements the service's chat collaborator
// (member status, notifications, invite minting) on top of telebot.
type Bot struct {
	tb      *tele.Bot
	cfg     *config.Config
	repo    *repository.MemberRepository
	service *membership.Service
	logger  *zap.Logger
}

// New creates and configures a new Bot instance. The membership service is
// built here because the bot itself is its chat collaborator.
func New(cfg *config.Config, repo *repository.MemberRepository, payments membership.Payments, dedup membership.AttemptDeduper, logger *zap.Logger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := &Bot{
		tb:     tb,
		cfg:    cfg,
		repo:   repo,
		logger: logger,
	}
	b.service = membership.NewService(repo, b, payments, dedup, cfg.Payment.ZarinPal.Amount, logger)

	b.registerHandlers()

	return b, nil
}

// Service exposes the membership service for the callback listener.
func (b *Bot) Service() *membership.Service {
	return b.service
}

// Start begins long polling. Telegram requires the webhook to be removed
// before polling can deliver updates.
func (b *Bot) Start() {
	if err := b.tb.RemoveWebhook(true); err != nil {
		b.logger.Warn("Failed to remove webhook before long polling", zap.Error(err))
	}
	b.logger.Info("Starting Telegram bot", zap.String("mode", "polling"))
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleMessage)
	b.tb.Handle(tele.OnText, b.handleMessage)
}

// handleMessage funnels every inbound message into the state machine.
func (b *Bot) handleMessage(c tele.Context) error {
	userID := c.Sender().ID
	b.logger.Info("received message", zap.Int64("user_id", userID))

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	return b.service.OnUserMessage(ctx, userID)
}

// --- membership.Chat implementation ---

func (b *Bot) channel() tele.Recipient {
	return tele.ChatID(b.cfg.Bot.ChannelID)
}

// MemberStatus asks Telegram for the user's standing in the channel.
// Telegram answers with an error for users who never touched the channel;
// the caller treats that the same as an inactive status.
func (b *Bot) MemberStatus(ctx context.Context, userID int64) (membership.Status, error) {
	member, err := b.tb.ChatMemberOf(b.channel(), tele.ChatID(userID))
	if err != nil {
		return membership.StatusNone, fmt.Errorf("get chat member %d: %w", userID, err)
	}

	switch member.Role {
	case tele.Creator:
		return membership.StatusOwner, nil
	case tele.Administrator:
		return membership.StatusAdmin, nil
	case tele.Member:
		return membership.StatusMember, nil
	default:
		return membership.StatusNone, nil
	}
}

// Send sends a plain text message to the user.
func (b *Bot) Send(ctx context.Context, userID int64, text string) error {
	_, err := b.tb.Send(tele.ChatID(userID), text)
	return err
}

// SendWithButton sends a message with a single inline URL button.
func (b *Bot) SendWithButton(ctx context.Context, userID int64, text, label, url string) error {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.URL(label, url)))
	_, err := b.tb.Send(tele.ChatID(userID), text, markup)
	return err
}

// CreateInvite mints a single-join invite link for the channel, valid until
// expireAt.
func (b *Bot) CreateInvite(ctx context.Context, expireAt time.Time) (string, error) {
	link, err := b.tb.CreateInviteLink(b.channel(), &tele.ChatInviteLink{
		ExpireUnixtime: expireAt.Unix(),
		MemberLimit:    1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	return link.InviteLink, nil
}
