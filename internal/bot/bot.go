// Package bot exposes campaigns over Telegram: listing, on-demand runs and
// notifications about published posts.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoblog/internal/config"
	"autoblog/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CampaignStore reads campaign configuration.
type CampaignStore interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
}

// Trigger runs a campaign on demand.
type Trigger interface {
	RunNow(ctx context.Context, campaignID int64) (*model.RunReport, error)
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(ctx context.Context, campaignID int64) (*model.RunReport, error)

// RunNow calls f.
func (f TriggerFunc) RunNow(ctx context.Context, campaignID int64) (*model.RunReport, error) {
	return f(ctx, campaignID)
}

// Bot is the Telegram bot that handles user commands and sends notifications.
type Bot struct {
	api     telegramAPI
	store   CampaignStore
	trigger Trigger
	cfg     *config.Config
	now     func() time.Time
	log     *slog.Logger

	// runs tracks on-demand runs started from chat.
	runs sync.WaitGroup
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store CampaignStore, trigger Trigger, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		store:   store,
		trigger: trigger,
		cfg:     cfg,
		now:     time.Now,
		log:     log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.runs.Wait()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// NotifyPublished announces a published post in the configured chat.
// It does nothing when no chat is configured.
func (b *Bot) NotifyPublished(_ context.Context, c *model.Campaign, p *model.Post, postID string) {
	if b.cfg.TelegramChatID == 0 {
		return
	}
	b.SendMessage(b.cfg.TelegramChatID, FormatPublished(c, p, postID))
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start", "help":
		b.handleHelp(chatID)
	case cmdCampaigns, "list":
		b.handleCampaigns(ctx, chatID)
	case cmdInfo:
		b.handleInfo(ctx, chatID, args)
	case cmdRun:
		b.handleRun(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
