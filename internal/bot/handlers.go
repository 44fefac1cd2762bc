package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoblog/internal/runner"
)

const (
	cmdCampaigns = "campaigns"
	cmdInfo      = "info"
	cmdRun       = "run"
)

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/campaigns - list all campaigns
/info <id> - campaign details
/run <id> - run a campaign now, ignoring its interval`)
}

func (b *Bot) handleCampaigns(ctx context.Context, chatID int64) {
	campaigns, err := b.store.ListCampaigns(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatCampaignList(campaigns, b.now()))
}

func (b *Bot) handleInfo(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /info <id>")
		return
	}

	c, err := b.store.GetCampaign(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Campaign #%d not found.", id))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatCampaignInfo(c, b.now()))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Run now", fmt.Sprintf("%s:%d", cmdRun, id)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send campaign info", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /run <id>")
		return
	}

	c, err := b.store.GetCampaign(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Campaign #%d not found.", id))
		return
	}

	b.reply(chatID, fmt.Sprintf("Running #%d \"%s\"...", c.ID, c.Name))

	// The run outlives the update; the result is sent when it finishes.
	b.runs.Go(func() {
		report, err := b.trigger.RunNow(ctx, c.ID)
		switch {
		case errors.Is(err, runner.ErrAlreadyRunning):
			b.reply(chatID, fmt.Sprintf("Campaign #%d is already running.", c.ID))
		case err != nil:
			b.reply(chatID, fmt.Sprintf("Run of #%d failed: %v", c.ID, err))
		default:
			b.reply(chatID, FormatRunReport(c, report))
		}
	})
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, idStr, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}
	if _, err := strconv.ParseInt(idStr, 10, 64); err != nil {
		return
	}

	b.log.Info("callback",
		"action", action,
		"id", idStr,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdInfo:
		b.handleInfo(ctx, chatID, idStr)
	case cmdRun:
		b.handleRun(ctx, chatID, idStr)
	}
}
