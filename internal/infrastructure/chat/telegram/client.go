package telegram

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"prmonitor/internal/domain"
)

// Client wraps the Telegram Bot API behind the tracker's Messenger
// contract. Messages are sent as HTML with link previews disabled, the
// same shape the tracked-message renderer produces.
type Client struct {
	b *bot.Bot
}

// New builds the bot with message and reaction updates enabled. The
// handler receives every update; signal normalization happens there,
// not in this adapter.
func New(token string, handler bot.HandlerFunc) (*Client, error) {
	b, err := bot.New(token,
		bot.WithDefaultHandler(handler),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message", "message_reaction"}),
	)
	if err != nil {
		return nil, err
	}
	return &Client{b: b}, nil
}

// Start long-polls for updates until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.b.Start(ctx)
}

func (c *Client) Send(ctx context.Context, chatID int64, text string) (int64, error) {
	msg, err := c.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		return 0, err
	}
	return int64(msg.ID), nil
}

func (c *Client) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	_, err := c.b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:             chatID,
		MessageID:          int(messageID),
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	return c.mapGone(err)
}

func (c *Client) Delete(ctx context.Context, chatID, messageID int64) error {
	_, err := c.b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: int(messageID),
	})
	return c.mapGone(err)
}

// mapGone turns "message is already gone" API answers into the domain
// error the engine treats as a silent purge.
func (c *Client) mapGone(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "message to edit not found") ||
		strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be edited") {
		return &domain.DomainError{
			Code:       domain.ErrorCodeMessageGone,
			Message:    "chat message no longer exists",
			HTTPStatus: http.StatusGone,
		}
	}
	return err
}
