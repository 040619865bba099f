// Package telegram adapts the Bot API client to the transport and
// notification interfaces the pipeline is written against.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mzolotarev/filekeeper/internal/logging"
	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/mirror"
)

// Client wraps the Bot API connection. It implements mirror.Transport and
// batch.Notifier. The underlying library is not context-aware; contexts are
// accepted for interface symmetry and honored before each call.
type Client struct {
	api *tgbotapi.BotAPI
	log logging.Logger
}

// New authenticates against the Bot API.
func New(token string, debug bool, log logging.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot auth: %w", err)
	}
	api.Debug = debug
	return &Client{api: api, log: log}, nil
}

// Username returns the authenticated bot account name.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Probe verifies the bot can see the broadcast channel. Called at startup:
// if replication can never succeed, no uploads should be accepted.
func (c *Client) Probe(ctx context.Context, channelID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: channelID},
	})
	if err != nil {
		return fmt.Errorf("channel probe: %w", err)
	}
	return nil
}

// RegisterCommands publishes the bot command menu. Failure is non-fatal.
func (c *Client) RegisterCommands(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Show help"},
		tgbotapi.BotCommand{Command: "list", Description: "List your stored files"},
		tgbotapi.BotCommand{Command: "update", Description: "Change a file note"},
		tgbotapi.BotCommand{Command: "delete", Description: "Delete a stored file"},
	)
	_, err := c.api.Request(cfg)
	return err
}

// Updates starts long-polling and returns the update stream. The stream is
// closed when StopReceiving is called.
func (c *Client) Updates(pollTimeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	return c.api.GetUpdatesChan(u)
}

// StopReceiving shuts down the long-poll loop.
func (c *Client) StopReceiving() {
	c.api.StopReceivingUpdates()
}

// SendGroup posts groupable items as one multi-item message.
func (c *Client) SendGroup(ctx context.Context, chatID int64, items []mirror.Captioned) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	group := make([]interface{}, 0, len(items))
	for _, it := range items {
		switch it.Item.Kind {
		case media.KindVideo:
			v := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(it.Item.FileID))
			v.Caption = it.Caption
			group = append(group, v)
		default:
			p := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(it.Item.FileID))
			p.Caption = it.Caption
			group = append(group, p)
		}
	}
	msgs, err := c.api.SendMediaGroup(tgbotapi.MediaGroupConfig{ChatID: chatID, Media: group})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.MessageID)
	}
	return ids, nil
}

// SendSingle posts one item as a standalone message.
func (c *Client) SendSingle(ctx context.Context, chatID int64, item media.Item, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var msg tgbotapi.Message
	var err error
	switch item.Kind {
	case media.KindVideo:
		cfg := tgbotapi.NewVideo(chatID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		msg, err = c.api.Send(cfg)
	case media.KindDocument:
		cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		msg, err = c.api.Send(cfg)
	default:
		cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		msg, err = c.api.Send(cfg)
	}
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditCaption rewrites the caption of a previously sent message.
func (c *Client) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Send(tgbotapi.NewEditMessageCaption(chatID, messageID, caption))
	return err
}

// DeleteMessage removes a previously sent message. An already-deleted
// message is tolerated.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}

// Notify sends a plain-text status message to a chat. Delivery problems are
// logged, not surfaced: a lost notice must not fail the operation it reports on.
func (c *Client) Notify(ctx context.Context, chatID int64, text string) {
	if err := ctx.Err(); err != nil {
		return
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.log.Warn(ctx, "notification send failed", "chat", chatID, "error", err)
	}
}
