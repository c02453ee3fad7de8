// Package botapi sends messages through the Telegram Bot HTTP API.
package botapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scipunch/ytrelay/dispatcher"
)

const defaultTimeout = 30 * time.Second

// Client posts to a single channel
type Client struct {
	bot  *tgbotapi.BotAPI
	chat tgbotapi.BaseChat
}

// New authenticates the bot and binds it to channel, a numeric chat id or @username.
// An empty endpoint means api.telegram.org; otherwise it is a format string taking
// the token and the method, like tgbotapi.APIEndpoint.
func New(token, channel, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	chat, err := parseChat(channel)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: defaultTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", convertError(err))
	}
	slog.Info("telegram bot authorized", "as", bot.Self.UserName, "channel", channel)

	return &Client{bot: bot, chat: chat}, nil
}

// Run calls fn with the client itself, the Bot API keeps no session
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, s dispatcher.Sender) error) error {
	return fn(ctx, c)
}

// SendText calls sendMessage
func (c *Client) SendText(ctx context.Context, text string, linkPreview bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.MessageConfig{
		BaseChat:              c.chat,
		Text:                  text,
		DisableWebPagePreview: !linkPreview,
	}
	if _, err := c.bot.Send(msg); err != nil {
		return convertError(err)
	}
	return nil
}

// SendPhoto calls sendPhoto with the image passed by URL, Telegram downloads it
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: c.chat,
			File:     tgbotapi.FileURL(photoURL),
		},
		Caption: caption,
	}
	if _, err := c.bot.Send(photo); err != nil {
		return convertError(err)
	}
	return nil
}

// parseChat accepts -1001234567890, 1234567890, @channel and channel
func parseChat(channel string) (tgbotapi.BaseChat, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return tgbotapi.BaseChat{}, errors.New("empty channel id")
	}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.BaseChat{ChatID: id}, nil
	}
	if strings.ContainsAny(channel, " /") {
		return tgbotapi.BaseChat{}, fmt.Errorf("invalid channel id format: %s", channel)
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return tgbotapi.BaseChat{ChannelUsername: channel}, nil
}

// convertError maps Bot API rejections onto dispatcher.APIError, other errors
// (transport failures) pass through untouched
func convertError(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return &dispatcher.APIError{
			Code:        tgErr.Code,
			Description: tgErr.Message,
			RetryAfter:  time.Duration(tgErr.RetryAfter) * time.Second,
		}
	}
	return err
}
