// Package mtproto sends messages as a bot over MTProto using gotd.
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/tgerr"

	"github.com/scipunch/ytrelay/dispatcher"
)

// Options configures the MTProto session
type Options struct {
	AppID       int
	AppHash     string
	BotToken    string
	Channel     string // Public @username, MTProto cannot address a bare numeric id without its access hash
	SessionPath string
	Debug       bool // Surface gotd internal logs
}

// Transport opens one MTProto connection per Run
type Transport struct {
	opts    Options
	channel string
}

var usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// New validates opts, no connection is made until Run
func New(opts Options) (*Transport, error) {
	if opts.AppID == 0 || opts.AppHash == "" {
		return nil, errors.New("mtproto transport requires app id and app hash")
	}
	if opts.BotToken == "" {
		return nil, errors.New("mtproto transport requires a bot token")
	}
	channel, err := parseChannel(opts.Channel)
	if err != nil {
		return nil, err
	}
	return &Transport{opts: opts, channel: channel}, nil
}

// Run connects, signs the bot in if the stored session is not authorized and calls fn
func (t *Transport) Run(ctx context.Context, fn func(ctx context.Context, s dispatcher.Sender) error) error {
	if err := os.MkdirAll(filepath.Dir(t.opts.SessionPath), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		slog.Warn("telegram rate limit", "retry_after", wait.Duration)
	})

	client := telegram.NewClient(t.opts.AppID, t.opts.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: t.opts.SessionPath},
		Logger:         newLogger(t.opts.Debug),
		Middlewares:    []telegram.Middleware{waiter},
	})

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get auth status: %w", err)
			}
			if !status.Authorized {
				slog.Info("signing in bot")
				if _, err := client.Auth().Bot(ctx, t.opts.BotToken); err != nil {
					return fmt.Errorf("bot authentication failed: %w", convertError(err))
				}
			}

			self, err := client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to get self info: %w", err)
			}
			slog.Info("telegram authenticated", "as", self.Username, "channel", t.channel)

			return fn(ctx, &sender{
				api:     message.NewSender(client.API()),
				channel: t.channel,
			})
		})
	})
}

type sender struct {
	api     *message.Sender
	channel string
}

func (s *sender) SendText(ctx context.Context, text string, linkPreview bool) error {
	b := s.api.Resolve(s.channel)
	var err error
	if linkPreview {
		_, err = b.Text(ctx, text)
	} else {
		_, err = b.NoWebpage().Text(ctx, text)
	}
	return convertError(err)
}

func (s *sender) SendPhoto(ctx context.Context, photoURL, caption string) error {
	_, err := s.api.Resolve(s.channel).Media(ctx, message.PhotoExternal(photoURL, styling.Plain(caption)))
	return convertError(err)
}

// parseChannel normalizes @name, name and t.me/name into @name
func parseChannel(channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "https://")
	channel = strings.TrimPrefix(channel, "t.me/")
	channel = strings.TrimPrefix(channel, "@")
	if !usernameRe.MatchString(channel) {
		return "", fmt.Errorf("mtproto transport needs a public channel username, got %q", channel)
	}
	return "@" + channel, nil
}

// convertError maps RPC errors onto dispatcher.APIError. Flood waits become 429
// so they are retried like their Bot API counterpart.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	rpcErr, ok := tgerr.As(err)
	if !ok {
		return err
	}
	apiErr := &dispatcher.APIError{Code: rpcErr.Code, Description: rpcErr.Message}
	if d, ok := tgerr.AsFloodWait(err); ok {
		apiErr.Code = 429
		apiErr.RetryAfter = d
	} else if rpcErr.Code == 420 {
		apiErr.Code = 429
		apiErr.RetryAfter = time.Duration(rpcErr.Argument) * time.Second
	}
	return apiErr
}

func newLogger(debug bool) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
