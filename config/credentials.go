package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const credFileName = "creds.toml"

// Environment variables carrying credentials. They take precedence over creds.toml.
const (
	EnvBotToken  = "BOT_TOKEN"
	EnvChannelID = "CHANNEL_ID"
	EnvAppID     = "TELEGRAM_APP_ID"
	EnvAppHash   = "TELEGRAM_APP_HASH"
)

// ErrMissingCredentials is returned when a required credential is not set anywhere
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials holds all application credentials
type Credentials struct {
	Bot     BotCredentials     `toml:"bot"`
	MTProto MTProtoCredentials `toml:"mtproto"`
}

// BotCredentials identifies the bot and the channel it posts to
type BotCredentials struct {
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"` // Numeric chat id or @username
}

// IsValid checks if bot credentials are fully populated
func (bc BotCredentials) IsValid() bool {
	return bc.Token != "" && bc.ChannelID != ""
}

// MTProtoCredentials holds the Telegram application pair needed by the MTProto transport
type MTProtoCredentials struct {
	AppID   int    `toml:"app_id"`
	AppHash string `toml:"app_hash"`
}

// IsValid checks if the application pair is fully populated
func (mc MTProtoCredentials) IsValid() bool {
	return mc.AppID != 0 && mc.AppHash != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// LoadCredentials reads the optional credentials file and overlays the environment.
// The bot token and channel are required; the MTProto pair only when mtproto is used.
func LoadCredentials(path string, transport TransportKind, getenv func(string) string) (Credentials, error) {
	creds, err := ReadCredentials(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return creds, err
	}

	if v := strings.TrimSpace(getenv(EnvBotToken)); v != "" {
		creds.Bot.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvChannelID)); v != "" {
		creds.Bot.ChannelID = v
	}
	if v := strings.TrimSpace(getenv(EnvAppID)); v != "" {
		appID, err := strconv.Atoi(v)
		if err != nil {
			return creds, fmt.Errorf("invalid %s '%s': %w", EnvAppID, v, err)
		}
		creds.MTProto.AppID = appID
	}
	if v := strings.TrimSpace(getenv(EnvAppHash)); v != "" {
		creds.MTProto.AppHash = v
	}

	if !creds.Bot.IsValid() {
		return creds, fmt.Errorf("%w: %s and %s are required", ErrMissingCredentials, EnvBotToken, EnvChannelID)
	}
	if transport == MTProto && !creds.MTProto.IsValid() {
		return creds, fmt.Errorf("%w: %s and %s are required by the mtproto transport", ErrMissingCredentials, EnvAppID, EnvAppHash)
	}
	return creds, nil
}

// CredentialsPath returns the credentials file that lives next to the config
func CredentialsPath(cfgPath string) string {
	return filepath.Join(filepath.Dir(cfgPath), credFileName)
}
