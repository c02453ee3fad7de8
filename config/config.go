package config

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type SourceKind = string

var (
	Community = SourceKind("community")
	RSS       = SourceKind("rss")
)

type LoaderKind = string

var (
	HTTPLoader    = LoaderKind("http")
	BrowserLoader = LoaderKind("browser")
)

type CursorBackend = string

var (
	FileCursor   = CursorBackend("file")
	SQLiteCursor = CursorBackend("sqlite")
)

type TransportKind = string

var (
	BotAPI  = TransportKind("botapi")
	MTProto = TransportKind("mtproto")
)

type FirstRunPolicy = string

var (
	// DeliverAll sends the whole fetched window when no cursor exists yet
	DeliverAll = FirstRunPolicy("deliver")
	// MarkOnly records the newest post without sending anything
	MarkOnly = FirstRunPolicy("mark")
)

const (
	baseCfgPath = "ytrelay/config.toml"

	DefaultFeedURL  = "https://www.youtube.com/@ClashOfClans/community"
	DefaultTemplate = "📢 New Clash of Clans Community Post\n\n{{.Text}}"
)

type Config struct {
	Source   SourceConfig      `toml:"source"`
	Cursor   CursorConfig      `toml:"cursor"`
	Telegram TelegramConfig    `toml:"telegram"`
	Delivery DeliveryConfig    `toml:"delivery"`
	Filters  map[string]Filter `toml:"filters"` // Named filters that can be referenced by delivery
}

type SourceConfig struct {
	Kind           SourceKind `toml:"kind"`
	URL            string     `toml:"url"`
	UserAgent      string     `toml:"user_agent"`
	Loader         LoaderKind `toml:"loader"`
	MaxPosts       int        `toml:"max_posts"` // Size of the fetched window, older posts are unreachable
	TimeoutSeconds int        `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type CursorConfig struct {
	Backend CursorBackend `toml:"backend"`
	Path    string        `toml:"path"` // Text file for "file", database for "sqlite"
}

type TelegramConfig struct {
	Transport     TransportKind `toml:"transport"`
	APIEndpoint   string        `toml:"api_endpoint"` // Bot API endpoint format, empty for api.telegram.org
	LinkPreview   bool          `toml:"link_preview"`
	CaptionLimit  int           `toml:"caption_limit"`
	TextLimit     int           `toml:"text_limit"`
	Template      string        `toml:"template"` // text/template over the post fields
	RatePerMinute int           `toml:"rate_per_minute"`
	MaxRetries    int           `toml:"max_retries"`
	SessionPath   string        `toml:"session_path"` // MTProto session storage
}

type DeliveryConfig struct {
	FirstRun    FirstRunPolicy `toml:"first_run"`
	FilterNames []string       `toml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for skipping posts
type Filter struct {
	MinLength       int      `toml:"min_length"`       // Minimum character count (0 = no limit)
	MinWords        int      `toml:"min_words"`        // Minimum word count (0 = no limit)
	ExcludePatterns []string `toml:"exclude_patterns"` // Regex patterns to exclude
	RequireImages   bool     `toml:"require_images"`   // Skip posts without attachments
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

func Default() Config {
	var dataBase = path.Join(os.Getenv("HOME"), ".local/share/ytrelay")
	return Config{
		Source: SourceConfig{
			Kind:           Community,
			URL:            DefaultFeedURL,
			UserAgent:      "Mozilla/5.0",
			Loader:         HTTPLoader,
			MaxPosts:       10,
			TimeoutSeconds: 30,
		},
		Cursor: CursorConfig{
			Backend: FileCursor,
			Path:    path.Join(dataBase, "last_post_id.txt"),
		},
		Telegram: TelegramConfig{
			Transport:     BotAPI,
			LinkPreview:   true,
			CaptionLimit:  1024,
			TextLimit:     4096,
			Template:      DefaultTemplate,
			RatePerMinute: 20,
			MaxRetries:    2,
			SessionPath:   path.Join(dataBase, "telegram-session.json"),
		},
		Delivery: DeliveryConfig{
			FirstRun: DeliverAll,
		},
	}
}

// Validate rejects unknown enum values and references to undefined filters
func (c Config) Validate() error {
	var problems []string
	switch c.Source.Kind {
	case Community, RSS:
	default:
		problems = append(problems, fmt.Sprintf("unknown source kind '%s'", c.Source.Kind))
	}
	switch c.Source.Loader {
	case HTTPLoader, BrowserLoader:
	default:
		problems = append(problems, fmt.Sprintf("unknown loader '%s'", c.Source.Loader))
	}
	if c.Source.URL == "" {
		problems = append(problems, "source url is empty")
	}
	switch c.Cursor.Backend {
	case FileCursor, SQLiteCursor:
	default:
		problems = append(problems, fmt.Sprintf("unknown cursor backend '%s'", c.Cursor.Backend))
	}
	if c.Cursor.Path == "" {
		problems = append(problems, "cursor path is empty")
	}
	switch c.Telegram.Transport {
	case BotAPI, MTProto:
	default:
		problems = append(problems, fmt.Sprintf("unknown telegram transport '%s'", c.Telegram.Transport))
	}
	switch c.Delivery.FirstRun {
	case DeliverAll, MarkOnly:
	default:
		problems = append(problems, fmt.Sprintf("unknown first_run policy '%s'", c.Delivery.FirstRun))
	}
	for _, name := range c.Delivery.FilterNames {
		if _, ok := c.Filters[name]; !ok {
			problems = append(problems, fmt.Sprintf("filter '%s' is not defined", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config fie")
}
