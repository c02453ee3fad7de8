package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/scipunch/ytrelay/config"
	"github.com/scipunch/ytrelay/cursor"
	"github.com/scipunch/ytrelay/dispatcher"
	"github.com/scipunch/ytrelay/dispatcher/botapi"
	"github.com/scipunch/ytrelay/dispatcher/mtproto"
	"github.com/scipunch/ytrelay/fetcher"
	"github.com/scipunch/ytrelay/fetcher/types"
	"github.com/scipunch/ytrelay/filter"
	"github.com/scipunch/ytrelay/relay"
)

func main() {
	debug := os.Getenv("DEBUG") != ""
	slog.SetDefault(newLogger(os.Stderr, debug))

	var cfgPath string
	var dryRun bool
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.BoolVar(&dryRun, "dry-run", false, "log new posts without sending them or moving the cursor")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}

	creds, err := config.LoadCredentials(config.CredentialsPath(cfgPath), conf.Telegram.Transport, os.Getenv)
	if err != nil {
		if !dryRun || !errors.Is(err, config.ErrMissingCredentials) {
			log.Fatalf("failed to load credentials: %s", err)
		}
		slog.Warn("credentials missing, continuing because of dry run", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := fetcher.New(conf.Source)
	if err != nil {
		log.Fatalf("failed to initialize source with %s", err)
	}

	store, closeStore, err := openCursor(conf.Cursor, conf.Source.URL)
	if err != nil {
		log.Fatalf("failed to open cursor with %s", err)
	}
	defer closeStore()

	formatter, err := dispatcher.NewFormatter(conf.Telegram.Template)
	if err != nil {
		log.Fatalf("failed to initialize message template with %s", err)
	}
	// Surface template mistakes before anything is fetched
	if _, err := formatter.Render(types.Post{ID: "sample", Text: "sample"}); err != nil {
		log.Fatalf("message template does not render a post: %s", err)
	}

	filterPipeline, err := filter.NewFilterPipeline(conf.Filters, conf.Delivery.FilterNames)
	if err != nil {
		log.Fatalf("failed to initialize filters: %s", err)
	}
	if len(conf.Delivery.FilterNames) > 0 {
		slog.Info("initialized filters", "names", conf.Delivery.FilterNames)
	}

	retry := dispatcher.DefaultRetryConfig()
	retry.MaxRetries = conf.Telegram.MaxRetries
	d := dispatcher.New(formatter, dispatcher.Options{
		LinkPreview:   conf.Telegram.LinkPreview,
		CaptionLimit:  conf.Telegram.CaptionLimit,
		TextLimit:     conf.Telegram.TextLimit,
		RatePerMinute: conf.Telegram.RatePerMinute,
		Retry:         retry,
		Filter:        filterPipeline,
	})

	var transport dispatcher.Transport
	if !dryRun {
		transport, err = newTransport(conf.Telegram, creds, debug)
		if err != nil {
			log.Fatalf("failed to initialize telegram transport with %s", err)
		}
	}

	r := relay.New(src, store, d, transport, relay.Options{
		DryRun:   dryRun,
		FirstRun: conf.Delivery.FirstRun,
	})
	result, err := r.Run(ctx)
	if code := exitCode(ctx.Err() != nil, result, err); code != 0 {
		closeStore()
		os.Exit(code)
	}
}

// exitCode logs how a run ended. An interrupted run exits cleanly unless the
// progress it made could not be recorded.
func exitCode(interrupted bool, result relay.Result, err error) int {
	switch {
	case interrupted && (err == nil || !errors.Is(err, relay.ErrCursorNotSaved)):
		slog.Info("interrupted, exiting", "error", err, "delivered", result.Delivered, "cursor", result.CursorAfter)
		return 0
	case err != nil:
		slog.Error("relay run failed", "error", err, "delivered", result.Delivered, "cursor", result.CursorAfter)
		return 1
	}
	return 0
}

// newLogger writes human readable logs to a terminal and JSON anywhere else
func newLogger(w *os.File, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(w.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func openCursor(conf config.CursorConfig, feed string) (cursor.Store, func(), error) {
	switch conf.Backend {
	case config.SQLiteCursor:
		s, err := cursor.NewSQLiteStore(conf.Path, feed)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("failed to close cursor database", "error", err)
			}
		}, nil
	default:
		return cursor.NewFileStore(conf.Path), func() {}, nil
	}
}

func newTransport(conf config.TelegramConfig, creds config.Credentials, debug bool) (dispatcher.Transport, error) {
	switch conf.Transport {
	case config.MTProto:
		t, err := mtproto.New(mtproto.Options{
			AppID:       creds.MTProto.AppID,
			AppHash:     creds.MTProto.AppHash,
			BotToken:    creds.Bot.Token,
			Channel:     creds.Bot.ChannelID,
			SessionPath: conf.SessionPath,
			Debug:       debug,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		c, err := botapi.New(creds.Bot.Token, creds.Bot.ChannelID, conf.APIEndpoint)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
