// Package dispatcher relays posts to a Telegram channel, oldest first, and reports
// exactly which posts were handled so the cursor never skips an undelivered one.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/scipunch/ytrelay/fetcher/types"
)

// Filter decides whether a post is relayed at all
type Filter interface {
	ShouldInclude(post types.Post) (bool, string)
}

// Options tunes message shaping and failure handling
type Options struct {
	LinkPreview   bool
	CaptionLimit  int // Telegram allows 1024 for media captions
	TextLimit     int // and 4096 for text messages
	RatePerMinute int // Sends per minute, <= 0 disables pacing
	Retry         RetryConfig
	Filter        Filter
}

// Report describes the outcome of one Deliver call
type Report struct {
	Handled   []string // Identifiers of delivered, skipped and filtered posts, in order
	Delivered int
	Skipped   int // Rejected permanently, will not be retried
	Filtered  int
	Failed    string // Identifier of the post that stopped the batch
	Err       error  // Transient or channel-level failure that stopped the batch
}

// LastHandled returns the newest handled identifier, the value the cursor may advance to
func (r Report) LastHandled() (string, bool) {
	if len(r.Handled) == 0 {
		return "", false
	}
	return r.Handled[len(r.Handled)-1], true
}

type Dispatcher struct {
	formatter *Formatter
	opts      Options
	limiter   *rate.Limiter
	log       *slog.Logger
}

// New creates a dispatcher rendering messages with formatter
func New(formatter *Formatter, opts Options) *Dispatcher {
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RatePerMinute))
	}
	return &Dispatcher{
		formatter: formatter,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		log:       slog.With("component", "dispatcher"),
	}
}

// Deliver sends posts in the given order, which must be oldest first.
//
// A post rejected permanently is skipped and counts as handled. A post that still
// fails transiently after retries, or that is refused because of the channel itself,
// stops the batch: it and every later post stay unhandled so the next run picks
// them up again.
func (d *Dispatcher) Deliver(ctx context.Context, s Sender, posts []types.Post) Report {
	var report Report
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			report.Failed, report.Err = post.ID, err
			break
		}

		if d.opts.Filter != nil {
			if ok, reason := d.opts.Filter.ShouldInclude(post); !ok {
				d.log.Info("post filtered out", "id", post.ID, "reason", reason)
				report.Filtered++
				report.Handled = append(report.Handled, post.ID)
				continue
			}
		}

		err := d.deliver(ctx, s, post)
		switch {
		case err == nil:
			d.log.Info("post delivered", "id", post.ID, "images", len(post.Images))
			report.Delivered++
			report.Handled = append(report.Handled, post.ID)
		case stopsBatch(ctx, err):
			d.log.Error("post delivery failed, stopping batch", "id", post.ID, "error", err)
			report.Failed = post.ID
			report.Err = fmt.Errorf("post %s: %w", post.ID, err)
		default:
			d.log.Error("post rejected, skipping", "id", post.ID, "error", err)
			report.Skipped++
			report.Handled = append(report.Handled, post.ID)
		}
		if report.Err != nil {
			break
		}
	}
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, s Sender, post types.Post) error {
	text, err := d.formatter.Render(post)
	if err != nil {
		return permanentError{err: err}
	}

	preview := d.opts.LinkPreview
	if post.HasImages() {
		photo := post.Images[0]
		caption := Truncate(text, d.opts.CaptionLimit)
		err := d.send(ctx, "sendPhoto", func(ctx context.Context) error {
			return s.SendPhoto(ctx, photo, caption)
		})
		if err == nil || stopsBatch(ctx, err) {
			return err
		}
		d.log.Warn("photo rejected, falling back to text", "id", post.ID, "photo", photo, "error", err)
		// Let the preview render the image instead
		text = text + "\n\n" + photo
		preview = true
	}

	if text == "" {
		return permanent("post %s renders to an empty message", post.ID)
	}
	body := Truncate(text, d.opts.TextLimit)
	return d.send(ctx, "sendMessage", func(ctx context.Context) error {
		return s.SendText(ctx, body, preview)
	})
}

func (d *Dispatcher) send(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return withRetry(ctx, d.log, d.opts.Retry, op, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// stopsBatch reports whether err must leave the post unhandled and end the batch
func stopsBatch(ctx context.Context, err error) bool {
	if ctx.Err() != nil || isRetryable(err) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ChannelLevel()
}
