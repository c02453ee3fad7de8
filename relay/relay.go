// Package relay runs one fetch, diff and deliver pass over a feed.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scipunch/ytrelay/config"
	"github.com/scipunch/ytrelay/cursor"
	"github.com/scipunch/ytrelay/delta"
	"github.com/scipunch/ytrelay/dispatcher"
	"github.com/scipunch/ytrelay/fetcher"
	"github.com/scipunch/ytrelay/fetcher/types"
)

// ErrCursorNotSaved marks a run whose progress could not be recorded.
// The next run will relay the same posts again.
var ErrCursorNotSaved = errors.New("cursor not saved")

// Options changes what a run is allowed to do
type Options struct {
	DryRun   bool                  // Log new posts, send nothing, leave the cursor alone
	FirstRun config.FirstRunPolicy // What to do when no cursor exists yet
}

// Result summarizes one run
type Result struct {
	Fetched      int
	New          int
	Delivered    int
	Skipped      int
	Filtered     int
	CursorBefore string
	CursorAfter  string // Equal to CursorBefore when nothing was written
	Err          error  // Transient or channel-level failure that ended the batch early
}

// Relay wires a source, a cursor and a delivery channel together
type Relay struct {
	fetcher    types.PostFetcher
	store      cursor.Store
	dispatcher *dispatcher.Dispatcher
	transport  dispatcher.Transport
	opts       Options
	log        *slog.Logger
}

// New creates a relay. transport may be nil in dry-run mode.
func New(f types.PostFetcher, store cursor.Store, d *dispatcher.Dispatcher, transport dispatcher.Transport, opts Options) *Relay {
	return &Relay{
		fetcher:    f,
		store:      store,
		dispatcher: d,
		transport:  transport,
		opts:       opts,
		log:        slog.With("component", "relay"),
	}
}

// Run performs a single pass. The cursor is written at most once, at the end,
// with the newest post that was delivered, skipped or filtered.
func (r *Relay) Run(ctx context.Context) (Result, error) {
	var result Result

	last, ok, err := r.store.Read(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read cursor with %w", err)
	}
	result.CursorBefore, result.CursorAfter = last, last
	if ok {
		r.log.Debug("cursor loaded", "last_post_id", last)
	} else {
		r.log.Info("no cursor found, treating every fetched post as new")
	}

	posts, err := r.fetcher.Fetch(ctx)
	if errors.Is(err, fetcher.ErrMarkerNotFound) {
		r.log.Warn("page carries no embedded post data, nothing to do")
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to fetch posts with %w", err)
	}
	result.Fetched = len(posts)

	fresh := delta.Compute(posts, last, ok)
	result.New = len(fresh)
	if ok && len(fresh) == len(posts) && len(posts) > 0 {
		r.log.Warn("cursor post not in fetched window, relaying the whole window", "last_post_id", last)
	}
	if len(fresh) == 0 {
		r.log.Info("no new posts", "fetched", len(posts))
		return result, nil
	}

	if !ok && r.opts.FirstRun == config.MarkOnly {
		newest := posts[0].ID
		r.log.Info("first run, marking current posts as seen", "posts", len(posts), "newest", newest)
		if r.opts.DryRun {
			return result, nil
		}
		if err := r.store.Write(ctx, newest); err != nil {
			return result, fmt.Errorf("%w: %w", ErrCursorNotSaved, err)
		}
		result.CursorAfter = newest
		return result, nil
	}

	ordered := delta.Chronological(fresh)
	if r.opts.DryRun {
		for _, p := range ordered {
			r.log.Info("would relay post", "id", p.ID, "images", len(p.Images), "text", p.Text)
		}
		return result, nil
	}
	if r.transport == nil {
		return result, errors.New("no transport configured")
	}

	var report dispatcher.Report
	runErr := r.transport.Run(ctx, func(ctx context.Context, s dispatcher.Sender) error {
		report = r.dispatcher.Deliver(ctx, s, ordered)
		return nil
	})
	result.Delivered = report.Delivered
	result.Skipped = report.Skipped
	result.Filtered = report.Filtered
	result.Err = report.Err

	var errs []error
	if runErr != nil {
		errs = append(errs, fmt.Errorf("transport failed with %w", runErr))
	}
	if report.Err != nil {
		errs = append(errs, report.Err)
	}
	if newest, handled := report.LastHandled(); handled {
		// Record what was handled even when the run is being interrupted
		if err := r.store.Write(context.WithoutCancel(ctx), newest); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrCursorNotSaved, err))
		} else {
			result.CursorAfter = newest
		}
	}

	r.log.Info("relay run finished",
		"fetched", result.Fetched,
		"new", result.New,
		"delivered", result.Delivered,
		"skipped", result.Skipped,
		"filtered", result.Filtered,
		"cursor", result.CursorAfter,
	)
	return result, errors.Join(errs...)
}
