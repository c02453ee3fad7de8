package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/ytrelay/fetcher/types"
)

// RSSFetcher reads posts from an RSS or Atom feed using gofeed
type RSSFetcher struct {
	parser   *gofeed.Parser
	url      string
	maxPosts int
}

// NewRSSFetcher creates a new RSS fetcher
func NewRSSFetcher(url, userAgent string, timeout time.Duration, maxPosts int) *RSSFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: timeout}
	return &RSSFetcher{
		parser:   p,
		url:      url,
		maxPosts: maxPosts,
	}
}

// Fetch retrieves the feed and converts its items to posts, newest first
func (f *RSSFetcher) Fetch(ctx context.Context) ([]types.Post, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	posts := itemsToPosts(feed)
	if f.maxPosts > 0 && len(posts) > f.maxPosts {
		posts = posts[:f.maxPosts]
	}
	slog.Info("fetched RSS feed", "url", f.url, "title", feed.Title, "posts", len(posts))
	return posts, nil
}

type datedPost struct {
	post      types.Post
	published time.Time
}

// itemsToPosts converts feed items, drops items without identity, deduplicates by
// identifier and orders newest first. Items without dates keep their feed order.
func itemsToPosts(feed *gofeed.Feed) []types.Post {
	seen := make(map[string]struct{}, len(feed.Items))
	dated := make([]datedPost, 0, len(feed.Items))

	for _, item := range feed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		post := types.Post{
			ID:   id,
			Text: itemText(item),
			Link: item.Link,
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			post.Author = item.Authors[0].Name
		}
		if url := itemImage(item); url != "" {
			post.Images = []string{url}
			post.Kind = types.AttachmentLinkPreview
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if !published.IsZero() {
			post.Published = published.UTC().Format(time.RFC3339)
		}
		dated = append(dated, datedPost{post: post, published: published})
	}

	if allDated(dated) {
		sort.SliceStable(dated, func(i, j int) bool {
			return dated[i].published.After(dated[j].published)
		})
	}

	posts := make([]types.Post, len(dated))
	for i, d := range dated {
		posts[i] = d.post
	}
	return posts
}

func allDated(dated []datedPost) bool {
	for _, d := range dated {
		if d.published.IsZero() {
			return false
		}
	}
	return true
}

func itemText(item *gofeed.Item) string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(item.Title); t != "" {
		parts = append(parts, t)
	}
	if item.Link != "" {
		parts = append(parts, item.Link)
	}
	return strings.Join(parts, "\n")
}

// itemImage prefers the item image, then media:thumbnail from the extensions
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	// YouTube nests thumbnails under media:group
	for _, group := range media["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	for _, thumb := range media["thumbnail"] {
		if url := thumb.Attrs["url"]; url != "" {
			return url
		}
	}
	return ""
}
