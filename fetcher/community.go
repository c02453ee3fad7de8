package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scipunch/ytrelay/fetcher/types"
	"github.com/scipunch/ytrelay/parser/community"
)

// CommunityFetcher reads posts from a YouTube community tab
type CommunityFetcher struct {
	loader   PageLoader
	url      string
	maxPosts int
}

// NewCommunityFetcher creates a fetcher for the community page at url
func NewCommunityFetcher(loader PageLoader, url string, maxPosts int) *CommunityFetcher {
	return &CommunityFetcher{
		loader:   loader,
		url:      url,
		maxPosts: maxPosts,
	}
}

// Fetch loads the page and extracts posts, newest first.
// Returns ErrMarkerNotFound when the page carries no embedded payload.
func (f *CommunityFetcher) Fetch(ctx context.Context) ([]types.Post, error) {
	markup, err := f.loader.Load(ctx, f.url)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractPayload(markup, InitialDataMarker)
	if err != nil {
		return nil, err
	}
	slog.Debug("embedded payload extracted", "url", f.url, "bytes", len(payload))

	posts, err := community.Parse(payload, f.maxPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse community payload of '%s' with %w", f.url, err)
	}
	slog.Info("fetched community posts", "url", f.url, "posts", len(posts))
	return posts, nil
}
