package fetcher

import (
	"fmt"

	"github.com/scipunch/ytrelay/config"
	"github.com/scipunch/ytrelay/fetcher/types"
)

// New creates the post fetcher configured by the source section
func New(src config.SourceConfig) (types.PostFetcher, error) {
	switch src.Kind {
	case config.Community:
		loader, err := newLoader(src)
		if err != nil {
			return nil, err
		}
		return NewCommunityFetcher(loader, src.URL, src.MaxPosts), nil
	case config.RSS:
		return NewRSSFetcher(src.URL, src.UserAgent, src.Timeout(), src.MaxPosts), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", src.Kind)
	}
}

func newLoader(src config.SourceConfig) (PageLoader, error) {
	switch src.Loader {
	case config.HTTPLoader, "":
		return NewHTTPLoader(src.UserAgent, src.Timeout()), nil
	case config.BrowserLoader:
		return NewBrowserLoader(src.UserAgent, src.Timeout()), nil
	default:
		return nil, fmt.Errorf("unknown page loader: %s", src.Loader)
	}
}
