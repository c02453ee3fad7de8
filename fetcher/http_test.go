package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPLoaderSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	loader := NewHTTPLoader("", time.Second)
	body, err := loader.Load(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("body = %q", body)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
}

func TestHTTPLoaderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPLoader("test-agent", time.Second).Load(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestHTTPLoaderRejectsOversizedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 11))
	}))
	defer server.Close()

	loader := NewHTTPLoader("", time.Second)
	loader.maxSize = 10
	if _, err := loader.Load(context.Background(), server.URL); err == nil || !strings.Contains(err.Error(), "exceeds 10 bytes") {
		t.Errorf("Load() error = %v, want size limit error", err)
	}

	loader.maxSize = 11
	body, err := loader.Load(context.Background(), server.URL)
	if err != nil || len(body) != 11 {
		t.Errorf("Load() = %d bytes, %v, want page at the limit accepted", len(body), err)
	}
}

type fakeLoader struct {
	markup string
	err    error
}

func (f fakeLoader) Load(ctx context.Context, url string) ([]byte, error) {
	return []byte(f.markup), f.err
}

func TestCommunityFetcher(t *testing.T) {
	markup := `<html><script>var ytInitialData = {"contents":[` +
		`{"backstagePostRenderer":{"postId":"p2","contentText":{"runs":[{"text":"newer"}]}}},` +
		`{"backstagePostRenderer":{"postId":"p1","contentText":{"runs":[{"text":"older"}]}}}` +
		`]};</script></html>`

	f := NewCommunityFetcher(fakeLoader{markup: markup}, "https://www.youtube.com/@x/community", 10)
	posts, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "p2" || posts[1].Text != "older" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestCommunityFetcherErrors(t *testing.T) {
	f := NewCommunityFetcher(fakeLoader{markup: "<html>consent</html>"}, "u", 10)
	if _, err := f.Fetch(context.Background()); !errors.Is(err, ErrMarkerNotFound) {
		t.Errorf("Fetch() error = %v, want ErrMarkerNotFound", err)
	}

	loadErr := errors.New("dial tcp: timeout")
	f = NewCommunityFetcher(fakeLoader{err: loadErr}, "u", 10)
	if _, err := f.Fetch(context.Background()); !errors.Is(err, loadErr) {
		t.Errorf("Fetch() error = %v, want load error", err)
	}
}
