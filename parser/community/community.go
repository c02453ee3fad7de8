// Package community turns the page state of a YouTube community tab into posts.
package community

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-faster/jx"

	"github.com/scipunch/ytrelay/fetcher/types"
)

const (
	// postKey marks a post node anywhere in the page state
	postKey       = "backstagePostRenderer"
	postURLPrefix = "https://www.youtube.com/post/"
)

// errWindowFull stops the traversal once enough unique posts were collected
var errWindowFull = errors.New("post window full")

// Parse walks payload depth-first in document order and returns the unique posts it
// contains, first occurrence wins. maxPosts <= 0 means no limit.
func Parse(payload []byte, maxPosts int) ([]types.Post, error) {
	w := walker{
		seen:     make(map[string]struct{}),
		maxPosts: maxPosts,
	}
	err := w.walk(jx.DecodeBytes(payload))
	if err != nil && !errors.Is(err, errWindowFull) {
		return nil, fmt.Errorf("failed to walk payload with %w", err)
	}
	return w.posts, nil
}

type walker struct {
	seen     map[string]struct{}
	posts    []types.Post
	maxPosts int
}

func (w *walker) walk(d *jx.Decoder) error {
	switch d.Next() {
	case jx.Object:
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != postKey || d.Next() != jx.Object {
				return w.walk(d)
			}
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			if err := w.visit(raw); err != nil {
				return err
			}
			// Shared posts nest the original renderer inside
			return w.walk(jx.DecodeBytes(raw))
		})
	case jx.Array:
		return d.Arr(func(d *jx.Decoder) error {
			return w.walk(d)
		})
	default:
		return d.Skip()
	}
}

func (w *walker) visit(raw []byte) error {
	var r renderer
	if err := json.Unmarshal(raw, &r); err != nil {
		slog.Warn("skipping post node with unexpected shape", "error", err)
		return nil
	}
	if r.PostID == "" {
		return nil
	}
	if _, ok := w.seen[r.PostID]; ok {
		return nil
	}
	w.seen[r.PostID] = struct{}{}
	w.posts = append(w.posts, r.post())

	if w.maxPosts > 0 && len(w.posts) >= w.maxPosts {
		return errWindowFull
	}
	return nil
}

type renderer struct {
	PostID            string      `json:"postId"`
	ContentText       text        `json:"contentText"`
	AuthorText        text        `json:"authorText"`
	PublishedTimeText text        `json:"publishedTimeText"`
	Attachment        *attachment `json:"backstageAttachment"`
}

func (r renderer) post() types.Post {
	p := types.Post{
		ID:        r.PostID,
		Text:      r.ContentText.String(),
		Author:    r.AuthorText.String(),
		Published: r.PublishedTimeText.String(),
		Link:      postURLPrefix + r.PostID,
	}
	if s := r.Attachment.shape(); s != nil {
		p.Images = s.urls()
		if len(p.Images) > 0 {
			p.Kind = s.kind()
		}
	}
	return p
}

// text is YouTube's formatted string: either a list of runs or a simple text
type text struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
	SimpleText string `json:"simpleText"`
}

func (t text) String() string {
	if len(t.Runs) == 0 {
		return t.SimpleText
	}
	var b strings.Builder
	for _, run := range t.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

type thumbnails struct {
	Thumbnails []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"thumbnails"`
}

// best returns the last listed variant, which YouTube orders by ascending resolution
func (t thumbnails) best() (string, bool) {
	if len(t.Thumbnails) == 0 {
		return "", false
	}
	url := t.Thumbnails[len(t.Thumbnails)-1].URL
	if url == "" {
		return "", false
	}
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	return url, true
}

type imageRenderer struct {
	Image thumbnails `json:"image"`
}

type attachment struct {
	Image   *imageRenderer `json:"backstageImageRenderer"`
	Gallery *struct {
		Images []struct {
			Image *imageRenderer `json:"backstageImageRenderer"`
		} `json:"images"`
	} `json:"postMultiImageRenderer"`
	LinkPreview *struct {
		Thumbnail thumbnails `json:"thumbnail"`
	} `json:"videoRenderer"`
}

// shape is the closed set of attachment layouts a post can carry
type shape interface {
	kind() types.AttachmentKind
	urls() []string
}

type singleImage struct{ image thumbnails }

func (singleImage) kind() types.AttachmentKind { return types.AttachmentImage }

func (s singleImage) urls() []string {
	if url, ok := s.image.best(); ok {
		return []string{url}
	}
	return nil
}

type gallery struct{ images []thumbnails }

func (gallery) kind() types.AttachmentKind { return types.AttachmentGallery }

func (g gallery) urls() []string {
	var urls []string
	for _, img := range g.images {
		if url, ok := img.best(); ok {
			urls = append(urls, url)
		}
	}
	return urls
}

type linkPreview struct{ thumbnail thumbnails }

func (linkPreview) kind() types.AttachmentKind { return types.AttachmentLinkPreview }

func (l linkPreview) urls() []string {
	if url, ok := l.thumbnail.best(); ok {
		return []string{url}
	}
	return nil
}

// shape picks the first layout present: single image, gallery, then link preview
func (a *attachment) shape() shape {
	switch {
	case a == nil:
		return nil
	case a.Image != nil:
		return singleImage{image: a.Image.Image}
	case a.Gallery != nil:
		g := gallery{}
		for _, img := range a.Gallery.Images {
			if img.Image != nil {
				g.images = append(g.images, img.Image.Image)
			}
		}
		return g
	case a.LinkPreview != nil:
		return linkPreview{thumbnail: a.LinkPreview.Thumbnail}
	}
	return nil
}
