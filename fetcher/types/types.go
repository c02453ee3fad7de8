package types

import "context"

// AttachmentKind names the shape an attachment was extracted from
type AttachmentKind string

const (
	AttachmentImage       AttachmentKind = "image"
	AttachmentGallery     AttachmentKind = "gallery"
	AttachmentLinkPreview AttachmentKind = "link_preview"
)

// Post is a single published item of a feed. Immutable once extracted.
type Post struct {
	ID        string
	Text      string
	Images    []string       // Attachment URLs in source order, highest resolution variant each
	Kind      AttachmentKind // Empty when Images is empty
	Author    string
	Published string // Human readable label as shown by the source, e.g. "2 days ago"
	Link      string
}

// HasImages reports whether the post carries at least one attachment
func (p Post) HasImages() bool {
	return len(p.Images) > 0
}

// PostFetcher returns the current window of posts, newest first
type PostFetcher interface {
	Fetch(ctx context.Context) ([]Post, error)
}
