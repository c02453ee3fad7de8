// Package delta isolates the posts published since the last delivered one.
package delta

import "github.com/scipunch/ytrelay/fetcher/types"

// Compute returns the posts strictly newer than cursor. posts must be newest first.
//
// When ok is false (no history) or the cursor post has scrolled out of the window,
// every fetched post is new. Posts older than the fetched window stay unreachable.
func Compute(posts []types.Post, cursor string, ok bool) []types.Post {
	if !ok {
		return posts
	}
	for i, p := range posts {
		if p.ID == cursor {
			return posts[:i]
		}
	}
	return posts
}

// Chronological returns a copy of newest-first posts in oldest-first order
func Chronological(posts []types.Post) []types.Post {
	out := make([]types.Post, len(posts))
	for i, p := range posts {
		out[len(posts)-1-i] = p
	}
	return out
}
