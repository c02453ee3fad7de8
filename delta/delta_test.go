package delta

import (
	"testing"

	"github.com/scipunch/ytrelay/fetcher/types"
)

func posts(ids ...string) []types.Post {
	out := make([]types.Post, len(ids))
	for i, id := range ids {
		out[i] = types.Post{ID: id}
	}
	return out
}

func ids(ps []types.Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompute(t *testing.T) {
	window := posts("p5", "p4", "p3", "p2", "p1")

	tests := []struct {
		name     string
		posts    []types.Post
		cursor   string
		ok       bool
		expected []string
	}{
		{
			name:     "cursor in the middle",
			posts:    window,
			cursor:   "p3",
			ok:       true,
			expected: []string{"p5", "p4"},
		},
		{
			name:     "no history",
			posts:    window,
			expected: []string{"p5", "p4", "p3", "p2", "p1"},
		},
		{
			name:     "cursor is newest",
			posts:    window,
			cursor:   "p5",
			ok:       true,
			expected: []string{},
		},
		{
			name:     "cursor is oldest",
			posts:    window,
			cursor:   "p1",
			ok:       true,
			expected: []string{"p5", "p4", "p3", "p2"},
		},
		{
			name:     "cursor scrolled out of window",
			posts:    window,
			cursor:   "p0",
			ok:       true,
			expected: []string{"p5", "p4", "p3", "p2", "p1"},
		},
		{
			name:     "empty window",
			posts:    nil,
			cursor:   "p3",
			ok:       true,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Compute(tt.posts, tt.cursor, tt.ok))
			if !equal(got, tt.expected) {
				t.Errorf("Compute() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestChronological(t *testing.T) {
	newest := posts("p5", "p4")
	got := ids(Chronological(newest))
	if !equal(got, []string{"p4", "p5"}) {
		t.Errorf("Chronological() = %v, want [p4 p5]", got)
	}
	if newest[0].ID != "p5" {
		t.Error("Chronological modified its input")
	}
}
