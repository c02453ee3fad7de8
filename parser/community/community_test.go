package community

import (
	"slices"
	"testing"

	"github.com/scipunch/ytrelay/fetcher/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		maxPosts int
		want     []types.Post
	}{
		{
			name: "text post with runs",
			payload: `{"contents":{"items":[{"backstagePostThreadRenderer":{"post":{"backstagePostRenderer":{
				"postId":"Ugk1","contentText":{"runs":[{"text":"Hello "},{"text":"Chief"}]},
				"authorText":{"runs":[{"text":"Clash of Clans"}]},"publishedTimeText":{"runs":[{"text":"2 days ago"}]}}}}}]}}`,
			want: []types.Post{{
				ID:        "Ugk1",
				Text:      "Hello Chief",
				Author:    "Clash of Clans",
				Published: "2 days ago",
				Link:      "https://www.youtube.com/post/Ugk1",
			}},
		},
		{
			name: "single image takes last thumbnail",
			payload: `{"backstagePostRenderer":{"postId":"a","contentText":{"simpleText":"pic"},
				"backstageAttachment":{"backstageImageRenderer":{"image":{"thumbnails":[
				{"url":"https://yt3.ggpht.com/small","width":288},{"url":"//yt3.ggpht.com/big","width":1080}]}}}}}`,
			want: []types.Post{{
				ID:     "a",
				Text:   "pic",
				Images: []string{"https://yt3.ggpht.com/big"},
				Kind:   types.AttachmentImage,
				Link:   "https://www.youtube.com/post/a",
			}},
		},
		{
			name: "gallery keeps order",
			payload: `{"backstagePostRenderer":{"postId":"g","backstageAttachment":{"postMultiImageRenderer":{"images":[
				{"backstageImageRenderer":{"image":{"thumbnails":[{"url":"https://img/1s"},{"url":"https://img/1"}]}}},
				{"backstageImageRenderer":{"image":{"thumbnails":[{"url":"https://img/2"}]}}},
				{"backstageImageRenderer":{"image":{"thumbnails":[{"url":"https://img/3"}]}}}]}}}}`,
			want: []types.Post{{
				ID:     "g",
				Images: []string{"https://img/1", "https://img/2", "https://img/3"},
				Kind:   types.AttachmentGallery,
				Link:   "https://www.youtube.com/post/g",
			}},
		},
		{
			name: "link preview thumbnail",
			payload: `{"backstagePostRenderer":{"postId":"v","contentText":{"runs":[{"text":"watch"}]},
				"backstageAttachment":{"videoRenderer":{"videoId":"xyz","thumbnail":{"thumbnails":[
				{"url":"https://i.ytimg.com/vi/xyz/default.jpg"},{"url":"https://i.ytimg.com/vi/xyz/hqdefault.jpg"}]}}}}}`,
			want: []types.Post{{
				ID:     "v",
				Text:   "watch",
				Images: []string{"https://i.ytimg.com/vi/xyz/hqdefault.jpg"},
				Kind:   types.AttachmentLinkPreview,
				Link:   "https://www.youtube.com/post/v",
			}},
		},
		{
			name: "duplicates keep first occurrence",
			payload: `[{"backstagePostRenderer":{"postId":"p","contentText":{"simpleText":"first"}}},
				{"backstagePostRenderer":{"postId":"p","contentText":{"simpleText":"second"}}}]`,
			want: []types.Post{{ID: "p", Text: "first", Link: "https://www.youtube.com/post/p"}},
		},
		{
			name: "node without id is dropped, empty post kept",
			payload: `[{"backstagePostRenderer":{"contentText":{"simpleText":"orphan"}}},
				{"backstagePostRenderer":{"postId":"e"}}]`,
			want: []types.Post{{ID: "e", Link: "https://www.youtube.com/post/e"}},
		},
		{
			name: "shared post yields both renderers",
			payload: `{"backstagePostRenderer":{"postId":"outer","contentText":{"simpleText":"look"},
				"sharedPost":{"backstagePostRenderer":{"postId":"inner","contentText":{"simpleText":"original"}}}}}`,
			want: []types.Post{
				{ID: "outer", Text: "look", Link: "https://www.youtube.com/post/outer"},
				{ID: "inner", Text: "original", Link: "https://www.youtube.com/post/inner"},
			},
		},
		{
			name:     "window limit",
			payload:  `[{"backstagePostRenderer":{"postId":"1"}},{"backstagePostRenderer":{"postId":"2"}},{"backstagePostRenderer":{"postId":"3"}}]`,
			maxPosts: 2,
			want: []types.Post{
				{ID: "1", Link: "https://www.youtube.com/post/1"},
				{ID: "2", Link: "https://www.youtube.com/post/2"},
			},
		},
		{
			name:    "no posts",
			payload: `{"header":{"title":"Clash of Clans"},"contents":[]}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.payload), tt.maxPosts)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !slices.EqualFunc(got, tt.want, equalPost) {
				t.Errorf("Parse() = %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"contents":[`), 0); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestParseDocumentOrder(t *testing.T) {
	payload := `{"a":{"b":[{"backstagePostRenderer":{"postId":"first"}}]},"c":{"backstagePostRenderer":{"postId":"second"}}}`
	got, err := Parse([]byte(payload), 0)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("Parse() = %+v", got)
	}
}

func equalPost(a, b types.Post) bool {
	return a.ID == b.ID &&
		a.Text == b.Text &&
		slices.Equal(a.Images, b.Images) &&
		a.Kind == b.Kind &&
		a.Author == b.Author &&
		a.Published == b.Published &&
		a.Link == b.Link
}
