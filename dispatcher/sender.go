package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sender performs the two outbound messaging operations against one channel
type Sender interface {
	// SendText posts a plain text message
	SendText(ctx context.Context, text string, linkPreview bool) error
	// SendPhoto posts the image at photoURL with caption
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// Transport opens a session with the messaging service and runs fn within it.
// Stateless transports simply call fn with themselves.
type Transport interface {
	Run(ctx context.Context, fn func(ctx context.Context, s Sender) error) error
}

// APIError is a rejection reported by the messaging service
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration // Server requested pause, zero when absent
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram api error %d: %s (retry after %s)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// Temporary reports whether the same request may succeed later
func (e *APIError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// channelMarkers name rejections of the destination rather than of one message,
// in Bot API wording ("chat not found") and MTProto error types (CHANNEL_PRIVATE)
var channelMarkers = []string{"chat", "channel", "peer_id_invalid", "username"}

// ChannelLevel reports whether the rejection concerns the channel itself (bad token,
// bot removed, channel missing or private). Every later message would fail the same way.
func (e *APIError) ChannelLevel() bool {
	switch {
	case e.Code == 401 || e.Code == 403:
		return true
	case e.Code == 400:
		desc := strings.ToLower(e.Description)
		for _, marker := range channelMarkers {
			if strings.Contains(desc, marker) {
				return true
			}
		}
	}
	return false
}
