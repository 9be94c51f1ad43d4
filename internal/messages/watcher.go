package messages

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a live message notification from the world API's feed.
type Event struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId,omitempty"`
}

// Watcher subscribes to the world API's websocket message feed so the
// simulation can wake as soon as something happens instead of waiting out a
// full poll interval. The daemon works without it; the feed only shortens
// latency.
type Watcher struct {
	url    string
	log    *slog.Logger
	dialer *websocket.Dialer
}

// NewWatcher creates a watcher for the given ws:// or wss:// URL.
func NewWatcher(url string, log *slog.Logger) *Watcher {
	return &Watcher{
		url:    url,
		log:    log,
		dialer: websocket.DefaultDialer,
	}
}

// Watch connects to the feed and delivers events until ctx is cancelled.
// Connection failures back off and reconnect; the channel closes only when
// ctx ends.
func (w *Watcher) Watch(ctx context.Context) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		backoff := time.Second
		for {
			if err := w.stream(ctx, events); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.Warn("message feed disconnected", "url", w.url, "error", err)
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
	return events
}

func (w *Watcher) stream(ctx context.Context, events chan<- Event) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	w.log.Info("message feed connected", "url", w.url)

	// Unblock ReadJSON when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		select {
		case events <- ev:
		default:
			// Drop when the consumer is behind; polling will catch up.
		}
	}
}
