// Package transcribe consumes incremental recognized speech from a
// speech-to-text gateway over a websocket. The capture pipeline itself is a
// black box; this client only tracks finalized phrases and the live partial.
package transcribe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/clinicore/triage-intake/pkg/logging"
)

// Event is one message from the gateway.
type Event struct {
	Text    string `json:"text"`
	Partial bool   `json:"partial"`
}

// Update is the feed state published after each event. Final accumulates
// finalized phrases newline-joined; Partial is the live caption and is
// cleared whenever a phrase finalizes.
type Update struct {
	Final   string
	Partial string
}

// Feed is a websocket consumer of the transcription gateway.
type Feed struct {
	url    string
	dialer *websocket.Dialer
	logger *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	final   []string
	partial string

	updates chan Update
}

// Option customizes the feed.
type Option func(*Feed)

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(f *Feed) {
		f.dialer = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

// NewFeed creates a feed for the given websocket URL.
func NewFeed(url string, opts ...Option) *Feed {
	f := &Feed{
		url:     url,
		dialer:  websocket.DefaultDialer,
		logger:  logging.Default(),
		updates: make(chan Update, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Updates returns the channel carrying feed state changes. The channel is
// latest-wins: a slow consumer sees the newest state, not every event.
func (f *Feed) Updates() <-chan Update {
	return f.updates
}

// Recording reports whether the feed is consuming events.
func (f *Feed) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Start connects to the gateway and begins consuming events. The transcript
// buffers are cleared, matching a fresh recording.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.final = nil
	f.partial = ""
	f.mu.Unlock()

	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("transcribe: connect feed: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.running = true
	f.mu.Unlock()

	go f.readLoop(conn)
	return nil
}

// Stop closes the connection. Already-accumulated text is kept until Reset.
func (f *Feed) Stop() {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.running = false
	f.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Reset clears the accumulated transcript without touching the connection.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.final = nil
	f.partial = ""
	f.mu.Unlock()
	f.publish()
}

// Snapshot returns the current accumulated and partial text.
func (f *Feed) Snapshot() Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Update{Final: strings.Join(f.final, "\n"), Partial: f.partial}
}

func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			f.mu.Lock()
			active := f.conn == conn
			if active {
				f.conn = nil
				f.running = false
			}
			f.mu.Unlock()
			if active {
				f.logger.Warn("transcribe feed closed", "error", err)
			}
			return
		}

		f.mu.Lock()
		if f.conn != conn {
			// Stopped while the read was in flight; drop the event.
			f.mu.Unlock()
			return
		}
		if evt.Partial {
			f.partial = evt.Text
		} else if evt.Text != "" {
			f.final = append(f.final, evt.Text)
			f.partial = ""
		}
		f.mu.Unlock()

		f.publish()
	}
}

// publish pushes the latest snapshot, replacing any unread one.
func (f *Feed) publish() {
	u := f.Snapshot()
	for {
		select {
		case f.updates <- u:
			return
		default:
			select {
			case <-f.updates:
			default:
			}
		}
	}
}
