// Package channel is the client side of the tournament push channel.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
)

var ErrClosed = errors.New("push channel closed")

// Conn is an open push channel. Read and Write may be called from different
// goroutines, but each from only one at a time.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials the push channel with github.com/coder/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	ReadLimit        int64
	HTTPClient       *http.Client
}

func DefaultDialer() *WebsocketDialer {
	return &WebsocketDialer{
		HandshakeTimeout: 5 * time.Second,
		// snapshot-sized update batches are possible after bulk edits
		ReadLimit: 4 << 20,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, u string) (Conn, error) {
	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}
	c, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: d.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	if d.ReadLimit > 0 {
		c.SetReadLimit(d.ReadLimit)
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "bye")
}

// ReadLoop hands every inbound message to deliver until the connection fails
// or ctx ends. The returned error is never nil.
func ReadLoop(ctx context.Context, c Conn, deliver func([]byte)) error {
	for {
		data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		deliver(data)
	}
}

// MatchUpdatesURL derives the push channel address for a tournament from the
// server's base URL. https bases get a secure socket.
func MatchUpdatesURL(base, slug string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("base url has no host")
	}
	if slug == "" {
		return "", errors.New("empty tournament slug")
	}
	u.Path = "/tmdb/tournament/" + slug + "/match_updates/"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
