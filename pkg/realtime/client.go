// Package realtime is the client-side counterpart of the live channel. It
// dials the gateway, forwards room commands, and surfaces decoded events on
// a channel. Live events are a low-latency hint only; after any disconnect
// the caller must refetch message history, which is authoritative.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"medichat/internal/events"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("realtime: not connected")

type command struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
}

type Options struct {
	// HandshakeTimeout bounds the dial; defaults to 10s.
	HandshakeTimeout time.Duration
	// EventBuffer is the capacity of the events channel; defaults to 64.
	EventBuffer int
}

// Client maintains one live connection on behalf of a signed-in user.
type Client struct {
	endpoint string
	token    string
	opts     Options

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan events.Envelope
	done   chan struct{}
	err    error
}

// New prepares a client for the given gateway endpoint (ws:// or wss://)
// and credential. No connection is made until Connect.
func New(endpoint, token string, opts Options) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Client{endpoint: endpoint, token: token, opts: opts}
}

// Connect dials the gateway and starts the read loop. The credential rides
// in the query string and is checked before the upgrade completes; a bad
// one fails the dial here rather than surfacing later.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.events = make(chan events.Envelope, c.opts.EventBuffer)
	c.done = make(chan struct{})
	c.err = nil
	c.mu.Unlock()

	go c.readLoop(conn, c.events, c.done)
	return nil
}

// Events yields decoded envelopes. The channel closes when the connection
// drops; the caller should then resync via the HTTP surface and Connect
// again with a fresh credential if needed.
func (c *Client) Events() <-chan events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Done closes when the connection has ended for any reason.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err reports why the connection ended; nil before that.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// JoinSession subscribes the connection to a session's room.
func (c *Client) JoinSession(sessionID string) error {
	return c.send(command{Type: "join", SessionID: sessionID})
}

// LeaveSession unsubscribes from a session's room.
func (c *Client) LeaveSession(sessionID string) error {
	return c.send(command{Type: "leave", SessionID: sessionID})
}

// Typing signals a typing state change to the other room members. The
// caller is expected to debounce; the gateway relays every signal as-is.
func (c *Client) Typing(sessionID string, isTyping bool) error {
	return c.send(command{Type: "typing", SessionID: sessionID, IsTyping: isTyping})
}

// AckDelivered acknowledges receipt of the caller's own posted message,
// advancing its delivery state.
func (c *Client) AckDelivered(messageID string) error {
	return c.send(command{Type: "ack", MessageID: messageID})
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

func (c *Client) send(cmd command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) readLoop(conn *websocket.Conn, out chan events.Envelope, done chan struct{}) {
	defer func() {
		conn.Close()
		close(out)
		close(done)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.conn = nil
			c.mu.Unlock()
			return
		}

		var env events.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		// A full buffer drops the oldest hint rather than stalling the
		// read loop; persisted history covers anything missed.
		select {
		case out <- env:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- env:
			default:
			}
		}
	}
}
