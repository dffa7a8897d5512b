package arena

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sxweetlollipop2912/racing-arena/internal/protocol"
)

// Default write queue / timeout constants.
// Overridden by config values when available.
const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 5 * time.Second
)

// deadlineWriter is satisfied by net.Conn and the websocket adapter.
// Test fakes without deadline support skip the per-write deadline.
type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Client owns the write side of a single connection. Outbound frames
// are queued on a buffered channel and drained by a dedicated writer
// goroutine, so broadcasts never block on a slow socket.
type Client struct {
	id     string
	remote string
	rwc    io.ReadWriteCloser

	sendCh  chan string
	closeCh chan struct{}

	// closeOnce гарантирует однократное закрытие closeCh
	closeOnce sync.Once

	writeTimeout time.Duration
}

// NewClient creates the client state for an accepted connection and
// assigns it a fresh connection ID. The writer goroutine is started
// separately with writePump.
func NewClient(rwc io.ReadWriteCloser, remote string, sendQueueSize int, writeTimeout time.Duration) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	return &Client{
		id:           uuid.NewString(),
		remote:       remote,
		rwc:          rwc,
		sendCh:       make(chan string, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// ID returns the connection identifier used for unicast addressing.
func (c *Client) ID() string {
	return c.id
}

// Remote returns the remote host for logs.
func (c *Client) Remote() string {
	return c.remote
}

// writePump is the dedicated writer goroutine for this client. It
// appends the frame delimiter and writes queued frames until the
// client closes or a write fails.
func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.sendCh:
			if dw, ok := c.rwc.(deadlineWriter); ok {
				if err := dw.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
					slog.Warn("set write deadline failed", "client", c.remote, "error", err)
					c.Close()
					return
				}
			}
			if _, err := io.WriteString(c.rwc, msg+string(protocol.Delim)); err != nil {
				slog.Warn("write failed", "client", c.remote, "error", err)
				c.Close()
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// Send queues one frame for delivery. Non-blocking: a full queue means
// the peer stopped reading, so the connection is closed and an error
// returned.
func (c *Client) Send(msg string) error {
	select {
	case c.sendCh <- msg:
		return nil
	default:
		slog.Warn("send queue full, disconnecting slow client", "client", c.remote)
		c.Close()
		return fmt.Errorf("send queue full")
	}
}

// CloseAsync signals the writer goroutine to stop without blocking.
// Safe to call multiple times.
func (c *Client) CloseAsync() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}

// Close stops the writer goroutine and closes the connection.
func (c *Client) Close() error {
	c.CloseAsync()
	return c.rwc.Close()
}
