package wschannel

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/net/websocket"

	"shelf/internal/logging"
)

// ErrClosed is returned for sends on a closed channel.
var ErrClosed = errors.New("wschannel: closed")

// Transport is the write side of a duplex connection that forbids
// interleaved writes.
type Transport interface {
	WriteMessage(payload []byte) error
	Close() error
}

type pendingSend struct {
	payload []byte
	result  chan error
}

// Channel owns a transport's write side. Construct with New; all sends go
// through the one writer goroutine.
type Channel struct {
	transport Transport
	outbound  chan pendingSend
	done      chan struct{}
	closeOnce sync.Once
	writerWG  sync.WaitGroup
	logger    *slog.Logger
}

// New wraps a transport in a single-writer channel. queueDepth bounds how
// many sends may be waiting before Send blocks.
func New(transport Transport, queueDepth int, logger *slog.Logger) *Channel {
	if queueDepth <= 0 {
		queueDepth = 16
	}
	c := &Channel{
		transport: transport,
		outbound:  make(chan pendingSend, queueDepth),
		done:      make(chan struct{}),
		logger:    logging.NewComponentLogger(logger, "wschannel"),
	}
	c.writerWG.Add(1)
	go c.writeLoop()
	return c
}

// NewFromWebsocket adapts an x/net websocket connection.
func NewFromWebsocket(ws *websocket.Conn, queueDepth int, logger *slog.Logger) *Channel {
	return New(websocketTransport{ws: ws}, queueDepth, logger)
}

type websocketTransport struct {
	ws *websocket.Conn
}

func (t websocketTransport) WriteMessage(payload []byte) error {
	return websocket.Message.Send(t.ws, payload)
}

func (t websocketTransport) Close() error {
	return t.ws.Close()
}

// Send enqueues one message and waits for the writer to deliver it. It
// fails on context cancellation or after Close without ever writing to the
// transport from the calling goroutine.
func (c *Channel) Send(ctx context.Context, payload []byte) error {
	msg := pendingSend{payload: payload, result: make(chan error, 1)}

	select {
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.outbound <- msg:
	}

	select {
	case err := <-msg.result:
		return err
	case <-ctx.Done():
		// The writer may still deliver the message; only the wait is
		// abandoned.
		return ctx.Err()
	}
}

// Close shuts the channel down, fails queued senders, and closes the
// transport. Safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.transport.Close()
		c.writerWG.Wait()
	})
	return err
}

func (c *Channel) writeLoop() {
	defer c.writerWG.Done()
	for {
		select {
		case <-c.done:
			c.failPending()
			return
		case msg := <-c.outbound:
			err := c.transport.WriteMessage(msg.payload)
			if err != nil {
				c.logger.Debug("websocket write failed", logging.Error(err))
			}
			msg.result <- err
		}
	}
}

// failPending answers any senders that were already queued when Close won
// the race.
func (c *Channel) failPending() {
	for {
		select {
		case msg := <-c.outbound:
			msg.result <- ErrClosed
		default:
			return
		}
	}
}
