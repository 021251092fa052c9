package websocket

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/gorilla/websocket"
)

// Channel is an established session. Inbound frames are delivered in arrival
// order and never dropped; the read loop waits for the consumer when the
// buffer is full.
type Channel struct {
	conn         *websocket.Conn
	sessionID    string
	writeTimeout time.Duration

	messages chan protocol.Message
	done     chan struct{}
	readDone chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

func newChannel(conn *websocket.Conn, sessionID string, writeTimeout time.Duration, buffer int) *Channel {
	c := &Channel{
		conn:         conn,
		sessionID:    sessionID,
		writeTimeout: writeTimeout,
		messages:     make(chan protocol.Message, buffer),
		done:         make(chan struct{}),
		readDone:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Channel) SessionID() string { return c.sessionID }

func (c *Channel) Messages() <-chan protocol.Message { return c.messages }

func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Channel) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Channel) SendJSON(v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Channel) SendAudio(frame []byte) error {
	return c.write(websocket.BinaryMessage, frame)
}

func (c *Channel) write(messageType int, data []byte) error {
	if c.closed.Load() {
		return protocol.ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close sends a normal closure, closes the connection and waits for the read
// loop to finish. It is safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.readDone
	return nil
}

func (c *Channel) readLoop() {
	defer close(c.readDone)
	defer close(c.messages)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.closed.Store(true)
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.setErr(fmt.Errorf("%w: %w", protocol.ErrClosedByRemote, err))
			} else {
				c.setErr(fmt.Errorf("failed to read frame: %w", err))
			}
			return
		}

		message := protocol.Message{Data: data}
		switch messageType {
		case websocket.TextMessage:
			message.Type = protocol.TextMessage
		case websocket.BinaryMessage:
			message.Type = protocol.BinaryMessage
		default:
			continue
		}

		select {
		case c.messages <- message:
		case <-c.done:
			return
		}
	}
}
