// Package websocket carries a voice session over a single websocket: JSON text
// frames for control events and binary frames for audio.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultInboundBuffer    = 256
)

type Transport struct {
	url              string
	dialer           *websocket.Dialer
	header           http.Header
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	inboundBuffer    int
}

type Option func(*Transport)

func WithDialer(dialer *websocket.Dialer) Option {
	return func(t *Transport) {
		if dialer != nil {
			t.dialer = dialer
		}
	}
}

// WithHeader adds a header to the upgrade request.
func WithHeader(key, value string) Option {
	return func(t *Transport) { t.header.Add(key, value) }
}

func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		if timeout > 0 {
			t.handshakeTimeout = timeout
		}
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		if timeout > 0 {
			t.writeTimeout = timeout
		}
	}
}

// WithInboundBuffer sets how many inbound frames may queue before the read
// loop waits for the consumer.
func WithInboundBuffer(size int) Option {
	return func(t *Transport) {
		if size > 0 {
			t.inboundBuffer = size
		}
	}
}

func New(url string, opts ...Option) *Transport {
	t := &Transport{
		url:              url,
		dialer:           websocket.DefaultDialer,
		header:           make(http.Header),
		handshakeTimeout: defaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		inboundBuffer:    defaultInboundBuffer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open dials the service, sends session.start and waits for session.created.
// Cancelling ctx aborts the handshake and closes the connection.
func (t *Transport) Open(ctx context.Context, start protocol.SessionStart) (protocol.Channel, error) {
	ctx, span := tracer.Start(ctx, "open realtime channel")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", start.SessionID))

	fail := func(err error) (protocol.Channel, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, t.handshakeTimeout)
	defer cancel()

	header := t.header.Clone()
	header.Set("Authorization", "Bearer "+start.Credential)

	conn, resp, err := t.dialer.DialContext(handshakeCtx, t.url, header)
	if err != nil {
		if resp != nil {
			return fail(fmt.Errorf("failed to dial realtime service (status %d): %w", resp.StatusCode, err))
		}
		return fail(fmt.Errorf("failed to dial realtime service: %w", err))
	}

	// Closing the connection is the only way to unblock ReadMessage when the
	// handshake is abandoned.
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-handshakeCtx.Done():
			_ = conn.Close()
		case <-handshakeDone:
		}
	}()

	sessionID, err := t.handshake(conn, start)
	close(handshakeDone)
	if err == nil && handshakeCtx.Err() != nil {
		err = handshakeCtx.Err()
	}
	if err != nil {
		_ = conn.Close()
		if ctxErr := handshakeCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return fail(err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	if sessionID == "" {
		sessionID = start.SessionID
	}
	span.SetAttributes(attribute.String("session.acknowledged_id", sessionID))

	return newChannel(conn, sessionID, t.writeTimeout, t.inboundBuffer), nil
}

func (t *Transport) handshake(conn *websocket.Conn, start protocol.SessionStart) (string, error) {
	_ = conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := conn.WriteJSON(start); err != nil {
		return "", fmt.Errorf("failed to send session start: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(t.handshakeTimeout))
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("failed to read session ack: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := protocol.Decode(payload)
		if err != nil {
			return "", fmt.Errorf("failed to decode session ack: %w", err)
		}

		switch event.Kind {
		case protocol.KindSessionCreated:
			return event.SessionID, nil
		case protocol.KindError:
			return "", fmt.Errorf("%w: %w", protocol.ErrHandshakeRefused, event.Error)
		default:
			logger.Debug("ignoring frame before session ack", "type", event.Type)
		}
	}
}

// marshal is split out so write errors and encoding errors are distinct.
func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal control event: %w", err)
	}
	return data, nil
}
