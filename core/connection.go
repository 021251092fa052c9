package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/audio"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// connectAttempt is an in-progress Connect. Disconnect cancels it and waits
// for done so nothing acquired by the attempt outlives it.
type connectAttempt struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Connect opens a session for the conversation context and optional user
// identity. It is a no-op returning nil unless the orchestrator is Idle.
//
// Failures are *ConnectError values: ErrorKindCapability when the capture
// device is unavailable, ErrorKindHandshake when the credential or the
// handshake failed. Either way nothing stays acquired and the state is Idle
// again. A Disconnect during Connect makes it return ErrConnectCancelled.
func (o *Orchestrator) Connect(ctx context.Context, contextTag, identity string) error {
	if o.closed.Load() {
		return ErrOrchestratorClosed
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	attempt := &connectAttempt{ctx: attemptCtx, cancel: cancel, done: make(chan struct{})}
	o.attempt = attempt
	o.setStateLocked(StateRequesting)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.attempt == attempt {
			o.attempt = nil
		}
		o.mu.Unlock()
		cancel()
		close(attempt.done)
	}()

	ctx, span := tracer.Start(attemptCtx, "connect session")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.context", contextTag),
		attribute.Bool("session.has_identity", identity != ""),
	)

	err := o.connect(ctx, attempt, contextTag, identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrConnectCancelled) {
			o.publish(events.NewErrorOccurred(err))
		}
	}
	return err
}

func (o *Orchestrator) connect(ctx context.Context, attempt *connectAttempt, contextTag, identity string) error {
	if o.acquirer == nil {
		return o.abortAttempt(attempt, newConnectError(ErrorKindHandshake, ErrCredentialUnavailable, errors.New("no credential acquirer configured")))
	}
	credential, err := o.acquirer.Acquire(ctx, contextTag, identity)
	if err == nil && credential.Expired(time.Now()) {
		err = fmt.Errorf("credential expired at %s", credential.ExpiresAt.Format(time.RFC3339))
	}
	if err != nil {
		return o.abortAttempt(attempt, newConnectError(ErrorKindHandshake, ErrCredentialUnavailable, err))
	}
	trace.SpanFromContext(ctx).AddEvent("credential acquired")

	o.mu.Lock()
	if attempt.ctx.Err() != nil {
		o.mu.Unlock()
		return o.abortAttempt(attempt, nil)
	}
	o.setStateLocked(StateNegotiating)
	o.mu.Unlock()

	sessionCtx, cancelSession := context.WithCancel(o.baseContext)
	s := &session{
		id:          uuid.NewString(),
		contextTag:  contextTag,
		identity:    identity,
		ctx:         sessionCtx,
		cancel:      cancelSession,
		interpreter: newInterpreter(),
		inFlight:    make(map[string]string),
		readDone:    make(chan struct{}),
	}

	if err := o.audioInput.Start(sessionCtx, o.forwardMicrophone); err != nil {
		cancelSession()
		return o.abortAttempt(attempt, newConnectError(ErrorKindCapability, ErrMediaUnavailable, err))
	}

	if o.transport == nil {
		o.stopInput(s)
		cancelSession()
		return o.abortAttempt(attempt, newConnectError(ErrorKindHandshake, ErrHandshakeFailed, errors.New("no transport configured")))
	}

	var toolSpecs []protocol.ToolSpec
	if err := copier.Copy(&toolSpecs, o.registry.Specs()); err != nil {
		logger.Warn("failed to copy tool specs", "error", err)
	}
	encoding := o.audioInput.EncodingInfo()
	start := protocol.NewSessionStart(s.id, credential.Value, contextTag, identity, toolSpecs, protocol.AudioFormat{
		Encoding:   encoding.Format.Name(),
		SampleRate: encoding.SampleRate,
	})

	channel, err := o.transport.Open(ctx, start)
	if err != nil {
		o.stopInput(s)
		cancelSession()
		return o.abortAttempt(attempt, newConnectError(ErrorKindHandshake, ErrHandshakeFailed, err))
	}
	s.channel = channel
	if acknowledged := channel.SessionID(); acknowledged != "" {
		s.id = acknowledged
	}
	if o.presenceSource == PresenceMicrophone || o.presenceSource == PresenceRemote {
		s.monitor = presence.NewMonitor(o.presenceEncoding(), func(sample presence.Sample) {
			o.publish(events.NewPresenceUpdated(sample.Level, sample.RemoteVocalizing))
		}, o.presenceOptions...)
	}

	o.mu.Lock()
	if attempt.ctx.Err() != nil {
		o.mu.Unlock()
		_ = channel.Close()
		o.stopInput(s)
		cancelSession()
		return o.abortAttempt(attempt, nil)
	}
	o.session = s
	o.live.Store(s)
	o.setStateLocked(StateConnected)
	o.setStateLocked(StateListening)
	o.mu.Unlock()

	o.publish(events.NewConnectivityChanged(true, s.id))
	// Released sessions are no longer current, so this only fires when the
	// base context ends.
	context.AfterFunc(sessionCtx, func() {
		o.failSession(s, context.Cause(sessionCtx))
	})
	if s.monitor != nil {
		s.monitor.Start(sessionCtx)
	}
	go o.readLoop(s)

	logger.Info("session connected", "session", s.id, "context", contextTag)
	return nil
}

// abortAttempt returns the lifecycle to Idle after a failed or cancelled
// attempt. A nil err means the attempt was cancelled.
func (o *Orchestrator) abortAttempt(attempt *connectAttempt, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err == nil || attempt.ctx.Err() != nil {
		o.setStateLocked(StateClosed)
		o.setStateLocked(StateIdle)
		if cause := context.Cause(attempt.ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrConnectCancelled, cause)
		}
		return ErrConnectCancelled
	}

	o.setStateLocked(StateIdle)
	return err
}

func (o *Orchestrator) stopInput(s *session) {
	if err := o.audioInput.Stop(); err != nil {
		logger.Warn("failed to stop audio input", "session", s.id, "error", err)
	}
}

func (o *Orchestrator) presenceEncoding() audio.EncodingInfo {
	if o.presenceSource == PresenceRemote {
		return o.audioOutput.EncodingInfo()
	}
	return o.audioInput.EncodingInfo()
}

// Disconnect tears down the session or cancels a connect in progress. It is
// idempotent and safe in any state; once it returns nothing acquired by a
// session is still held.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	attempt := o.attempt
	if attempt != nil {
		attempt.cancel()
	}
	o.mu.Unlock()

	if attempt != nil {
		<-attempt.done
	}

	o.mu.Lock()
	s := o.session
	o.session = nil
	o.mu.Unlock()

	if s == nil {
		return
	}
	o.release(s, nil)
	<-s.readDone
}
