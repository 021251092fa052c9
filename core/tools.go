package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/chukwumela909/voice-agent-market/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var errNoExecutor = errors.New("no tool executor configured")

// dispatchToolCall runs one tool call in the background. Every call that gets
// here is answered with exactly one tool.result followed by response.create,
// whatever the outcome. The fetching flag was raised by the interpreter when
// the request was read.
func (o *Orchestrator) dispatchToolCall(s *session, call protocol.ToolCallRequest) {
	o.mu.Lock()
	if _, duplicate := s.inFlight[call.CallID]; duplicate {
		o.mu.Unlock()
		logger.Warn("ignoring duplicate tool call", "session", s.id, "call_id", call.CallID, "tool", call.Name)
		return
	}
	s.inFlight[call.CallID] = call.Name
	o.mu.Unlock()

	o.publish(events.NewToolCallStarted(call.CallID, call.Name, string(call.Arguments)))

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		defer o.finishToolCall(s, call)

		result := o.runTool(s, call)
		o.deliverToolResult(s, call, result)
	}()
}

// runTool never fails: every error becomes an unsuccessful result.
func (o *Orchestrator) runTool(s *session, call protocol.ToolCallRequest) protocol.ToolResult {
	ctx, cancel := context.WithTimeout(s.ctx, o.toolTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.CallID),
	)

	output, err := o.executeTool(ctx, s, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return protocol.NewFailedToolResult(call.CallID, err.Error())
	}
	return protocol.NewToolResult(call.CallID, true, output)
}

type toolOutcome struct {
	output json.RawMessage
	err    error
}

func (o *Orchestrator) executeTool(ctx context.Context, s *session, call protocol.ToolCallRequest) (json.RawMessage, error) {
	arguments, err := o.registry.Parse(call.Name, call.Arguments)
	if err != nil {
		return nil, err
	}
	if o.executor == nil {
		return nil, fmt.Errorf("failed to run %s: %w", call.Name, errNoExecutor)
	}

	invocation := tools.Invocation{
		CallID:    call.CallID,
		Name:      call.Name,
		Arguments: arguments,
		Identity:  s.identity,
	}

	// The executor runs on its own goroutine so a collaborator that ignores
	// ctx still resolves at the deadline.
	outcomes := make(chan toolOutcome, 1)
	go func() {
		var outcome toolOutcome
		err := panicSafeNamedWorker("tool "+call.Name, func(ctx context.Context) error {
			output, err := o.executor.Execute(ctx, invocation)
			outcome.output = output
			return err
		})(ctx)
		outcome.err = err
		outcomes <- outcome
	}()

	select {
	case outcome := <-outcomes:
		if outcome.err != nil {
			return nil, outcome.err
		}
		if len(outcome.output) > 0 && !json.Valid(outcome.output) {
			return nil, fmt.Errorf("tool %s returned invalid JSON output", call.Name)
		}
		return outcome.output, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("tool %s timed out after %s", call.Name, o.toolTimeout)
		}
		return nil, fmt.Errorf("tool %s cancelled: %w", call.Name, ctx.Err())
	}
}

// deliverToolResult sends the result and then asks the remote service to
// resume. Send failures are logged and swallowed: the channel may already be
// closing and there is nobody left to tell.
func (o *Orchestrator) deliverToolResult(s *session, call protocol.ToolCallRequest, result protocol.ToolResult) {
	outcome := "succeeded"
	if result.Succeeded {
		o.publish(events.NewToolCallCompleted(call.CallID, call.Name, string(result.Output)))
	} else {
		outcome = "failed"
		var failure protocol.FailureOutput
		_ = json.Unmarshal(result.Output, &failure)
		logger.Warn("tool call failed", "session", s.id, "call_id", call.CallID, "tool", call.Name, "error", failure.Error)
		o.publish(events.NewToolCallFailed(call.CallID, call.Name, failure.Error))
	}
	o.toolCalls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("outcome", outcome),
	))

	o.mu.Lock()
	if o.session == s {
		s.interpreter.Resume()
	}
	o.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.send(result)
	s.send(protocol.NewResponseCreate())
}

// finishToolCall forgets the call and lowers the fetching flag once nothing is
// outstanding.
func (o *Orchestrator) finishToolCall(s *session, call protocol.ToolCallRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(s.inFlight, call.CallID)
	if o.session != s || len(s.inFlight) > 0 {
		return
	}
	o.publish(s.interpreter.ClearFetching()...)
	o.refreshStateLocked(s)
}
