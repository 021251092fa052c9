// Package events defines the typed signal surface of a voice session.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - activity.*
//   - user_input.*
//   - assistant_response.*
//   - tool_call.*
//   - turn_state.*
//
// Semantics used across the package:
//
//   - Changed: a flag or state moved to a new value. Repeats of the same value
//     are never published.
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Segment: append-only text piece emitted in stream order.
//   - Final: terminal immutable text/state for the current stream/turn phase.
//
// session events
//
//   - ConnectionStateChanged (session.state_changed): lifecycle transition,
//     including the derived listening/agent_speaking/fetching states.
//   - ConnectivityChanged (session.connectivity_changed): a session became
//     usable or stopped being usable.
//   - Disconnected (session.disconnected): session torn down; Unexpected is
//     set for transport failures.
//   - ErrorOccurred (session.error): user facing error message.
//
// activity events
//
//   - ListeningChanged (activity.listening_changed)
//   - SpeakingChanged (activity.speaking_changed): remote vocalizing flag.
//   - FetchingChanged (activity.fetching_changed): carries the tool name when
//     raised.
//   - PresenceUpdated (activity.presence_updated): smoothed level in [0,1].
//
// user_input events
//
//   - UserTranscriptUpdated (user_input.transcript_updated): accumulated
//     in-progress utterance.
//   - UserTranscriptFinal (user_input.transcript_final): committed utterance.
//
// assistant_response events
//
//   - AssistantResponseSegment (assistant_response.segment): streamed response
//     text segment.
//   - AssistantResponseFinal (assistant_response.final): spoken response ended.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): tool execution started.
//   - ToolCallCompleted (tool_call.completed): tool execution completed.
//   - ToolCallFailed (tool_call.failed): tool execution failed.
//
// turn_state events
//
//   - TurnCompleted (turn_state.completed): remote closed the turn.
//   - TurnCancelled (turn_state.cancelled): response cancelled by barge-in.
package events
