package events

const (
	// KindAssistantResponseSegment identifies streamed assistant response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies assistant response completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseSegment carries a streamed assistant response text segment.
type AssistantResponseSegment struct {
	Base
	ResponseID string
	Segment    string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(responseID, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), ResponseID: responseID, Segment: segment}
}

// AssistantResponseFinal marks the end of one spoken response.
type AssistantResponseFinal struct {
	Base
	ResponseID string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(responseID string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), ResponseID: responseID}
}
