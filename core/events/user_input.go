package events

const (
	// KindUserTranscriptUpdated identifies the mutable in-progress utterance.
	KindUserTranscriptUpdated Kind = "user_input.transcript_updated"
	// KindUserTranscriptFinal identifies the committed utterance.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
)

// UserTranscriptUpdated carries the accumulated utterance so far.
type UserTranscriptUpdated struct {
	Base
	ItemID     string
	Transcript string
}

// NewUserTranscriptUpdated creates an in-progress transcript event.
func NewUserTranscriptUpdated(itemID, transcript string) UserTranscriptUpdated {
	return UserTranscriptUpdated{Base: NewBase(KindUserTranscriptUpdated), ItemID: itemID, Transcript: transcript}
}

// UserTranscriptFinal carries the committed utterance. It is emitted exactly
// once per final transcript received from the remote service.
type UserTranscriptFinal struct {
	Base
	ItemID     string
	Transcript string
}

// NewUserTranscriptFinal creates a committed utterance event.
func NewUserTranscriptFinal(itemID, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), ItemID: itemID, Transcript: transcript}
}
