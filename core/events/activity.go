package events

const (
	// KindListeningChanged identifies the listening flag changing.
	KindListeningChanged Kind = "activity.listening_changed"
	// KindSpeakingChanged identifies the remote vocalizing flag changing.
	KindSpeakingChanged Kind = "activity.speaking_changed"
	// KindFetchingChanged identifies the fetching flag changing.
	KindFetchingChanged Kind = "activity.fetching_changed"
	// KindPresenceUpdated identifies a new smoothed presence sample.
	KindPresenceUpdated Kind = "activity.presence_updated"
)

type ListeningChanged struct {
	Base
	Listening bool
}

func NewListeningChanged(listening bool) ListeningChanged {
	return ListeningChanged{Base: NewBase(KindListeningChanged), Listening: listening}
}

type SpeakingChanged struct {
	Base
	Speaking bool
}

func NewSpeakingChanged(speaking bool) SpeakingChanged {
	return SpeakingChanged{Base: NewBase(KindSpeakingChanged), Speaking: speaking}
}

// FetchingChanged carries the fetching flag. ToolName is the tool that caused
// the flag to be raised and is empty when the flag clears.
type FetchingChanged struct {
	Base
	Fetching bool
	ToolName string
}

func NewFetchingChanged(fetching bool, toolName string) FetchingChanged {
	return FetchingChanged{Base: NewBase(KindFetchingChanged), Fetching: fetching, ToolName: toolName}
}

// PresenceUpdated carries a smoothed activity level in [0,1].
type PresenceUpdated struct {
	Base
	Level            float64
	RemoteVocalizing bool
}

func NewPresenceUpdated(level float64, remoteVocalizing bool) PresenceUpdated {
	return PresenceUpdated{Base: NewBase(KindPresenceUpdated), Level: level, RemoteVocalizing: remoteVocalizing}
}
