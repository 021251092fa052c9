package portaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/chukwumela909/voice-agent-market/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)
