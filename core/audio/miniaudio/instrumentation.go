package miniaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/chukwumela909/voice-agent-market/core/audio/miniaudio"

var logger = otelslog.NewLogger(scopeName)
