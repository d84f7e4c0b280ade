// Package telemetry provides internal structured diagnostics (currently
// used only by cmd/swarm-worker's startup): error logging distinct from the
// audit trail (which is mission domain data) and from a worker's stdout
// log-tee (which is the LLM's own output). AG_SWARM_LOG_LEVEL=silent
// disables it without changing any scheduling or retry behavior.
package telemetry

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a component-scoped zerolog.Logger writing to stderr, honoring
// AG_SWARM_LOG_LEVEL (debug|info|warn|error|silent, default info).
func New(component string) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("AG_SWARM_LOG_LEVEL")) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "silent":
		level = zerolog.Disabled
	}
	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
