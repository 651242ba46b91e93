package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger for one process. CLI runs get
// a human-readable console writer; setting PRAGENT_LOG_JSON switches to raw
// JSON lines for machine consumption.
func Setup(verbose bool) {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	if os.Getenv("PRAGENT_LOG_JSON") != "" {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ForRun returns a logger tagged with the pipeline run ID so every message
// from one invocation can be correlated.
func ForRun(runID string) zerolog.Logger {
	return log.With().Str("run_id", runID).Logger()
}
