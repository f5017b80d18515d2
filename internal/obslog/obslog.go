// Package obslog wires the structured logger the validator pipeline and
// CLI use at stage boundaries, replacing the original's bare
// print('Unexpected Error', traceback.format_exc()) with a structured
// zerolog event.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. Callers that need a
// differently-configured logger (e.g. tests wanting a silent sink) can
// replace it with Init.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

// Init reconfigures Logger to write JSON lines to w at the given level,
// used by the CLI's --json flag and by tests that want a quiet logger.
func Init(w io.Writer, level zerolog.Level) {
	Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// StageEntered logs that a validator stage is about to run.
func StageEntered(code, name string) {
	Logger.Debug().Str("stage_code", code).Str("stage", name).Msg("stage entered")
}

// StageFailed logs that a validator stage produced errors and the
// pipeline is short-circuiting.
func StageFailed(code, name string, errCount int) {
	Logger.Warn().Str("stage_code", code).Str("stage", name).Int("errors", errCount).
		Msg("stage failed, pipeline stopped")
}

// Recovered logs a panic caught at a stage boundary, the structured
// replacement for the original's stderr stack dump.
func Recovered(stageCode string, r interface{}) {
	Logger.Error().Str("stage_code", stageCode).Interface("panic", r).
		Msg("unexpected error recovered at stage boundary")
}
