package observability

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging surface services depend on. Keeping it to two
// levels keeps fakes in tests trivial.
type Logger struct {
	z zerolog.Logger
}

func NewLogger() *Logger {
	z := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &Logger{z: z}
}

func (l *Logger) Info(msg string) {
	l.z.Info().Msg(msg)
}

func (l *Logger) Error(msg string) {
	l.z.Error().Msg(msg)
}
