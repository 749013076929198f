package simlog

import (
	"context"
	"log/slog"

	"github.com/triathematician/blaisemath-sub005/internal/sim"
)

// Logger writes events as slog records. Step output is logged at debug level.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With("component", "simulation")}
}

func (l *Logger) LogEvent(e sim.Event) {
	level := slog.LevelInfo
	if e.Kind == sim.EventFault {
		level = slog.LevelWarn
	}
	l.logger.Log(context.Background(), level, e.Message,
		"event", string(e.Kind),
		"subject", e.Subject,
		"object", e.Object,
		"x", e.Location[0],
		"y", e.Location[1],
		"time", e.Time,
	)
}

func (l *Logger) LogAll(step int, table *sim.DistanceTable) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.logger.Log(ctx, slog.LevelDebug, "step",
		"step", step,
		"time", table.Time(),
		"active", table.Len(),
	)
}

// Multi fans every call out to each sink in order.
type Multi []sim.Log

func (m Multi) LogEvent(e sim.Event) {
	for _, l := range m {
		l.LogEvent(e)
	}
}

func (m Multi) LogAll(step int, table *sim.DistanceTable) {
	for _, l := range m {
		l.LogAll(step, table)
	}
}
