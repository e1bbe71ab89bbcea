package tcp

import "log/slog"

// Logger wraps slog with the leveled helpers the rest of this package
// calls on state transitions and reactions. A nil *Logger is valid and
// discards everything; NewLogger wires in a real slog.Logger.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l. Passing nil yields a Logger that silently discards.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{l: l}
}

func (lg *Logger) debug(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Debug(msg, args...)
}

func (lg *Logger) info(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Info(msg, args...)
}

func (lg *Logger) warn(msg string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Warn(msg, args...)
}

// logTransition records a state-machine step at debug level: the state
// it started in, the stimulus, and where it ended up.
func (lg *Logger) logTransition(from State, stimulus string, to State) {
	lg.debug("tcp: transition", "from", from.String(), "stimulus", stimulus, "to", to.String())
}
