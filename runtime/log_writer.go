package runtime

import (
	"fmt"
	"log/slog"
	"strings"
)

// BadgerLogger redirects badger's own logging to the application's slog.Logger.
// It satisfies badger.Logger.
type BadgerLogger struct {
	logger *slog.Logger
}

func NewBadgerLogger(logger *slog.Logger) *BadgerLogger {
	return &BadgerLogger{logger: logger.With("component", "badger")}
}

func (w *BadgerLogger) Errorf(format string, args ...any) {
	w.logger.Error(clean(format, args...))
}

func (w *BadgerLogger) Warningf(format string, args ...any) {
	w.logger.Warn(clean(format, args...))
}

func (w *BadgerLogger) Infof(format string, args ...any) {
	w.logger.Info(clean(format, args...))
}

func (w *BadgerLogger) Debugf(format string, args ...any) {
	w.logger.Debug(clean(format, args...))
}

// clean removes the trailing newline badger adds to every entry.
func clean(format string, args ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
