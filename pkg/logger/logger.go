package logger

import (
	"fmt"
	"log"
	"log/slog"
	"os"
)

// New returns a stdlib logger with component prefix. A non-nil base routes its output through slog.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		prefix := fmt.Sprintf("[%s] ", component)
		return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile)
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}
