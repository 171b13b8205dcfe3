package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Log is one structured log line captured from slog output.
type Log struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Setup installs a charmbracelet/log backed slog default logger writing to
// w. When capture is non-nil every record is also decoded into the store.
func Setup(w io.Writer, lvl *slog.LevelVar, capture *Store) *slog.Logger {
	console := charmlog.NewWithOptions(w, charmlog.Options{
		Prefix:          "chatbody",
		ReportTimestamp: true,
		Level:           charmlog.DebugLevel,
	})

	var handler slog.Handler = &levelHandler{Handler: console, lvl: lvl}
	if capture != nil {
		captured := slog.NewTextHandler(NewWriter(capture), &slog.HandlerOptions{Level: lvl})
		handler = fanout{handler, captured}
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// RecoverPanic is a common function to handle panics gracefully.
// It logs the error, creates a panic log file with stack trace,
// and executes an optional cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		slog.Error("panic recovered", "where", name, "panic", r)

		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("chatbody-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err != nil {
			slog.Error("failed to create panic log file", "path", filename, "error", err)
		} else {
			defer file.Close()
			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", string(debug.Stack()))
			slog.Info("panic details written", "path", filename)
		}

		if cleanup != nil {
			cleanup()
		}
	}
}
