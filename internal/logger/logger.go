package logger

import (
	"io"
	"log/slog"
	"os"
)

var Logger = slog.Default()

// Init configures the process-wide logger. DEBUG=true lowers the level,
// LOG_FORMAT=json switches to the JSON handler.
func Init() {
	InitWriter(os.Stdout, os.Getenv("DEBUG") == "true", os.Getenv("LOG_FORMAT"))
}

func InitWriter(w io.Writer, debug bool, format string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(h)
	slog.SetDefault(Logger)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
