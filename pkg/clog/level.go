package clog

import (
	"log/slog"
	"os"

	"github.com/kazz187/taskdeps/pkg/cerr"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// CodeToLevel decides how loudly an engine error should be logged.
// Warning-grade codes (duplicate edge, dependency not present) stay
// below error level so speculative repair calls don't spam logs.
func CodeToLevel(code cerr.Code) slog.Level {
	switch code {
	case cerr.OK, cerr.Canceled:
		return slog.LevelDebug
	case cerr.InvalidArgument, cerr.NotFound, cerr.AlreadyExists, cerr.FailedPrecondition, cerr.OutOfRange:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Setup installs the colored text handler as the default slog logger.
func Setup(level slog.Level, colored bool) {
	handler := NewTextHandler(os.Stderr, WithLevel(level), WithColor(colored))
	slog.SetDefault(slog.New(handler))
}

// Err wraps an error as the attr the text handler renders in red.
func Err(err error) slog.Attr {
	return slog.Any(ErrorAttributeKey, err)
}
