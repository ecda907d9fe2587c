// Package nlog is the connector's structured-logging front door: a thin
// wrapper over log/slog that keeps call sites terse (Infoln/Infof/Errorln).
package nlog

import (
	"fmt"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetHandler replaces the default handler, e.g. to switch to JSON output or
// raise the level in production.
func SetHandler(h slog.Handler) {
	logger = slog.New(h)
}

func Infoln(args ...any) {
	logger.Info(fmt.Sprintln(args...))
}

func Infof(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...))
}

func Errorln(args ...any) {
	logger.Error(fmt.Sprintln(args...))
}

func Errorf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
}

func Warnln(args ...any) {
	logger.Warn(fmt.Sprintln(args...))
}

func Warnf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...))
}
