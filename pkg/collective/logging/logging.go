// Package logging defines the small structured-logging facade used across
// the collective packages, so callers can supply their own implementation
// for tests or redaction policies without pulling collective into their
// choice of logging library. It also carries two conventions specific to
// this repo: redacting the network half of a Group's topology, and logging
// a blocking collective operation's context cancellation at the level that
// matches why it was canceled.
package logging

import (
	"context"
	"errors"
	"log/slog"
	"net"
)

const redactedPlaceholder = "[redacted]"

// Logger defines the subset of slog functionality the collective packages
// use.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a Logger backed by the provided slog.Logger. Passing nil
// binds to slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// Redacted marks an attribute whose value must not be logged, e.g. a peer
// address pulled from cluster config.
func Redacted(key string) slog.Attr {
	return slog.String(key, redactedPlaceholder)
}

// Placeholder returns the canonical string standing in for a redacted
// value.
func Placeholder() string {
	return redactedPlaceholder
}

// PeerAddr returns a log attribute for a cluster party's dial address that
// keeps the port but redacts the host, the way a Group's cluster topology
// is handled everywhere it reaches a log line: the port is enough to
// correlate log output across parties running on the same loopback host
// during a demo run, without leaking real host/IP addresses into logs that
// might be shared outside the run.
func PeerAddr(key, address string) slog.Attr {
	_, port, err := net.SplitHostPort(address)
	if err != nil || port == "" {
		return Redacted(key)
	}
	return slog.String(key, "*:"+port)
}

// Cancellation logs ctx's cancellation at the level matching its cause —
// Warn if the run's deadline was exceeded (an operational concern worth
// flagging), Info if it was an explicit Cancel (ordinary shutdown) — and
// reports whether ctx was actually done. Collectives strategies themselves
// only propagate ctx.Err(); this is the one place in the CLI that turns
// that propagated error into a structured log line naming which operation
// observed it.
func Cancellation(ctx context.Context, log Logger, op string) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn(ctx, op+" canceled", "cause", "deadline_exceeded")
	} else {
		log.Info(ctx, op+" canceled", "cause", "explicit_cancel")
	}
	return true
}
