package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the structured logger. Level takes a config value such
// as "debug" and defaults to info. Format "console" switches to zerolog's
// human readable writer for local runs.
type Options struct {
	ServiceName string
	Level       string
	Format      string
	WarnStack   bool
	Output      io.Writer
}

// Logger carries per-request fields through context.Context so that every
// ledger operation logs with its order, withdrawal and provider attached.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return &Logger{
		base: zerolog.New(out).
			Level(ParseLevel(opts.Level)).
			With().
			Timestamp().
			Str("service", opts.ServiceName).
			Logger(),
		warnStack: opts.WarnStack,
	}
}

// ParseLevel maps a config value to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return entry
		}
	}
	return &l.base
}

// enrich stores a child logger built by add on the returned context.
func (l *Logger) enrich(ctx context.Context, add func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := add(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &child)
}

func str(key, value string) func(zerolog.Context) zerolog.Context {
	return func(c zerolog.Context) zerolog.Context { return c.Str(key, value) }
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.enrich(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.enrich(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.enrich(ctx, str("request_id", requestID))
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.enrich(ctx, str("user_id", userID))
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.enrich(ctx, str("order_id", orderID))
}

func (l *Logger) WithWithdrawalID(ctx context.Context, withdrawalID string) context.Context {
	return l.enrich(ctx, str("withdrawal_id", withdrawalID))
}

func (l *Logger) WithProvider(ctx context.Context, provider string) context.Context {
	return l.enrich(ctx, str("provider", provider))
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.enrich(ctx, str("actor_role", role))
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

// Warn attaches a stack only when WarnStack is enabled.
func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		withStack(event)
	}
	event.Msg(msg)
}

// Error always attaches a stack. A nil err is allowed.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.from(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	withStack(event).Msg(msg)
}

func withStack(event *zerolog.Event) *zerolog.Event {
	return event.Str("stack", strings.TrimSpace(string(debug.Stack())))
}
