package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger handed to attrmesh components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger

	// WithContext binds ctx to later entries. A request ID stored with
	// WithRequestID is added to each of them.
	WithContext(ctx context.Context) Logger
}

// Config selects level, encoding and destination of log output.
type Config struct {
	Level  string    // debug, info, warn or error; empty means info
	Format string    // json or text; empty means json
	Output io.Writer // os.Stderr when nil
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// level is shared by every logger New returns, so SetLevel reaches loggers
// that were already handed out.
var level slog.LevelVar

// New builds a Logger from cfg.
func New(cfg Config) (Logger, error) {
	lvl, ok := levels[strings.ToLower(cfg.Level)]
	if !ok && cfg.Level != "" {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: &level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level.Set(lvl)
	return newEntryLogger(requestIDHandler{h}), nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return newEntryLogger(slog.DiscardHandler)
}

// SetLevel changes the level of every logger built by New. Unknown names
// fall back to info.
func SetLevel(name string) {
	level.Set(levels[strings.ToLower(name)])
}

// CurrentLevel returns the active level name.
func CurrentLevel() string {
	return strings.ToLower(level.Level().String())
}

// SetDefault routes the slog and log package defaults through l.
func SetDefault(l Logger) {
	if el, ok := l.(*entryLogger); ok {
		slog.SetDefault(el.sl)
	}
}

// StdLog adapts l for APIs that take a *log.Logger, such as
// http.Server.ErrorLog. Every line is logged at lvl.
func StdLog(l Logger, lvl slog.Level) *log.Logger {
	el, ok := l.(*entryLogger)
	if !ok {
		return log.New(io.Discard, "", 0)
	}
	return slog.NewLogLogger(el.sl.Handler(), lvl)
}

type entryLogger struct {
	sl  *slog.Logger
	ctx context.Context
}

func newEntryLogger(h slog.Handler) *entryLogger {
	return &entryLogger{sl: slog.New(h), ctx: context.Background()}
}

func (l *entryLogger) Debug(msg string, args ...any) { l.sl.Log(l.ctx, slog.LevelDebug, msg, args...) }
func (l *entryLogger) Info(msg string, args ...any) { l.sl.Log(l.ctx, slog.LevelInfo, msg, args...) }
func (l *entryLogger) Warn(msg string, args ...any) { l.sl.Log(l.ctx, slog.LevelWarn, msg, args...) }
func (l *entryLogger) Error(msg string, args ...any) { l.sl.Log(l.ctx, slog.LevelError, msg, args...) }

func (l *entryLogger) With(args ...any) Logger {
	return &entryLogger{sl: l.sl.With(args...), ctx: l.ctx}
}

func (l *entryLogger) WithContext(ctx context.Context) Logger {
	return &entryLogger{sl: l.sl, ctx: ctx}
}

// requestIDHandler tags records with the request ID carried by their context.
type requestIDHandler struct {
	slog.Handler
}

func (h requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestIDHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestIDHandler) WithGroup(name string) slog.Handler {
	return requestIDHandler{h.Handler.WithGroup(name)}
}
