package log

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// Logger provides structured logging backed by zap.
// Attributes are passed as alternating key/value pairs.
type Logger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	core := zapcore.NewCore(
		newEncoder(config),
		zapcore.AddSync(config.Output.Writer()),
		zap.NewAtomicLevelAt(config.Level.ToZapLevel()),
	)

	opts := []zap.Option{}
	if config.AddSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	base := zap.New(core, opts...)
	if config.ServiceName != "" {
		base = base.With(zap.String("service", config.ServiceName))
	}
	if config.ServiceVersion != "" {
		base = base.With(zap.String("version", config.ServiceVersion))
	}

	return &Logger{
		base:   base,
		sugar:  base.Sugar(),
		config: config,
	}
}

func newEncoder(config Config) zapcore.Encoder {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeCaller = zapcore.ShortCallerEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder
	encoder.CallerKey = "caller"

	if config.Format == FormatText {
		encoder.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoder)
	}
	return zapcore.NewJSONEncoder(encoder)
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// Development creates a logger with development configuration
func Development() *Logger {
	return New(DevelopmentConfig())
}

// Production creates a logger with production configuration
func Production() *Logger {
	return New(ProductionConfig())
}

// Nop returns a logger that discards everything. Used by tests and
// components constructed without a logger.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, sugar: base.Sugar(), config: DefaultConfig()}
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	sugar := l.sugar.With(args...)
	return &Logger{
		base:   sugar.Desugar(),
		sugar:  sugar,
		config: l.config,
	}
}

// Named returns a new Logger scoped to a component name
func (l *Logger) Named(name string) *Logger {
	base := l.base.Named(name)
	return &Logger{
		base:   base,
		sugar:  base.Sugar(),
		config: l.config,
	}
}

// WithError adds error details to the logger.
// If the error is a PortalError, it adds error_code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	var portalErr *perrors.PortalError
	if errors.As(err, &portalErr) {
		args := []any{
			"error", portalErr.Message,
			"error_code", string(portalErr.Code),
		}

		if len(portalErr.Suggestions) > 0 {
			args = append(args, "suggestions", portalErr.Suggestions)
		}

		if portalErr.Cause != nil {
			args = append(args, "cause", portalErr.Cause.Error())
		}

		return l.With(args...)
	}

	return l.With("error", err.Error())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// DebugContext logs a debug message with context
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, append(args, contextFields(ctx)...)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// InfoContext logs an info message with context
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, append(args, contextFields(ctx)...)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// WarnContext logs a warning message with context
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, append(args, contextFields(ctx)...)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// ErrorContext logs an error message with context
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, append(args, contextFields(ctx)...)...)
}

// LogError logs a PortalError with full details
func (l *Logger) LogError(err error) {
	if err == nil {
		return
	}

	var portalErr *perrors.PortalError
	if errors.As(err, &portalErr) {
		args := []any{
			"error_code", string(portalErr.Code),
			"error_message", portalErr.Message,
		}

		if len(portalErr.Suggestions) > 0 {
			args = append(args, "suggestions", portalErr.Suggestions)
		}

		if portalErr.DocsURL != "" {
			args = append(args, "docs_url", portalErr.DocsURL)
		}

		if portalErr.Cause != nil {
			args = append(args, "cause", portalErr.Cause.Error())
		}

		l.Error("operation failed", args...)
		return
	}

	l.Error("operation failed", "error", err.Error())
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(level Level) bool {
	return l.base.Core().Enabled(level.ToZapLevel())
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that *Context log calls include
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func contextFields(ctx context.Context) []any {
	if id := RequestIDFromContext(ctx); id != "" {
		return []any{"request_id", id}
	}
	return nil
}
