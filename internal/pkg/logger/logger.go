// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Options controls the process-wide logger.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console or json
	Service string
	Output  io.Writer
}

// Init configures the global zerolog logger. It is called once from the composition root.
func Init(opts Options) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().Timestamp()
	if opts.Service != "" {
		l = l.Str("service", opts.Service)
	}
	log.Logger = l.Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// Ctx returns the request-scoped logger stored in ctx, falling back to the global logger.
// The active trace id, when present, is attached so log lines can be joined with Jaeger traces.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &log.Logger
	}
	l := zerolog.Ctx(ctx)
	if l == nil || l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		withTrace := l.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &withTrace
	}
	return l
}

// WithRequestID stores a child logger carrying the request id in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := Ctx(ctx).With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}
