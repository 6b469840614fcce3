package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core to record error logs as OpenTelemetry spans.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a core that records entries at or above ErrorLevel.
func NewCore() zapcore.Core {
	return &Core{
		LevelEnabler: zapcore.ErrorLevel,
		tracer:       otel.Tracer("github.com/ora-civic/ora/logs"),
	}
}

// WrapLogger tees error logs of the logger into spans.
func WrapLogger(logger *zap.Logger) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, NewCore())
	}))
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, span := c.tracer.Start(context.Background(), "error."+errorCategory(ent))
	defer span.End()

	span.SetAttributes(spanAttributes(ent, append(append([]zapcore.Field{}, c.fields...), fields...))...)
	return nil
}

func (c *Core) Sync() error {
	return nil
}

// spanAttributes flattens a log entry and its fields into span attributes.
func spanAttributes(ent zapcore.Entry, fields []zapcore.Field) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("error.message", ent.Message),
		attribute.String("error.level", ent.Level.String()),
		attribute.String("error.caller", ent.Caller.String()),
	}
	if ent.LoggerName != "" {
		attrs = append(attrs, attribute.String("error.logger", ent.LoggerName))
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, stringify(value)))
	}

	return attrs
}

func stringify(value any) string {
	if err, ok := value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(value)
}

// errorCategory names the internal package that logged the entry.
func errorCategory(ent zapcore.Entry) string {
	_, pkg, found := strings.Cut(ent.Caller.Function, "/internal/")
	if !found {
		return "application"
	}

	if end := strings.IndexAny(pkg, "/."); end >= 0 {
		pkg = pkg[:end]
	}
	return pkg
}
