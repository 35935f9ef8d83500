// Package logging routes the OpenTelemetry log records every package emits
// through its otelslog logger to a slog.Handler chosen by the binary.
package logging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/global"
)

// ScopeKey is the attribute holding the instrumentation scope of a record.
const ScopeKey = "scope"

var (
	installOnce sync.Once
	installed   = &LoggerProvider{}
)

// Install makes handler the destination of all OpenTelemetry logs. Loggers
// obtained before the call are redirected too. Later calls swap the
// handler.
func Install(handler slog.Handler) {
	installed.SetHandler(handler)
	installOnce.Do(func() { global.SetLoggerProvider(installed) })
}

// LoggerProvider forwards records to a swappable slog.Handler. Without a
// handler every record is dropped.
type LoggerProvider struct {
	embedded.LoggerProvider

	handler atomic.Pointer[slog.Handler]
}

func NewLoggerProvider(handler slog.Handler) *LoggerProvider {
	p := &LoggerProvider{}
	p.SetHandler(handler)
	return p
}

func (p *LoggerProvider) SetHandler(handler slog.Handler) {
	p.handler.Store(&handler)
}

func (p *LoggerProvider) Logger(name string, _ ...log.LoggerOption) log.Logger {
	return &logger{provider: p, scope: name}
}

func (p *LoggerProvider) current() slog.Handler {
	if handler := p.handler.Load(); handler != nil {
		return *handler
	}
	return nil
}

type logger struct {
	embedded.Logger

	provider *LoggerProvider
	scope    string
}

func (l *logger) Enabled(ctx context.Context, param log.EnabledParameters) bool {
	handler := l.provider.current()
	return handler != nil && handler.Enabled(ctx, level(param.Severity))
}

func (l *logger) Emit(ctx context.Context, record log.Record) {
	handler := l.provider.current()
	lvl := level(record.Severity())
	if handler == nil || !handler.Enabled(ctx, lvl) {
		return
	}

	at := record.Timestamp()
	if at.IsZero() {
		at = record.ObservedTimestamp()
	}
	body := record.Body()
	message := body.String()
	if body.Kind() == log.KindString {
		message = body.AsString()
	}

	out := slog.NewRecord(at, lvl, message, 0)
	if l.scope != "" {
		out.AddAttrs(slog.String(ScopeKey, l.scope))
	}
	record.WalkAttributes(func(kv log.KeyValue) bool {
		out.AddAttrs(slog.Attr{Key: kv.Key, Value: value(kv.Value)})
		return true
	})
	_ = handler.Handle(ctx, out)
}

// level maps an OpenTelemetry severity to the slog level otelslog derived
// it from. Unset severities log at info.
func level(severity log.Severity) slog.Level {
	if severity == log.SeverityUndefined {
		return slog.LevelInfo
	}
	return slog.Level(int(severity) - int(log.SeverityInfo))
}

func value(v log.Value) slog.Value {
	switch v.Kind() {
	case log.KindBool:
		return slog.BoolValue(v.AsBool())
	case log.KindFloat64:
		return slog.Float64Value(v.AsFloat64())
	case log.KindInt64:
		return slog.Int64Value(v.AsInt64())
	case log.KindString:
		return slog.StringValue(v.AsString())
	case log.KindBytes:
		return slog.AnyValue(v.AsBytes())
	case log.KindSlice:
		items := v.AsSlice()
		values := make([]any, 0, len(items))
		for _, item := range items {
			values = append(values, value(item).Any())
		}
		return slog.AnyValue(values)
	case log.KindMap:
		fields := v.AsMap()
		attrs := make([]slog.Attr, 0, len(fields))
		for _, field := range fields {
			attrs = append(attrs, slog.Attr{Key: field.Key, Value: value(field.Value)})
		}
		return slog.GroupValue(attrs...)
	default:
		return slog.AnyValue(nil)
	}
}
