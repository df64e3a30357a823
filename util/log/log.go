package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

/*
Thin structured logging wrapper over slog, with support for stashing
key/value tags in a context so that call sites deep in the decode path
pick up caller-supplied attribution for free.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const (
	logTagKey contextKey = iota
)

// AddTags attaches key/value pairs to the context. They are appended to
// every record logged with that context.
func AddTags(ctx context.Context, kvs ...any) context.Context {
	if len(kvs)%2 != 0 {
		panic("log: AddTags requires an even number of arguments")
	}
	tags, _ := ctx.Value(logTagKey).([]any)
	return context.WithValue(ctx, logTagKey, append(tags, kvs...))
}

func levelf(ctx context.Context, level slog.Level, format string, args ...any) {
	handler := slog.Default().Handler()
	if !handler.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	tags, _ := ctx.Value(logTagKey).([]any)
	for i := 0; i+1 < len(tags); i += 2 {
		r.Add(tags[i].(string), tags[i+1])
	}
	if err := handler.Handle(ctx, r); err != nil {
		slog.ErrorContext(ctx, "error handling log record", "error", err)
	}
}

func Infof(ctx context.Context, format string, args ...any) {
	levelf(ctx, slog.LevelInfo, format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	levelf(ctx, slog.LevelError, format, args...)
}

func Debugf(ctx context.Context, format string, args ...any) {
	levelf(ctx, slog.LevelDebug, format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	levelf(ctx, slog.LevelWarn, format, args...)
}
