//go:build js && wasm
// +build js,wasm

package debug

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"syscall/js"
)

// ConsoleHandler writes records to the browser console, picking
// console.debug, info, warn or error by level.
type ConsoleHandler struct {
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewConsoleHandler creates a handler that drops records below level.
func NewConsoleHandler(level slog.Leveler) *ConsoleHandler {
	return &ConsoleHandler{level: level}
}

func (h *ConsoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	var method string
	switch {
	case r.Level >= slog.LevelError:
		method = "error"
	case r.Level >= slog.LevelWarn:
		method = "warn"
	case r.Level >= slog.LevelInfo:
		method = "info"
	default:
		method = "debug"
	}
	js.Global().Get("console").Call(method, b.String())
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}

// EnableLogging installs a console logger at level as the default logger.
func EnableLogging(level slog.Level) *slog.Logger {
	logger := slog.New(NewConsoleHandler(level))
	slog.SetDefault(logger)
	return logger
}
