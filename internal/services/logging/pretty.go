package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyHandler is a lightweight slog handler for console output.
//
// Format:
//
//	15:04:05.000 INF [component] message key=value ...
type PrettyHandler struct {
	w       io.Writer
	mu      *sync.Mutex
	level   slog.Level
	timeFmt string
	fixed   []slog.Attr
}

func NewPrettyHandler(w io.Writer, level slog.Level) *PrettyHandler {
	return &PrettyHandler{
		w:       w,
		mu:      &sync.Mutex{},
		level:   level,
		timeFmt: "15:04:05.000",
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	comp := ""
	attrs := make([]slog.Attr, 0, len(h.fixed)+r.NumAttrs())
	for _, a := range h.fixed {
		if a.Key == "comp" || a.Key == "component" {
			comp = fmt.Sprint(a.Value.Any())
			continue
		}
		attrs = append(attrs, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "comp" || a.Key == "component" {
			comp = fmt.Sprint(a.Value.Any())
			return true
		}
		attrs = append(attrs, a)
		return true
	})

	var b strings.Builder
	ts := r.Time.Local().Format(h.timeFmt)
	b.WriteString(ts)
	b.WriteString(" ")
	b.WriteString(levelShort(r.Level))
	if comp != "" {
		b.WriteString(" [")
		b.WriteString(comp)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(valString(a.Value))
	}
	b.WriteString("\n")

	h.mu.Lock()
	_, _ = io.WriteString(h.w, b.String())
	h.mu.Unlock()
	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.fixed = append(append([]slog.Attr(nil), h.fixed...), attrs...)
	return &cp
}

// WithGroup is accepted but flattened; console output stays key=value.
func (h *PrettyHandler) WithGroup(string) slog.Handler { return h }

func levelShort(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func valString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}
