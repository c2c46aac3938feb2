package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// hoistedKeys are the watchdog identifiers printed directly after the
// message, in this order, ahead of any other attributes. Capture
// activity is tailed live during an incident; the request and its
// record must be findable without scanning a key=value soup.
var hoistedKeys = []string{"request_id", "record", "elapsed", "enabled"}

// ConsoleHandler renders one human-oriented line per record for
// interactive runs. Non-TTY output gets the JSON handler instead.
type ConsoleHandler struct {
	level  slog.Level
	prefix string
	attrs  []slog.Attr

	mu *sync.Mutex
	w  io.Writer
}

// NewConsoleHandler creates a console handler writing to w.
func NewConsoleHandler(w io.Writer, level slog.Level) *ConsoleHandler {
	return &ConsoleHandler{
		level: level,
		mu:    &sync.Mutex{},
		w:     w,
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	flat := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		flat = flatten(flat, h.prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flat = flatten(flat, h.prefix, a)
		return true
	})

	var b strings.Builder
	b.WriteString(ansiDim)
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteString(ansiReset)
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, key := range hoistedKeys {
		for _, a := range flat {
			if a.Key == key {
				fmt.Fprintf(&b, " %s%s=%v%s", ansiCyan, a.Key, a.Value.Any(), ansiReset)
			}
		}
	}
	for _, a := range flat {
		if !isHoisted(a.Key) {
			fmt.Fprintf(&b, " %s%s=%v%s", ansiDim, a.Key, a.Value.Any(), ansiReset)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, b.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	c.attrs = append(c.attrs, attrs...)
	return &c
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// flatten expands group attributes into dotted keys.
func flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			dst = flatten(dst, prefix+a.Key+".", ga)
		}
		return dst
	}
	a.Key = prefix + a.Key
	return append(dst, a)
}

func isHoisted(key string) bool {
	for _, k := range hoistedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return ansiRed + "ERROR" + ansiReset
	case l >= slog.LevelWarn:
		return ansiYellow + " WARN" + ansiReset
	case l >= slog.LevelInfo:
		return ansiGreen + " INFO" + ansiReset
	default:
		return ansiDim + "DEBUG" + ansiReset
	}
}
