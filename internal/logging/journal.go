package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler is a slog.Handler writing structured entries to journald.
// Attributes become journal fields: names are upper-cased, characters other
// than letters, digits and '_' become '_', and groups join with '_'.
type JournalHandler struct {
	level  slog.Leveler
	attrs  map[string]string
	prefix string

	send func(message string, priority journal.Priority, fields map[string]string) error
}

func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, attrs: map[string]string{}, send: journal.Send}
}

func (h *JournalHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.attrs)+r.NumAttrs()+1)
	for k, v := range h.attrs {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})
	fields["SYSLOG_IDENTIFIER"] = "spawn"
	return h.send(r.Message, priority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		addAttr(c.attrs, c.prefix, a)
	}
	return c
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = c.prefix + name + "_"
	return c
}

func (h *JournalHandler) clone() *JournalHandler {
	c := *h
	c.attrs = make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		c.attrs[k] = v
	}
	return &c
}

func addAttr(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "_"
		}
		for _, g := range a.Value.Group() {
			addAttr(fields, p, g)
		}
		return
	}
	if name := fieldName(prefix + a.Key); name != "" {
		fields[name] = a.Value.String()
	}
}

// fieldName maps an attribute key to a valid journal field name. Names may
// not start with '_', which journald reserves for trusted fields.
func fieldName(key string) string {
	b := []byte(strings.ToUpper(key))
	for i, c := range b {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			b[i] = '_'
		}
	}
	name := strings.TrimLeft(string(b), "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "F_" + name
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

func priority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
