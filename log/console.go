package log

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of a console handler. Styles come from a renderer
// bound to the handler's output, so writers that are not terminals get plain
// text.
type palette struct {
	stamp, key, text, number, flag, fault lipgloss.Style
	message                               lipgloss.Style
	levels                                map[Level]lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return palette{
		stamp:   fg("8"),
		key:     fg("8"),
		text:    fg("6"),
		number:  fg("3"),
		flag:    fg("5"),
		fault:   fg("1"),
		message: r.NewStyle().Bold(true),
		levels: map[Level]lipgloss.Style{
			LevelTrace: fg("4"),
			LevelDebug: fg("4"),
			LevelInfo:  fg("2"),
			LevelWarn:  fg("3"),
			LevelError: fg("1").Bold(true),
		},
	}
}

func (p palette) level(l slog.Level) lipgloss.Style {
	for _, at := range []Level{LevelError, LevelWarn, LevelInfo, LevelDebug} {
		if Level(l) >= at {
			return p.levels[at]
		}
	}

	return p.levels[LevelTrace]
}

// consoleHandler writes one colorized line per record:
//
//	15:04:05 INFO  evaluated module address=lib.0 elapsed=1.2ms
type consoleHandler struct {
	cfg    config
	pal    palette
	mu     *sync.Mutex
	prefix string // open groups, each followed by '.'
	attrs  string // attributes fixed by WithAttrs, already rendered
}

func newConsoleHandler(c config) *consoleHandler {
	return &consoleHandler{cfg: c, pal: newPalette(c.output), mu: &sync.Mutex{}}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.Level(h.cfg.level)
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		if s := h.cfg.stamp(r.Time); s != "" {
			b.WriteString(h.pal.stamp.Render(s))
			b.WriteByte(' ')
		}
	}

	name := strings.ToUpper(Level(r.Level).String())
	b.WriteString(h.pal.level(r.Level).Render(name))
	b.WriteString(strings.Repeat(" ", max(0, 5-len(name))))

	if h.cfg.caller && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteByte(' ')
		b.WriteString(h.pal.stamp.Render(filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)))
	}

	b.WriteByte(' ')
	b.WriteString(h.pal.message.Render(r.Message))
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)

		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.cfg.output, b.String())

	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var b strings.Builder

	b.WriteString(h.attrs)

	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}

	c := *h
	c.attrs = b.String()

	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.prefix += name + "."

	return &c
}

func (h *consoleHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}

		for _, g := range a.Value.Group() {
			h.writeAttr(b, prefix, g)
		}

		return
	}

	b.WriteByte(' ')
	b.WriteString(h.pal.key.Render(prefix + a.Key + "="))
	b.WriteString(h.value(a.Value))
}

func (h *consoleHandler) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return h.pal.text.Render(quote(v.String()))

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindDuration:
		return h.pal.number.Render(v.String())

	case slog.KindBool:
		return h.pal.flag.Render(v.String())

	case slog.KindTime:
		if s := h.cfg.stamp(v.Time()); s != "" {
			return h.pal.stamp.Render(s)
		}

		return h.pal.stamp.Render(v.Time().Format(time.RFC3339))
	}

	if err, ok := v.Any().(error); ok {
		return h.pal.fault.Render(quote(err.Error()))
	}

	return h.pal.text.Render(quote(v.String()))
}

// quote leaves s bare unless it is empty or holds spaces, quotes, '=' or
// control characters.
func quote(s string) string {
	if s == "" || slices.ContainsFunc([]rune(s), func(r rune) bool {
		return r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) {
		return strconv.Quote(s)
	}

	return s
}
