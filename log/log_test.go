package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestMake_Defaults(t *testing.T) {
	l := Make(&bytes.Buffer{})

	if l.Level() != LevelInfo {
		t.Errorf("Level() = %v, want info", l.Level())
	}

	if l.Format() != FormatText {
		t.Errorf("Format() = %v, want text", l.Format())
	}

	if _, ok := l.handler.(*consoleHandler); !ok {
		t.Errorf("handler = %T, want *consoleHandler", l.handler)
	}
}

func TestLogger_Levels(t *testing.T) {
	emit := map[string]func(Logger){
		"trace": func(l Logger) { l.Trace("m") },
		"debug": func(l Logger) { l.Debug("m") },
		"info":  func(l Logger) { l.Info("m") },
		"warn":  func(l Logger) { l.Warn("m") },
		"error": func(l Logger) { l.Error("m") },
	}

	tests := []struct {
		level Level
		want  []string
	}{
		{LevelTrace, []string{"trace", "debug", "info", "warn", "error"}},
		{LevelInfo, []string{"info", "warn", "error"}},
		{LevelError, []string{"error"}},
		{LevelOff, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			for name, fn := range emit {
				var buf bytes.Buffer

				fn(Make(&buf, WithLevel(tt.level), WithFormat(FormatJSON)))

				want := false
				for _, w := range tt.want {
					want = want || w == name
				}

				if got := buf.Len() > 0; got != want {
					t.Errorf("%s at %s: wrote %v, want %v", name, tt.level, got, want)
				}

				if want && !strings.Contains(buf.String(), `"level":"`+strings.ToUpper(name)+`"`) {
					t.Errorf("%s record has wrong level: %s", name, buf.String())
				}
			}
		})
	}
}

func TestLogger_Formats(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{
			"json",
			[]Option{WithFormat(FormatJSON)},
			[]string{`"msg":"loaded cache"`, `"entries":3`, `"path":"/tmp/cache.json"`},
		},
		{
			"text",
			[]Option{WithPretty(false)},
			[]string{`msg="loaded cache"`, "entries=3", "path=/tmp/cache.json"},
		},
		{
			"pretty",
			nil,
			[]string{"INFO  loaded cache", " entries=3", " path=/tmp/cache.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			l := Make(&buf, append(tt.opts, WithTimeLayout("none"))...)
			l.Info("loaded cache", slog.Int("entries", 3), slog.String("path", "/tmp/cache.json"))

			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestLogger_JSONIsOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON))
	l.Info("first")
	l.Warn("second", slog.Bool("cached", true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}

	for _, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Errorf("line %q: %v", line, err)
		}

		if _, ok := m["time"]; !ok {
			t.Errorf("line %q has no time", line)
		}
	}
}

func TestLogger_Caller(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"pretty", nil, "log_test.go:"},
		{"json", []Option{WithFormat(FormatJSON)}, `"file":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			Make(&buf, append(tt.opts, WithCaller(true))...).Info("here")

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}

			buf.Reset()
			Make(&buf, tt.opts...).Info("here")

			if strings.Contains(buf.String(), tt.want) {
				t.Errorf("caller written while disabled:\n%s", buf.String())
			}
		})
	}
}

func TestLogger_WithKeepsOriginal(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf, WithTimeLayout("none"))
	child := base.With(slog.String("address", "main.0"))

	base.Info("base")
	child.Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	if strings.Contains(lines[0], "address") {
		t.Errorf("base logger gained attribute: %s", lines[0])
	}

	if !strings.Contains(lines[1], "address=main.0") {
		t.Errorf("child logger lost attribute: %s", lines[1])
	}
}

func TestLogger_WrapKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf).With(slog.String("module", "lib.0")).Wrap(WithFormat(FormatJSON))
	l.Info("evaluated")

	if !strings.Contains(buf.String(), `"module":"lib.0"`) {
		t.Errorf("attribute dropped by Wrap: %s", buf.String())
	}

	if l.Format() != FormatJSON {
		t.Errorf("Format() = %v, want json", l.Format())
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	var l Logger

	l.Info("dropped")
	l.With(slog.Int("n", 1)).Error("dropped")

	if l.Enabled(t.Context(), LevelError) {
		t.Error("zero logger reports enabled")
	}

	if l.Level() != LevelOff {
		t.Errorf("Level() = %v, want off", l.Level())
	}

	l.Slog().Info("dropped")
}

func TestLogger_Concurrent(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout("none"))

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Go(func() {
			l.With(slog.Int("worker", i)).Info("fetched")
		})
	}

	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 16 {
		t.Errorf("got %d lines, want 16", n)
	}
}

func TestConsoleHandler_Values(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout("none"))
	l.Info("values",
		slog.String("empty", ""),
		slog.String("spaced", "a b"),
		slog.Float64("pi", 3.5),
		slog.Any("err", errors.New("not found")),
		slog.Group("fetch", slog.String("url", "https://x/y.0"), slog.Int("status", 404)),
	)

	for _, w := range []string{
		`empty=""`,
		`spaced="a b"`,
		"pi=3.5",
		`err="not found"`,
		"fetch.url=https://x/y.0",
		"fetch.status=404",
	} {
		if !strings.Contains(buf.String(), w) {
			t.Errorf("output missing %q:\n%s", w, buf.String())
		}
	}
}

func TestConsoleHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout("none"))
	h := l.handler.WithGroup("cache").WithAttrs([]slog.Attr{slog.String("path", "c.json")})

	slog.New(h).Info("flushed", slog.Int("entries", 2))

	for _, w := range []string{"cache.path=c.json", "cache.entries=2"} {
		if !strings.Contains(buf.String(), w) {
			t.Errorf("output missing %q:\n%s", w, buf.String())
		}
	}
}

func TestConsoleHandler_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf).Error("failed", slog.Bool("cached", false))

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("escape sequences written to a buffer: %q", buf.String())
	}
}

func TestPackage_DefaultLogger(t *testing.T) {
	saved := Default()
	t.Cleanup(func() { standard.Store(&saved) })

	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace))
	standard.Store(&l)

	tests := []struct {
		level string
		fn    func()
	}{
		{"TRACE", func() { Trace("m") }},
		{"DEBUG", func() { DebugContext(t.Context(), "m") }},
		{"INFO", func() { Info("m") }},
		{"WARN", func() { WarnContext(t.Context(), "m") }},
		{"ERROR", func() { Error("m", slog.String("k", "v")) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.fn()

			if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
				t.Errorf("output missing level %s: %s", tt.level, buf.String())
			}
		})
	}

	Config(WithLevel(LevelError))

	buf.Reset()
	Info("dropped")

	if buf.Len() > 0 {
		t.Errorf("Config did not raise the level: %s", buf.String())
	}
}
