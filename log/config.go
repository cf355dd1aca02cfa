package log

import (
	"io"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Level is the severity of a log message.
type Level slog.Level

const (
	LevelTrace Level = Level(slog.LevelDebug - 4)
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
	// LevelOff is above every level a message can carry.
	LevelOff Level = Level(slog.LevelError + 4)
)

// DefaultLevel is the minimum level of a logger made without [WithLevel].
const DefaultLevel = LevelInfo

var levels = []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelOff}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	}

	return strings.ToLower(slog.Level(l).String())
}

// Levels yields the name of each level accepted by [ParseLevel], from the
// most verbose to [LevelOff].
func Levels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range levels {
			if !yield(l.String()) {
				return
			}
		}
	}
}

// ParseLevel returns the level named s, ignoring case. Besides the names
// yielded by [Levels], it accepts the offsets understood by
// [slog.Level.UnmarshalText] such as "warn+2". Unrecognized names give
// [DefaultLevel].
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)

	for _, l := range levels {
		if strings.EqualFold(s, l.String()) {
			return l
		}
	}

	var sl slog.Level
	if err := sl.UnmarshalText([]byte(s)); err != nil {
		return DefaultLevel
	}

	return Level(sl)
}

// Format selects how log records are encoded.
type Format int

const (
	FormatText Format = iota // key=value lines
	FormatJSON               // one JSON object per line
)

// DefaultFormat is the format of a logger made without [WithFormat].
const DefaultFormat = FormatText

var formats = []Format{FormatText, FormatJSON}

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	}

	return "format(" + strconv.Itoa(int(f)) + ")"
}

// Formats yields the name of each format accepted by [ParseFormat].
func Formats() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range formats {
			if !yield(f.String()) {
				return
			}
		}
	}
}

// ParseFormat returns the format named s, or [DefaultFormat].
func ParseFormat(s string) Format {
	i := slices.IndexFunc(formats, func(f Format) bool {
		return strings.EqualFold(strings.TrimSpace(s), f.String())
	})
	if i < 0 {
		return DefaultFormat
	}

	return formats[i]
}

// DefaultTimeLayout is the timestamp layout of a logger made without
// [WithTimeLayout].
const DefaultTimeLayout = time.RFC3339

// config is immutable once a Logger holds it; options operate on copies.
type config struct {
	output io.Writer
	stamp  func(time.Time) string
	level  Level
	format Format
	caller bool
	pretty bool
}

// Option changes one setting of a [Logger].
type Option func(*config)

func newConfig(w io.Writer, opts ...Option) config {
	c := config{
		stamp:  timeStamper(DefaultTimeLayout),
		level:  DefaultLevel,
		format: DefaultFormat,
		pretty: true,
	}

	return c.with(append([]Option{WithOutput(w)}, opts...)...)
}

func (c config) with(opts ...Option) config {
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// handler builds the slog handler for c. Pretty output only changes the text
// format; JSON stays machine-readable.
func (c config) handler() slog.Handler {
	if c.level == LevelOff {
		return slog.DiscardHandler
	}

	switch c.format {
	case FormatText:
		if c.pretty {
			return newConsoleHandler(c)
		}

		return slog.NewTextHandler(c.output, c.options())

	case FormatJSON:
		return slog.NewJSONHandler(c.output, c.options())
	}

	return slog.DiscardHandler
}

func (c config) options() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		AddSource: c.caller,
		Level:     slog.Level(c.level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}

			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					s := c.stamp(t)
					if s == "" {
						return slog.Attr{}
					}

					a.Value = slog.StringValue(s)
				}

			case slog.LevelKey:
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToUpper(Level(l).String()))
				}
			}

			return a
		},
	}
}

// WithOutput sends log records to w. A nil writer discards them.
func WithOutput(w io.Writer) Option {
	if w == nil {
		w = io.Discard
	}

	return func(c *config) { c.output = w }
}

// WithLevel discards messages below level.
func WithLevel(level Level) Option {
	return func(c *config) { c.level = level }
}

// WithFormat selects the record encoding.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithCaller adds the source position of each logging call.
func WithCaller(enable bool) Option {
	return func(c *config) { c.caller = enable }
}

// WithPretty renders text records with colors and without quoting. Colors
// are only emitted when the output is a terminal.
func WithPretty(enable bool) Option {
	return func(c *config) { c.pretty = enable }
}

// WithTimeLayout sets the timestamp layout. The layout is either one of the
// names in [time] ("RFC3339", "Kitchen", "StampMilli", ...), one of the
// short forms "ms", "us" and "ns", or a literal layout for [time.Time.Format].
// An empty layout or "none" omits timestamps.
func WithTimeLayout(layout string) Option {
	stamp := timeStamper(layout)

	return func(c *config) { c.stamp = stamp }
}

var namedLayouts = map[string]string{
	"ansic":       time.ANSIC,
	"unixdate":    time.UnixDate,
	"rubydate":    time.RubyDate,
	"rfc822":      time.RFC822,
	"rfc822z":     time.RFC822Z,
	"rfc850":      time.RFC850,
	"rfc1123":     time.RFC1123,
	"rfc1123z":    time.RFC1123Z,
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"kitchen":     time.Kitchen,
	"datetime":    time.DateTime,
	"timeonly":    time.TimeOnly,
	"stamp":       time.Stamp,
	"stampmilli":  time.StampMilli,
	"stampmicro":  time.StampMicro,
	"stampnano":   time.StampNano,
	"ms":          time.StampMilli,
	"us":          time.StampMicro,
	"ns":          time.StampNano,
	"none":        "",
}

func timeStamper(layout string) func(time.Time) string {
	key := strings.ToLower(strings.TrimSpace(layout))
	if named, ok := namedLayouts[key]; ok {
		layout = named
	}

	if strings.TrimSpace(layout) == "" {
		return func(time.Time) string { return "" }
	}

	return func(t time.Time) string { return t.Format(layout) }
}
