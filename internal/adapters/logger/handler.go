package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/rocks/internal/ui/output"
	"go.trai.ch/rocks/internal/ui/style"
)

// labelKeys are attributes naming what a line is about. They lead the line
// instead of trailing it as key=value.
var labelKeys = []string{"package", "backend"}

type levelStyle struct {
	glyph string
	color termenv.Color
}

var levelStyles = map[slog.Level]levelStyle{
	slog.LevelWarn:  {glyph: style.Warning, color: termenv.RGBColor(string(style.Yellow))},
	slog.LevelError: {glyph: style.Cross, color: termenv.RGBColor(string(style.Red))},
}

var defaultStyle = levelStyle{color: termenv.RGBColor(string(style.Slate))}

// PrettyHandler is a slog.Handler that writes colored, human-readable lines:
// an optional glyph, the labels of the record, the message and the remaining
// attributes as key=value.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler

	// labels and fields are the pre-rendered attributes of WithAttrs.
	labels []string
	fields []string
	groups []string
}

// NewPrettyHandler creates a new PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	ls, ok := levelStyles[r.Level]
	if !ok {
		ls = defaultStyle
	}

	labels := slices.Clone(h.labels)
	fields := slices.Clone(h.fields)
	r.Attrs(func(attr slog.Attr) bool {
		labels, fields = appendAttr(labels, fields, h.groups, attr)
		return true
	})

	parts := make([]string, 0, 3+len(fields))
	if ls.glyph != "" {
		parts = append(parts, ls.glyph)
	}
	if len(labels) > 0 {
		parts = append(parts, strings.Join(labels, " ")+":")
	}
	parts = append(parts, r.Message)
	parts = append(parts, fields...)

	line := h.out.String(strings.Join(parts, " ")).Foreground(ls.color).String()
	_, err := h.out.WriteString(line + "\n")
	return err
}

// WithAttrs returns a new Handler that renders attrs on every line.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, attr := range attrs {
		next.labels, next.fields = appendAttr(next.labels, next.fields, h.groups, attr)
	}
	return next
}

// WithGroup returns a new Handler that qualifies later attributes with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		out:    h.out,
		level:  h.level,
		labels: slices.Clip(h.labels),
		fields: slices.Clip(h.fields),
		groups: slices.Clip(h.groups),
	}
}

// appendAttr renders attr below groups. Group values are flattened, empty
// attributes dropped, and top-level label keys become labels.
func appendAttr(labels, fields, groups []string, attr slog.Attr) ([]string, []string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return labels, fields
	}

	if attr.Value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(slices.Clip(groups), attr.Key)
		}
		for _, a := range attr.Value.Group() {
			labels, fields = appendAttr(labels, fields, inner, a)
		}
		return labels, fields
	}

	if len(groups) == 0 && slices.Contains(labelKeys, attr.Key) {
		return append(labels, attr.Value.String()), fields
	}
	key := strings.Join(append(slices.Clip(groups), attr.Key), ".")
	return labels, append(fields, key+"="+attr.Value.String())
}
