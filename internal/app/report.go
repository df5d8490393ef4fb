package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/engine/lockfile"
	"go.trai.ch/rocks/internal/ui/output"
	"go.trai.ch/rocks/internal/ui/style"
)

// diagnosticIndent prefixes each line of a failed build's diagnostic.
const diagnosticIndent = "    "

// RenderResult writes a human-readable summary of res to w. Every failed
// package is listed with its diagnostic and every skipped package with the
// failed dependency responsible.
func RenderResult(w io.Writer, res *Result) error {
	if res == nil {
		return nil
	}
	r := &reportWriter{out: output.New(w)}
	if res.Sync != nil {
		r.sync(res.Sync)
	}
	if res.Build != nil {
		r.build(res.Build)
	}
	return r.err
}

// RenderSync writes the lockfile part of a summary to w.
func RenderSync(w io.Writer, sync *SyncReport) error {
	return RenderResult(w, &Result{Sync: sync})
}

type reportWriter struct {
	out *termenv.Output
	err error
}

func (r *reportWriter) line(color termenv.Color, format string, args ...any) {
	if r.err != nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	if color != nil {
		text = r.out.String(text).Foreground(color).String()
	}
	_, r.err = r.out.WriteString(text + "\n")
}

func (r *reportWriter) sync(s *SyncReport) {
	if !s.Written {
		r.line(rgb(style.Slate), "Lockfile up to date")
		return
	}
	verb := "updated"
	if s.Outcome == lockfile.NeedsFullResolve {
		verb = "resolved"
	}
	r.line(nil, "Lockfile %s: %d added, %d removed", verb, len(s.Added), len(s.Removed))
	for _, id := range s.Added {
		r.line(rgb(style.Green), "  %s %s", style.Plus, id)
	}
	for _, id := range s.Removed {
		r.line(rgb(style.Red), "  %s %s", style.Minus, id)
	}
}

func (r *reportWriter) build(report *domain.BuildReport) {
	for _, res := range report.Results {
		switch res.Status {
		case domain.VertexStatusCompleted:
			r.line(rgb(style.Green), "%s %s", res.Status.Symbol(), res.ID)
		case domain.VertexStatusCached:
			r.line(rgb(style.Slate), "%s %s (up to date)", res.Status.Symbol(), res.ID)
		case domain.VertexStatusFailed:
			r.line(rgb(style.Red), "%s %s", res.Status.Symbol(), res.ID)
			r.diagnostic(res)
		case domain.VertexStatusSkipped:
			reason := "cancelled"
			if res.FailedAncestor != "" {
				reason = res.FailedAncestor.String() + " failed"
			}
			r.line(rgb(style.Yellow), "%s %s (skipped: %s)", res.Status.Symbol(), res.ID, reason)
		default:
			r.line(nil, "%s %s", res.Status.Symbol(), res.ID)
		}
	}
	r.line(nil, "%s", summary(report))
}

func (r *reportWriter) diagnostic(res domain.BuildResult) {
	text := res.Diagnostic
	if text == "" && res.Err != nil {
		text = res.Err.Error()
	}
	for l := range strings.SplitSeq(strings.TrimRight(text, "\n"), "\n") {
		if l != "" {
			r.line(nil, "%s%s", diagnosticIndent, l)
		}
	}
}

func summary(report *domain.BuildReport) string {
	counts := []struct {
		status domain.VertexStatus
		label  string
	}{
		{domain.VertexStatusCompleted, "built"},
		{domain.VertexStatusCached, "up to date"},
		{domain.VertexStatusFailed, "failed"},
		{domain.VertexStatusSkipped, "skipped"},
	}
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		if n := len(report.WithStatus(c.status)); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, c.label))
		}
	}
	noun := "packages"
	if len(report.Results) == 1 {
		noun = "package"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", len(report.Results), noun)
	}
	return fmt.Sprintf("%d %s: %s", len(report.Results), noun, strings.Join(parts, ", "))
}

func rgb(c lipgloss.Color) termenv.Color {
	return termenv.RGBColor(string(c))
}
