// Package shell runs external build tools.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// tailLines is how much tool output a failure keeps as its diagnostic.
	tailLines = 20
	// waitDelay bounds how long output pipes may stay open after the tool
	// was killed.
	waitDelay = 5 * time.Second
)

// allowListedEnvVars are the host variables a tool inherits. Everything
// else must be passed explicitly.
var allowListedEnvVars = map[string]struct{}{
	"HOME":            {},
	"TERM":            {},
	"USER":            {},
	"PATH":            {},
	"TMPDIR":          {},
	"LANG":            {},
	"LC_ALL":          {},
	"PKG_CONFIG_PATH": {},
}

var _ ports.CommandRunner = (*Executor)(nil)

// Executor implements ports.CommandRunner using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor. Tool output is echoed to logger line
// by line when logger is not nil.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes cmd and waits for it. A non-zero exit becomes a
// *domain.BuildToolError carrying the last lines of output.
func (e *Executor) Run(ctx context.Context, cmd ports.Command) error {
	if cmd.Name == "" {
		return zerr.New("empty command")
	}

	env := resolveEnvironment(os.Environ(), cmd.Env)

	executable := cmd.Name
	if !filepath.IsAbs(cmd.Name) && !strings.ContainsRune(cmd.Name, filepath.Separator) {
		lp, err := lookPath(cmd.Name, env)
		if err != nil {
			return &domain.ExternalDependencyError{Dependency: cmd.Name, Tried: []string{"PATH"}}
		}
		executable = lp
	}

	c := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // tools come from build specs
	c.Args[0] = cmd.Name
	c.Dir = cmd.Dir
	c.Env = env
	c.WaitDelay = waitDelay

	tail := &tailBuffer{max: tailLines}
	stdoutLog := &logWriter{logger: e.logger, level: domain.LogLevelInfo}
	stderrLog := &logWriter{logger: e.logger, level: domain.LogLevelWarn}
	c.Stdout = io.MultiWriter(writerOrDiscard(cmd.Stdout), stdoutLog, tail)
	c.Stderr = io.MultiWriter(writerOrDiscard(cmd.Stderr), stderrLog, tail)

	err := c.Run()
	_ = stdoutLog.Close()
	_ = stderrLog.Close()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zerr.With(zerr.Wrap(ctxErr, "command interrupted"), "command", cmd.Name)
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &domain.BuildToolError{
		Tool:       cmd.Name,
		ExitCode:   exitCode,
		Diagnostic: tail.String(),
		Err:        err,
	}
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// resolveEnvironment merges the allow-listed host environment with the
// command's variables. A command PATH is prepended to the host PATH.
func resolveEnvironment(sysEnv, cmdEnv []string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}

	for _, entry := range cmdEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath := envMap["PATH"]; sysPath != "" {
				v = v + string(os.PathListSeparator) + sysPath
			}
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches the PATH of env rather than of the current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

// logWriter forwards complete lines to the logger.
type logWriter struct {
	logger ports.Logger
	level  domain.LogLevel
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	if w.logger == nil {
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if w.level >= domain.LogLevelWarn {
		w.logger.Warn(msg)
		return
	}
	w.logger.Info(msg)
}

// tailBuffer keeps the last lines written to it. Stdout and stderr share
// one buffer, so writes are serialized.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial = append(t.partial, p...)
	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			break
		}
		t.push(strings.TrimSuffix(string(t.partial[:i]), "\r"))
		t.partial = t.partial[i+1:]
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := slices.Clone(t.lines)
	if len(t.partial) > 0 {
		lines = append(lines, string(t.partial))
		if len(lines) > t.max {
			lines = lines[len(lines)-t.max:]
		}
	}
	return strings.Join(lines, "\n")
}
