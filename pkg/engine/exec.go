package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/state"
)

// Scope holds variables made visible to a single execution. They reach the
// interpreter as environment variables.
type Scope map[string]string

// CreateScope returns an empty scope.
func (e *Engine) CreateScope() Scope {
	return Scope{}
}

type ExecResult struct {
	// ExitCode is the interpreter's exit code
	ExitCode int
	// Duration is the wall time of the run
	Duration time.Duration
	// Scope is the scope the code ran with
	Scope Scope
}

// waitDelay bounds how long Wait keeps copying output after the
// interpreter is killed, in case a child still holds the pipes open.
const waitDelay = 2 * time.Second

var validScopeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execute runs code in a fresh scope.
func (e *Engine) Execute(ctx context.Context, code string) (*ExecResult, error) {
	return e.ExecuteString(ctx, code, e.CreateScope())
}

// ExecuteString runs code and waits for the interpreter to exit. Output is
// delivered through the engine's streams while the code runs. A non-zero
// exit is reported in the result, not as an error.
func (e *Engine) ExecuteString(ctx context.Context, code string, scope Scope) (*ExecResult, error) {
	for name := range scope {
		if !validScopeName.MatchString(name) {
			return nil, errx.With(ErrInvalidScope, ": %q", name)
		}
	}

	argv, err := e.settings.Command(code)
	if err != nil {
		return nil, errx.Wrap(ErrBuildCommand, err)
	}

	stdout := runeWriter(e.stdout, e.settings.RedirectStandardOutput)
	stderr := runeWriter(e.stderr, e.settings.RedirectStandardError)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = e.environ(scope)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	flushRunes(stdout)
	flushRunes(stderr)

	if err := canceled(ctx, runErr); err != nil {
		return nil, err
	}

	result := &ExecResult{Duration: duration, Scope: scope}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, errx.Wrap(ErrStartInterpreter, runErr)
	}

	e.logger.Debug("execution finished", "exit_code", result.ExitCode, "duration", duration)
	e.record(code, start, result)
	return result, nil
}

// canceled reports a failed run as canceled when ctx ended. A run that
// finished cleanly stands even if the deadline passed right after.
func canceled(ctx context.Context, runErr error) error {
	if runErr == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errx.Wrap(ErrExecutionCanceled, ctxErr)
	}
	return nil
}

// environ layers the host environment, engine options, scope variables and
// the module search path, later entries winning.
func (e *Engine) environ(scope Scope) []string {
	env := os.Environ()
	for k, v := range e.settings.Options {
		env = append(env, k+"="+v)
	}
	for k, v := range scope {
		env = append(env, k+"="+v)
	}
	if len(e.searchPath) > 0 {
		key := e.settings.GetSearchPathEnv()
		paths := e.SearchPath()
		if existing := os.Getenv(key); existing != "" {
			paths = append(paths, existing)
		}
		env = append(env, key+"="+strings.Join(paths, string(os.PathListSeparator)))
	}
	return env
}

func (e *Engine) record(code string, start time.Time, result *ExecResult) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(state.Session{
		ID:          e.settings.SessionID,
		Interpreter: e.settings.Interpreter,
		Code:        code,
		ExitCode:    result.ExitCode,
		StartedAt:   start,
		Duration:    result.Duration,
	})
	if err != nil {
		e.logger.Warn("failed to record session", "error", err)
	}
}

// runeWriter holds back a UTF-8 sequence split across pipe reads until the
// rest of it arrives, so a log stream only ever sees whole characters.
// Use one per execution.
func runeWriter(w io.Writer, redirected bool) io.Writer {
	if !redirected {
		return w
	}
	return transform.NewWriter(w, unicode.UTF8.NewDecoder())
}

// flushRunes emits whatever is still held back; a truncated sequence at
// exit becomes U+FFFD.
func flushRunes(w io.Writer) {
	if c, ok := w.(*transform.Writer); ok {
		_ = c.Close()
	}
}
