// Package engine creates interpreter sessions whose standard streams are
// forwarded to the host's logging and whose module search path contains
// only the host namespaces the session was configured to expose.
package engine

import (
	"io"
	"log/slog"
	"os"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/api"
	"github.com/jingkaihe/unipy/pkg/logging"
	"github.com/jingkaihe/unipy/pkg/logstream"
	"github.com/jingkaihe/unipy/pkg/modules"
	"github.com/jingkaihe/unipy/pkg/state"
)

// Engine runs code with a fixed configuration. It is safe to call
// ExecuteString from multiple goroutines; output from concurrent runs
// shares the same streams.
type Engine struct {
	settings   *api.Settings
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
	searchPath []string
	recorder   state.Recorder
}

type options struct {
	logger     *slog.Logger
	registry   *modules.Registry
	stdoutFn   logstream.LogFunc
	stderrFn   logstream.LogFunc
	passStdout io.Writer
	passStderr io.Writer
	recorder   state.Recorder
}

// Option customizes engine creation.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry selects the module registry; modules.Default otherwise.
func WithRegistry(r *modules.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithStdout replaces the default info-level slog callback for stdout.
func WithStdout(fn logstream.LogFunc) Option {
	return func(o *options) { o.stdoutFn = fn }
}

// WithStderr replaces the default error-level slog callback for stderr.
func WithStderr(fn logstream.LogFunc) Option {
	return func(o *options) { o.stderrFn = fn }
}

// WithPassthrough sets where non-redirected streams go; os.Stdout and
// os.Stderr otherwise.
func WithPassthrough(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.passStdout = stdout
		o.passStderr = stderr
	}
}

// WithRecorder records every execution.
func WithRecorder(r state.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Create validates settings and builds an engine. A nil settings value
// means api.DefaultSettings.
func Create(settings *api.Settings, opts ...Option) (*Engine, error) {
	if settings == nil {
		settings = api.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		registry:   modules.Default,
		passStdout: os.Stdout,
		passStderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	sessionID := settings.GetSessionID()
	logger := o.logger.With("component", "engine", "session", sessionID)

	e := &Engine{
		settings: settings,
		logger:   logger,
		stdout:   o.passStdout,
		stderr:   o.passStderr,
		recorder: o.recorder,
	}

	if settings.RedirectStandardOutput {
		fn := o.stdoutFn
		if fn == nil {
			fn = logging.SlogFunc(o.logger, slog.LevelInfo, "session", sessionID, "stream", logging.StreamStdout)
		}
		s, err := logstream.New(fn)
		if err != nil {
			return nil, errx.Wrap(ErrCreateStream, err)
		}
		e.stdout = s
	}

	if settings.RedirectStandardError {
		fn := o.stderrFn
		if fn == nil {
			fn = logging.SlogFunc(o.logger, slog.LevelError, "session", sessionID, "stream", logging.StreamStderr)
		}
		s, err := logstream.New(fn)
		if err != nil {
			return nil, errx.Wrap(ErrCreateStream, err)
		}
		e.stderr = s
	}

	if settings.IncludeEditorIfPossible && !EditorAvailable {
		logger.Warn("editor namespace requested but this build has no editor support; set include_editor_if_possible to false")
	}

	for _, ns := range settings.Namespaces(EditorAvailable) {
		for _, m := range o.registry.InNamespace(ns) {
			e.loadModule(m)
		}
	}

	return e, nil
}

// CreateDefault builds an engine from api.DefaultSettings.
func CreateDefault(opts ...Option) (*Engine, error) {
	return Create(api.DefaultSettings(), opts...)
}

// CreateWithIncludes builds a default engine that also exposes the given
// namespace prefixes.
func CreateWithIncludes(prefixes ...string) (*Engine, error) {
	return Create(api.NewSettings(api.WithCustomIncluding(prefixes...)))
}

// CreateWithOptions builds a default engine with interpreter options and
// extra namespace prefixes.
func CreateWithOptions(options map[string]string, prefixes ...string) (*Engine, error) {
	return Create(api.NewSettings(api.WithOptions(options), api.WithCustomIncluding(prefixes...)))
}

func (e *Engine) loadModule(m modules.Module) {
	for _, p := range e.searchPath {
		if p == m.Path {
			return
		}
	}
	e.searchPath = append(e.searchPath, m.Path)
	e.logger.Debug("loaded module", "namespace", m.Namespace, "path", m.Path)
}

// SessionID identifies this engine in logs and the session ledger.
func (e *Engine) SessionID() string {
	return e.settings.SessionID
}

// Settings returns the settings the engine was created with.
func (e *Engine) Settings() *api.Settings {
	return e.settings
}

// SearchPath returns the exposed module directories in load order.
func (e *Engine) SearchPath() []string {
	return append([]string(nil), e.searchPath...)
}
