package api

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/jingkaihe/unipy/internal/errx"
)

// Built-in host namespaces.
const (
	NamespaceEngine = "engine"
	NamespaceEditor = "editor"
)

const (
	DefaultInterpreter   = "python3"
	DefaultSearchPathEnv = "PYTHONPATH"
)

// Settings controls how an engine is created.
type Settings struct {
	// SessionID identifies the engine session in logs and the session ledger.
	SessionID string `json:"session_id,omitempty"`

	// IncludeEngine exposes modules registered under the engine namespace.
	IncludeEngine bool `json:"include_engine"`

	// IncludeEditorIfPossible exposes modules under the editor namespace.
	// Only honored by binaries built with the editor tag.
	IncludeEditorIfPossible bool `json:"include_editor_if_possible"`

	// CustomIncluding lists extra namespace prefixes to expose.
	CustomIncluding []string `json:"custom_including,omitempty"`

	// Options are passed to the interpreter process as environment variables.
	Options map[string]string `json:"options,omitempty"`

	RedirectStandardOutput bool `json:"redirect_stdout"`
	RedirectStandardError  bool `json:"redirect_stderr"`

	Interpreter     string `json:"interpreter,omitempty"`
	InterpreterArgs string `json:"interpreter_args,omitempty"`
	SearchPathEnv   string `json:"search_path_env,omitempty"`
}

// SettingsOption adjusts Settings built by NewSettings.
type SettingsOption func(*Settings)

func WithCustomIncluding(prefixes ...string) SettingsOption {
	return func(s *Settings) { s.CustomIncluding = append(s.CustomIncluding, prefixes...) }
}

func WithOptions(options map[string]string) SettingsOption {
	return func(s *Settings) { s.Options = options }
}

func WithEditor(include bool) SettingsOption {
	return func(s *Settings) { s.IncludeEditorIfPossible = include }
}

func WithEngineModules(include bool) SettingsOption {
	return func(s *Settings) { s.IncludeEngine = include }
}

func WithRedirect(stdout, stderr bool) SettingsOption {
	return func(s *Settings) {
		s.RedirectStandardOutput = stdout
		s.RedirectStandardError = stderr
	}
}

func WithInterpreter(name, args string) SettingsOption {
	return func(s *Settings) {
		s.Interpreter = name
		s.InterpreterArgs = args
	}
}

// DefaultSettings exposes engine modules and redirects both streams.
func DefaultSettings() *Settings {
	return &Settings{
		IncludeEngine:          true,
		RedirectStandardOutput: true,
		RedirectStandardError:  true,
		Interpreter:            DefaultInterpreter,
		SearchPathEnv:          DefaultSearchPathEnv,
	}
}

// NewSettings applies opts on top of DefaultSettings.
func NewSettings(opts ...SettingsOption) *Settings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSessionID returns the session ID, generating one if unset.
func (s *Settings) GetSessionID() string {
	if s.SessionID == "" {
		s.SessionID = uuid.New().String()
	}
	return s.SessionID
}

// GetSearchPathEnv returns the search path variable name or the default.
func (s *Settings) GetSearchPathEnv() string {
	if s != nil && s.SearchPathEnv != "" {
		return s.SearchPathEnv
	}
	return DefaultSearchPathEnv
}

// Namespaces returns every namespace prefix to expose, in load order.
// The editor namespace is included only when editorAvailable is set.
func (s *Settings) Namespaces(editorAvailable bool) []string {
	var out []string
	if s.IncludeEngine {
		out = append(out, NamespaceEngine)
	}
	if s.IncludeEditorIfPossible && editorAvailable {
		out = append(out, NamespaceEditor)
	}
	for _, ns := range s.CustomIncluding {
		out = append(out, strings.TrimSpace(ns))
	}
	return out
}

// InterpreterArgv splits InterpreterArgs with shell quoting rules.
func (s *Settings) InterpreterArgv() ([]string, error) {
	if strings.TrimSpace(s.InterpreterArgs) == "" {
		return nil, nil
	}
	args, err := shellquote.Split(s.InterpreterArgs)
	if err != nil {
		return nil, errx.Wrap(ErrInvalidInterpreter, err)
	}
	return args, nil
}

// Command builds the argv that runs code: interpreter, its args, then -c code.
func (s *Settings) Command(code string) ([]string, error) {
	args, err := s.InterpreterArgv()
	if err != nil {
		return nil, err
	}
	argv := make([]string, 0, len(args)+3)
	argv = append(argv, s.Interpreter)
	argv = append(argv, args...)
	return append(argv, "-c", code), nil
}

var validEnvName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks settings invariants.
func (s *Settings) Validate() error {
	if s == nil {
		return errx.With(ErrInvalidConfig, ": settings must not be nil")
	}
	if strings.TrimSpace(s.Interpreter) == "" {
		return errx.With(ErrInvalidConfig, ": interpreter is required")
	}
	for i, ns := range s.CustomIncluding {
		if strings.TrimSpace(ns) == "" {
			return errx.With(ErrInvalidConfig, ": custom_including[%d] is empty", i)
		}
	}
	for key := range s.Options {
		if !validEnvName.MatchString(key) {
			return errx.With(ErrInvalidConfig, ": option %q is not a valid environment name", key)
		}
	}
	if s.SearchPathEnv != "" && !validEnvName.MatchString(s.SearchPathEnv) {
		return errx.With(ErrInvalidConfig, ": search_path_env %q is not a valid environment name", s.SearchPathEnv)
	}
	if _, err := s.InterpreterArgv(); err != nil {
		return errx.With(ErrInvalidConfig, ": %w", err)
	}
	return nil
}

// Merge overlays the non-zero fields of other onto a copy of s.
// Boolean switches in other only ever turn features on.
func (s *Settings) Merge(other *Settings) *Settings {
	if other == nil {
		return s
	}

	result := *s
	if other.SessionID != "" {
		result.SessionID = other.SessionID
	}
	if other.IncludeEngine {
		result.IncludeEngine = true
	}
	if other.IncludeEditorIfPossible {
		result.IncludeEditorIfPossible = true
	}
	if len(other.CustomIncluding) > 0 {
		result.CustomIncluding = append(append([]string(nil), s.CustomIncluding...), other.CustomIncluding...)
	}
	if other.Options != nil {
		merged := make(map[string]string, len(s.Options)+len(other.Options))
		for k, v := range s.Options {
			merged[k] = v
		}
		for k, v := range other.Options {
			merged[k] = v
		}
		result.Options = merged
	}
	if other.Interpreter != "" {
		result.Interpreter = other.Interpreter
	}
	if other.InterpreterArgs != "" {
		result.InterpreterArgs = other.InterpreterArgs
	}
	if other.SearchPathEnv != "" {
		result.SearchPathEnv = other.SearchPathEnv
	}
	return &result
}

// ParseSettings decodes JSON settings on top of DefaultSettings.
func ParseSettings(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errx.Wrap(ErrParseConfig, err)
	}
	return s, nil
}
