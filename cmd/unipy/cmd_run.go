package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/api"
	"github.com/jingkaihe/unipy/pkg/engine"
	"github.com/jingkaihe/unipy/pkg/logging"
	"github.com/jingkaihe/unipy/pkg/modules"
	"github.com/jingkaihe/unipy/pkg/state"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <code>",
	Short: "Execute code in a new interpreter session",
	Long: `Execute code in a new interpreter session.

Standard output is logged at INFO and standard error at ERROR. Each write
made by the interpreter becomes one log record.

Module namespaces (--module, --module-dir, --include):
  Modules are directories published under a namespace. The session exposes
  modules in the "engine" namespace (unless --no-engine-modules), the
  "editor" namespace when built with -tags editor and --editor is set, and
  every namespace starting with an --include prefix.

  --module engine.physics=./mods/physics
  --module-dir ./mods            one namespace per subdirectory

Options (--option):
  KEY=VALUE pairs passed to the interpreter as environment variables.`,
	Example: `  unipy run -- "print('hello')"
  unipy run --include game --module game.ai=./ai -- "import ai; ai.tick()"
  unipy run --interpreter sh -- 'echo from sh; echo oops >&2'
  unipy run -f script.py --event-log events.jsonl`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("settings", "", "JSON settings file applied before flags")
	runCmd.Flags().String("session-id", "", "Session ID (default: random UUID)")
	runCmd.Flags().String("interpreter", api.DefaultInterpreter, "Interpreter executable")
	runCmd.Flags().String("interpreter-args", "", "Extra interpreter arguments (shell-quoted)")
	runCmd.Flags().String("search-path-env", api.DefaultSearchPathEnv, "Environment variable that receives the module search path")
	runCmd.Flags().StringSlice("include", nil, "Expose modules whose namespace starts with this prefix (can be repeated)")
	runCmd.Flags().StringArray("module", nil, "Register a module (namespace=path, can be repeated)")
	runCmd.Flags().StringArray("module-dir", nil, "Register every subdirectory as a module named after it (can be repeated)")
	runCmd.Flags().StringArrayP("option", "o", nil, "Interpreter option (KEY=VALUE, can be repeated)")
	runCmd.Flags().Bool("no-engine-modules", false, "Do not expose the engine namespace")
	runCmd.Flags().Bool("editor", false, "Expose the editor namespace if this build supports it")
	runCmd.Flags().Bool("no-stdout-redirect", false, "Pass interpreter stdout through instead of logging it")
	runCmd.Flags().Bool("no-stderr-redirect", false, "Pass interpreter stderr through instead of logging it")
	runCmd.Flags().String("event-log", "", "Also append output events as JSON lines to this file (- for stdout)")
	runCmd.Flags().StringP("file", "f", "", "Read code from file instead of arguments")
	runCmd.Flags().Duration("timeout", 0, "Abort execution after this long (0 = no limit)")
	runCmd.Flags().Bool("no-record", false, "Do not record the run in the session ledger")

	for _, name := range []string{
		"settings", "session-id", "interpreter", "interpreter-args", "search-path-env", "include",
		"no-engine-modules", "editor",
		"no-stdout-redirect", "no-stderr-redirect", "event-log", "timeout", "no-record",
	} {
		viper.BindPFlag("run."+name, runCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	code, err := resolveCode(file, args)
	if err != nil {
		return err
	}

	settings, err := buildSettings(cmd)
	if err != nil {
		return err
	}

	registry := modules.NewRegistry()
	moduleSpecs, _ := cmd.Flags().GetStringArray("module")
	moduleDirs, _ := cmd.Flags().GetStringArray("module-dir")
	if err := registerModules(registry, moduleSpecs, moduleDirs); err != nil {
		return err
	}

	logger := slog.Default()
	opts := []engine.Option{engine.WithLogger(logger), engine.WithRegistry(registry)}

	if path := viper.GetString("run.event-log"); path != "" {
		emitter, err := openEmitter(path, settings)
		if err != nil {
			return err
		}
		defer emitter.Close()
		opts = append(opts,
			engine.WithStdout(logging.Tee(
				logging.SlogFunc(logger, slog.LevelInfo, "session", settings.SessionID, "stream", logging.StreamStdout),
				emitter.LogFunc(logging.StreamStdout, logging.LevelInfo),
			)),
			engine.WithStderr(logging.Tee(
				logging.SlogFunc(logger, slog.LevelError, "session", settings.SessionID, "stream", logging.StreamStderr),
				emitter.LogFunc(logging.StreamStderr, logging.LevelError),
			)),
		)
	}

	if !viper.GetBool("run.no-record") {
		store, err := state.Open(viper.GetString("state-db"))
		if err != nil {
			logger.Warn("session ledger unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, engine.WithRecorder(store))
		}
	}

	eng, err := engine.Create(settings, opts...)
	if err != nil {
		return errx.Wrap(ErrCreateEngine, err)
	}

	ctx := context.Background()
	if timeout := viper.GetDuration("run.timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, cancel := contextWithSignal(ctx)
	defer cancel()

	result, err := eng.Execute(ctx, code)
	if err != nil {
		return errx.Wrap(ErrExecute, err)
	}
	logger.Debug("run finished", "session", eng.SessionID(), "exit_code", result.ExitCode, "duration", result.Duration.Round(time.Millisecond))
	if result.ExitCode != 0 {
		return &exitCodeError{code: result.ExitCode}
	}
	return nil
}

// resolveCode reads code from file when set, otherwise joins args.
func resolveCode(file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", errx.Wrap(ErrReadScript, err)
		}
		return string(data), nil
	}
	code := strings.Join(args, " ")
	if strings.TrimSpace(code) == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// buildSettings layers defaults, the optional settings file, then flags
// that were explicitly set or supplied through UNIPY_RUN_* variables.
func buildSettings(cmd *cobra.Command) (*api.Settings, error) {
	settings := api.DefaultSettings()
	if path := viper.GetString("run.settings"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errx.Wrap(ErrReadSettings, err)
		}
		if settings, err = api.ParseSettings(data); err != nil {
			return nil, err
		}
	}

	set := func(name string) bool {
		return cmd.Flags().Changed(name) || viper.IsSet("run."+name)
	}

	if set("session-id") {
		settings.SessionID = viper.GetString("run.session-id")
	}
	if set("interpreter") {
		settings.Interpreter = viper.GetString("run.interpreter")
	}
	if set("interpreter-args") {
		settings.InterpreterArgs = viper.GetString("run.interpreter-args")
	}
	if set("search-path-env") {
		settings.SearchPathEnv = viper.GetString("run.search-path-env")
	}
	settings.CustomIncluding = append(settings.CustomIncluding, viper.GetStringSlice("run.include")...)

	optionSpecs, _ := cmd.Flags().GetStringArray("option")
	options, err := parseOptions(optionSpecs)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		settings = settings.Merge(&api.Settings{Options: options})
	}

	if viper.GetBool("run.no-engine-modules") {
		settings.IncludeEngine = false
	}
	if viper.GetBool("run.editor") {
		settings.IncludeEditorIfPossible = true
	}
	if viper.GetBool("run.no-stdout-redirect") {
		settings.RedirectStandardOutput = false
	}
	if viper.GetBool("run.no-stderr-redirect") {
		settings.RedirectStandardError = false
	}

	settings.GetSessionID()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func parseOptions(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		key, value, ok := strings.Cut(spec, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errx.With(ErrInvalidOption, ": %q (expected KEY=VALUE)", spec)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

func registerModules(registry *modules.Registry, specs, dirs []string) error {
	for _, spec := range specs {
		m, err := modules.ParseSpec(spec)
		if err != nil {
			return errx.Wrap(ErrInvalidModule, err)
		}
		if err := registry.Register(m.Namespace, m.Path); err != nil {
			return errx.Wrap(ErrInvalidModule, err)
		}
	}
	for _, dir := range dirs {
		if _, err := registry.ScanDir(dir); err != nil {
			return errx.Wrap(ErrInvalidModule, err)
		}
	}
	return nil
}

func openEmitter(path string, settings *api.Settings) (*logging.Emitter, error) {
	var sink logging.Sink
	if path == "-" {
		sink = logging.NewJSONLStream(os.Stdout)
	} else {
		w, err := logging.NewJSONLWriter(path)
		if err != nil {
			return nil, errx.Wrap(ErrOpenEventLog, err)
		}
		sink = w
	}
	return logging.NewEmitter(logging.EmitterConfig{
		SessionID:   settings.SessionID,
		Interpreter: settings.Interpreter,
	}, sink), nil
}
