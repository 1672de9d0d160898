package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/unipy/pkg/api"
	"github.com/jingkaihe/unipy/pkg/modules"
	"github.com/jingkaihe/unipy/pkg/state"
)

// setRunFlag sets a run flag for the duration of the test.
func setRunFlag(t *testing.T, name, value string) {
	t.Helper()
	setFlag(t, runCmd.Flags(), name, value)
}

func setFlag(t *testing.T, flags *pflag.FlagSet, name, value string) {
	t.Helper()
	f := flags.Lookup(name)
	require.NotNil(t, f, "flag %s", name)
	old := f.Value.String()
	require.NoError(t, flags.Set(name, value))
	t.Cleanup(func() {
		if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(old)
		}
		f.Changed = false
	})
}

func TestParseOptions(t *testing.T) {
	got, err := parseOptions([]string{"MODE=test", "EMPTY=", "URL=http://x/?a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MODE": "test", "EMPTY": "", "URL": "http://x/?a=b"}, got)

	none, err := parseOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseOptionsRejectsMalformed(t *testing.T) {
	for _, spec := range []string{"NOVALUE", "=x"} {
		_, err := parseOptions([]string{spec})
		assert.ErrorIs(t, err, ErrInvalidOption, "spec %q", spec)
	}
}

func TestResolveCodeFromArgs(t *testing.T) {
	code, err := resolveCode("", []string{"print(1);", "print(2)"})
	require.NoError(t, err)
	assert.Equal(t, "print(1); print(2)", code)

	_, err = resolveCode("", []string{"  "})
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestResolveCodeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.py")
	require.NoError(t, os.WriteFile(path, []byte("print('file')\n"), 0644))

	code, err := resolveCode(path, []string{"ignored"})
	require.NoError(t, err)
	assert.Equal(t, "print('file')\n", code)

	_, err = resolveCode(filepath.Join(t.TempDir(), "missing.py"), nil)
	assert.ErrorIs(t, err, ErrReadScript)
}

func TestRegisterModules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "engine.ui"), 0755))

	reg := modules.NewRegistry()
	require.NoError(t, registerModules(reg, []string{"game=/mods/game"}, []string{root}))

	assert.Len(t, reg.InNamespace(""), 2)
	assert.Equal(t, filepath.Join(root, "engine.ui"), reg.InNamespace("engine")[0].Path)

	err := registerModules(modules.NewRegistry(), []string{"bad"}, nil)
	assert.ErrorIs(t, err, ErrInvalidModule)
}

func TestBuildSettingsDefaults(t *testing.T) {
	settings, err := buildSettings(runCmd)
	require.NoError(t, err)
	assert.Equal(t, api.DefaultInterpreter, settings.Interpreter)
	assert.True(t, settings.IncludeEngine)
	assert.True(t, settings.RedirectStandardOutput)
	assert.NotEmpty(t, settings.SessionID)
}

func TestBuildSettingsFromFlags(t *testing.T) {
	setRunFlag(t, "interpreter", "sh")
	setRunFlag(t, "option", "MODE=test")
	setRunFlag(t, "no-stderr-redirect", "true")
	setRunFlag(t, "session-id", "fixed")

	settings, err := buildSettings(runCmd)
	require.NoError(t, err)
	assert.Equal(t, "sh", settings.Interpreter)
	assert.Equal(t, "test", settings.Options["MODE"])
	assert.False(t, settings.RedirectStandardError)
	assert.True(t, settings.RedirectStandardOutput)
	assert.Equal(t, "fixed", settings.SessionID)
}

func TestBuildSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interpreter":"pypy3","custom_including":["game"]}`), 0644))
	setRunFlag(t, "settings", path)

	settings, err := buildSettings(runCmd)
	require.NoError(t, err)
	assert.Equal(t, "pypy3", settings.Interpreter, "unset flags must not override the file")
	assert.Equal(t, []string{"game"}, settings.CustomIncluding)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("verbose", "auto", false)
	assert.ErrorIs(t, err, ErrInvalidLogLevel)

	_, err = newLogger("info", "xml", false)
	assert.Error(t, err)

	for _, format := range []string{"auto", "text", "json", ""} {
		logger, err := newLogger("debug", format, true)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}

func TestPrintSessions(t *testing.T) {
	sessions := []state.Session{
		{ID: "ok", Interpreter: "sh", Code: "true", StartedAt: time.Now(), Duration: time.Second},
		{ID: "bad", Interpreter: "sh", Code: "exit 1", ExitCode: 1, StartedAt: time.Now()},
	}

	var out bytes.Buffer
	printSessions(&out, sessions)
	assert.Contains(t, out.String(), "SESSION")
	assert.Contains(t, out.String(), "ok")
	assert.Contains(t, out.String(), "sh -c 'exit 1'")
}

func TestRunList_FailedWithLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	store, err := state.Open(dbPath)
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(state.Session{ID: "failed-run", Interpreter: "sh", Code: "exit 1", ExitCode: 1, StartedAt: base}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Record(state.Session{ID: fmt.Sprintf("ok-%d", i), Interpreter: "sh", Code: "true", StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, store.Close())

	setFlag(t, rootCmd.PersistentFlags(), "state-db", dbPath)
	setFlag(t, listCmd.Flags(), "limit", "2")
	setFlag(t, listCmd.Flags(), "failed", "true")

	var out bytes.Buffer
	listCmd.SetOut(&out)
	t.Cleanup(func() { listCmd.SetOut(nil) })
	require.NoError(t, runList(listCmd, nil))
	assert.Contains(t, out.String(), "failed-run")
	assert.NotContains(t, out.String(), "ok-")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
