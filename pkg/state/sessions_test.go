package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(Session{
		ID:          "sess-1",
		Interpreter: "python3",
		Code:        "print('hi')",
		ExitCode:    3,
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
	}))

	got, err := s.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "python3", got.Interpreter)
	assert.Equal(t, Digest("print('hi')"), got.CodeDigest)
	assert.Equal(t, 3, got.ExitCode)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(Session{
			ID:          id,
			Interpreter: "sh",
			Code:        "true",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	two, err := s.List(ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "b", two[1].ID)
}

func TestList_FailedOnlyFiltersBeforeLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(Session{ID: "old-fail", Interpreter: "sh", Code: "exit 1", ExitCode: 1, StartedAt: base}))
	for i, id := range []string{"ok-1", "ok-2", "ok-3"} {
		require.NoError(t, s.Record(Session{
			ID:          id,
			Interpreter: "sh",
			Code:        "true",
			StartedAt:   base.Add(time.Duration(i+1) * time.Minute),
		}))
	}
	require.NoError(t, s.Record(Session{ID: "new-fail", Interpreter: "sh", Code: "exit 2", ExitCode: 2, StartedAt: base.Add(time.Hour)}))

	failed, err := s.List(ListOptions{Limit: 2, FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "new-fail", failed[0].ID)
	assert.Equal(t, "old-fail", failed[1].ID)

	recent, err := s.List(ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new-fail", recent[0].ID)
	assert.Equal(t, "ok-3", recent[1].ID)
}

func TestGet_ReturnsLatestRunForSession(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(Session{ID: "same", Interpreter: "sh", Code: "exit 1", ExitCode: 1, StartedAt: base}))
	require.NoError(t, s.Record(Session{ID: "same", Interpreter: "sh", Code: "true", StartedAt: base.Add(time.Second)}))

	got, err := s.Get("same")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ExitCode)
	assert.Equal(t, "true", got.Code)
}

func TestDigestStable(t *testing.T) {
	assert.Equal(t, Digest("x"), Digest("x"))
	assert.NotEqual(t, Digest("x"), Digest("y"))
	assert.Len(t, Digest(""), 64)
}
