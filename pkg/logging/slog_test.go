package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		records = append(records, m)
	}
	return records
}

func TestSlogFunc_LevelAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	fn := SlogFunc(newJSONLogger(&buf), slog.LevelError, "stream", StreamStderr)

	fn("something failed\n")

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "ERROR", records[0]["level"])
	assert.Equal(t, "something failed", records[0]["msg"])
	assert.Equal(t, StreamStderr, records[0]["stream"])
}

func TestSlogFunc_DropsBareLineBreaks(t *testing.T) {
	var buf bytes.Buffer
	fn := SlogFunc(newJSONLogger(&buf), slog.LevelInfo)

	fn("\n")
	fn("\r\n")
	fn("")

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1, "only the empty write is logged")
	assert.Equal(t, "", records[0]["msg"])
}

func TestSlogFunc_KeepsInnerLineBreaks(t *testing.T) {
	var buf bytes.Buffer
	fn := SlogFunc(newJSONLogger(&buf), slog.LevelInfo)

	fn("a\nb\n")

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "a\nb", records[0]["msg"])
}

func TestTee_FansOutInOrder(t *testing.T) {
	var got []string
	fn := Tee(
		func(s string) { got = append(got, "a:"+s) },
		nil,
		func(s string) { got = append(got, "b:"+s) },
	)

	fn("x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}
