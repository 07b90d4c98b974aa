package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"logosim.ai/internal/sim/world"
)

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	ticks := 2.0
	in := []world.TickLogEntry{
		{Tick: 0, Digest: "aa", Turtles: 2, Born: []int64{0, 1}},
		{Tick: 1, Digest: "bb", Turtles: 1, Ticks: &ticks, Died: []int64{0}},
	}
	for _, e := range in {
		require.NoError(t, l.WriteTick(e))
	}
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out, err := ReadTicks(files[0])
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestJSONLZstdWriter_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	require.NoError(t, w.Close())
	require.NoError(t, w.Write(map[string]int{"a": 1}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
