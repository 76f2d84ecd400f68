package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeCreatesHeader(t *testing.T) {
	log := DefaultLog(t.TempDir())

	require.NoError(t, log.Initialize())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# Drover Progress Log", lines[0])
	assert.Equal(t, "---", lines[2])

	started := strings.TrimPrefix(lines[1], "Started: ")
	require.NotEqual(t, lines[1], started, "second line should carry the Started: prefix")
	_, err = time.Parse(time.RFC3339, started)
	assert.NoError(t, err)
}

func TestInitializeLeavesExistingLog(t *testing.T) {
	log := DefaultLog(t.TempDir())
	require.NoError(t, os.WriteFile(log.Path(), []byte("earlier run\n"), 0644))

	require.NoError(t, log.Initialize())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, "earlier run\n", string(data))
}

func TestInitializeIdempotent(t *testing.T) {
	log := DefaultLog(t.TempDir())

	require.NoError(t, log.Initialize())
	first, err := os.ReadFile(log.Path())
	require.NoError(t, err)

	require.NoError(t, log.Initialize())
	second, err := os.ReadFile(log.Path())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestAppendAddsNewlineWhenMissing(t *testing.T) {
	log := DefaultLog(t.TempDir())

	require.NoError(t, log.Append("iteration 1 started"))
	require.NoError(t, log.Append("iteration 1 finished\n"))

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, "iteration 1 started\niteration 1 finished\n", string(data))
}

func TestAppendCreatesFile(t *testing.T) {
	log := DefaultLog(t.TempDir())

	require.NoError(t, log.Append("no init needed"))

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, "no init needed\n", string(data))
}

func TestTail(t *testing.T) {
	log := DefaultLog(t.TempDir())
	for _, entry := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, log.Append(entry))
	}

	lines, err := log.Tail(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "four", "five"}, lines)

	all, err := log.Tail(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	wide, err := log.Tail(50)
	require.NoError(t, err)
	assert.Len(t, wide, 5)
}

func TestTailMissingLog(t *testing.T) {
	log := DefaultLog(t.TempDir())

	lines, err := log.Tail(10)
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestDefaultLogPath(t *testing.T) {
	log := DefaultLog("/work")
	assert.Equal(t, filepath.Join("/work", DefaultFileName), log.Path())
}
