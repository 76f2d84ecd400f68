package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:    "creates database successfully",
			dbPath:  filepath.Join(t.TempDir(), "history.db"),
			wantErr: false,
		},
		{
			name:    "handles in-memory database",
			dbPath:  ":memory:",
			wantErr: false,
		},
		{
			name:    "creates parent directories if needed",
			dbPath:  filepath.Join(t.TempDir(), ".drover", "history.db"),
			wantErr: false,
		},
		{
			name:    "returns error when parent is a file",
			dbPath:  filepath.Join(blocker, "history.db"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()

			exists, err := store.tableExists("runs")
			require.NoError(t, err)
			assert.True(t, exists, "runs table should exist")

			assert.Equal(t, tt.dbPath, store.dbPath)
		})
	}
}

func TestStoreClose(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	require.NoError(t, store.Close())
	// Closing twice must not error.
	require.NoError(t, store.Close())
}

func TestRecordRun(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	started := time.Now().Add(-90 * time.Second)
	run := &Run{
		RunID:        "run-20240315-142233-a1b2c3",
		Backend:      "codex",
		Outcome:      "completed",
		Iterations:   3,
		Attempts:     3,
		Cost:         30.0,
		DurationSecs: 90,
		StartedAt:    started,
	}

	require.NoError(t, store.RecordRun(context.Background(), run))
	assert.Greater(t, run.ID, int64(0), "row id should be written back")

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "run-20240315-142233-a1b2c3", got.RunID)
	assert.Equal(t, "codex", got.Backend)
	assert.Equal(t, "completed", got.Outcome)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 30.0, got.Cost)
	assert.Equal(t, int64(90), got.DurationSecs)
	assert.WithinDuration(t, started, got.StartedAt, time.Second)
	assert.False(t, got.RecordedAt.IsZero(), "recorded_at should be stamped")
}

func TestRecordRunGeneratesID(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	run := &Run{Backend: "claude", Outcome: "exhausted"}
	require.NoError(t, store.RecordRun(context.Background(), run))

	assert.True(t, strings.HasPrefix(run.RunID, "run-"), "generated run id %q", run.RunID)
	assert.False(t, run.StartedAt.IsZero())
}

func TestRecordRunRejectsDuplicateRunID(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	run := &Run{RunID: "run-20240315-142233-a1b2c3", Backend: "amp", Outcome: "aborted"}
	require.NoError(t, store.RecordRun(context.Background(), run))

	dup := &Run{RunID: "run-20240315-142233-a1b2c3", Backend: "amp", Outcome: "completed"}
	require.Error(t, store.RecordRun(context.Background(), dup))
}

func TestListRuns(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		run := &Run{
			Backend:    "opencode",
			Outcome:    "exhausted",
			Iterations: i + 1,
		}
		require.NoError(t, store.RecordRun(context.Background(), run))
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := store.ListRuns(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, runs, 5)
		assert.Equal(t, 5, runs[0].Iterations)
		assert.Equal(t, 1, runs[4].Iterations)
	})

	t.Run("limit applies", func(t *testing.T) {
		runs, err := store.ListRuns(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, 5, runs[0].Iterations)
		assert.Equal(t, 4, runs[1].Iterations)
	})
}

func TestListRunsEmpty(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewRunID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()

		if !strings.HasPrefix(id, "run-") {
			t.Errorf("run id missing prefix: %s", id)
		}

		// run-YYYYMMDD-HHMMSS-xxxxxx
		parts := strings.Split(id, "-")
		if len(parts) != 4 {
			t.Errorf("expected 4 parts in %s, got %d", id, len(parts))
		}
		if len(parts[3]) != 6 {
			t.Errorf("expected 6 random characters in %s", id)
		}

		if ids[id] {
			t.Errorf("duplicate run id generated: %s", id)
		}
		ids[id] = true
	}
}
