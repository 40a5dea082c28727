// ABOUTME: Tests for the credential file watcher
// ABOUTME: Verifies a save through one SQLite handle reaches a store watching another

package credentials

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/kitchat/internal/store"
)

func TestWatch_ReloadsExternalSave(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kitchat.db")

	watchedDB, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer watchedDB.Close()

	otherDB, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer otherDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched := NewStore(watchedDB, nil, slog.Default())
	_, err = watched.Load(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dbPath, watched, slog.Default()) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)

	other := NewStore(otherDB, nil, slog.Default())
	require.NoError(t, other.Save(ctx, Pair{Kit: "k", Claude: "c"}))

	require.Eventually(t, func() bool {
		return watched.Snapshot() == Pair{Kit: "k", Claude: "c"}
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	s := NewStore(store.NewMockStore(), nil, slog.Default())
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "kitchat.db"), s, nil)
	assert.Error(t, err)
}
