// ABOUTME: Tests for the credential store
// ABOUTME: Covers load/save round trips, corrupt-record recovery, clear, reload and notifications

package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/store"
)

func TestLoad_Empty(t *testing.T) {
	s := NewStore(store.NewMockStore(), nil, slog.Default())

	pair, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, pair.IsZero())
	assert.Equal(t, Pair{}, s.Snapshot())
}

func TestSaveThenLoad_ReturnsLastSaved(t *testing.T) {
	records := store.NewMockStore()
	ctx := context.Background()

	pairs := []Pair{
		{Kit: "k1", Claude: "c1"},
		{Kit: "k2", Claude: ""},
		{Kit: "", Claude: "c3"},
		{Kit: "k4 with spaces", Claude: `c4"quoted"`},
	}

	for _, want := range pairs {
		writer := NewStore(records, nil, slog.Default())
		require.NoError(t, writer.Save(ctx, want))
		assert.Equal(t, want, writer.Snapshot())

		reader := NewStore(records, nil, slog.Default())
		got, err := reader.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoad_CorruptRecordIsDiscarded(t *testing.T) {
	records := store.NewMockStore()
	records.SetRaw(RecordName, "{not json")

	s := NewStore(records, nil, slog.Default())
	pair, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.True(t, pair.IsZero())
	assert.False(t, records.Has(RecordName), "corrupt record should be erased")
}

func TestLoad_ReadErrorIsReturned(t *testing.T) {
	s := NewStore(failingGetStore{store.NewMockStore()}, nil, slog.Default())

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading credentials")
}

func TestSave_PersistFailureLeavesMemoryUnchanged(t *testing.T) {
	records := store.NewMockStore()
	s := NewStore(records, nil, slog.Default())
	ctx := context.Background()

	original := Pair{Kit: "k", Claude: "c"}
	require.NoError(t, s.Save(ctx, original))

	records.PutErr = errors.New("disk full")
	err := s.Save(ctx, Pair{Kit: "new", Claude: "new"})

	require.Error(t, err)
	assert.Equal(t, original, s.Snapshot())
}

func TestSave_AcceptsAnyString(t *testing.T) {
	s := NewStore(store.NewMockStore(), nil, slog.Default())

	pair := Pair{Kit: "x", Claude: "not-a-real-key-format-!@#"}
	require.NoError(t, s.Save(context.Background(), pair))
	assert.Equal(t, pair, s.Snapshot())
}

func TestClear(t *testing.T) {
	records := store.NewMockStore()
	s := NewStore(records, nil, slog.Default())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Pair{Kit: "k", Claude: "c"}))
	require.NoError(t, s.Clear(ctx))

	assert.True(t, s.Snapshot().IsZero())
	assert.False(t, records.Has(RecordName))
}

func TestClear_DeleteFailureLeavesMemoryUnchanged(t *testing.T) {
	records := store.NewMockStore()
	s := NewStore(records, nil, slog.Default())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Pair{Kit: "k", Claude: "c"}))
	records.DeleteErr = errors.New("locked")

	require.Error(t, s.Clear(ctx))
	assert.Equal(t, Pair{Kit: "k", Claude: "c"}, s.Snapshot())
}

func TestReload_ReportsChanges(t *testing.T) {
	records := store.NewMockStore()
	ctx := context.Background()

	s := NewStore(records, nil, slog.Default())
	_, err := s.Load(ctx)
	require.NoError(t, err)

	changed, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	other := NewStore(records, nil, slog.Default())
	require.NoError(t, other.Save(ctx, Pair{Kit: "k", Claude: "c"}))

	changed, err = s.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Pair{Kit: "k", Claude: "c"}, s.Snapshot())
}

func TestStore_PublishesChanges(t *testing.T) {
	b := events.NewBroadcaster(slog.Default())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := b.Subscribe(ctx, events.TopicCredentials)

	s := NewStore(store.NewMockStore(), b, slog.Default())
	require.NoError(t, s.Save(ctx, Pair{Kit: "k", Claude: "c"}))
	require.NoError(t, s.Clear(ctx))

	first := receive(t, ch)
	assert.Equal(t, EventChanged, first.Kind)
	assert.Equal(t, Pair{Kit: "k", Claude: "c"}, first.Payload)

	second := receive(t, ch)
	assert.Equal(t, EventCleared, second.Kind)
	assert.Equal(t, Pair{}, second.Payload)
}

func TestPair_NeverPrintsKeys(t *testing.T) {
	pair := Pair{Kit: "kit-secret", Claude: "claude-secret"}

	for _, out := range []string{
		fmt.Sprint(pair),
		fmt.Sprintf("%v %+v %#v %s", pair, pair, pair, pair),
		pair.LogValue().String(),
	} {
		assert.NotContains(t, out, "kit-secret")
		assert.NotContains(t, out, "claude-secret")
	}
	assert.Contains(t, pair.String(), "kit:set")
	assert.Contains(t, Pair{}.String(), "claude:unset")
}

func TestPair_Complete(t *testing.T) {
	assert.True(t, Pair{Kit: "a", Claude: "b"}.Complete())
	assert.False(t, Pair{Kit: "a"}.Complete())
	assert.False(t, Pair{Claude: "b"}.Complete())
	assert.True(t, Pair{}.IsZero())
	assert.False(t, Pair{Kit: "a"}.IsZero())
}

// failingGetStore wraps a MockStore and fails every read.
type failingGetStore struct {
	*store.MockStore
}

func (f failingGetStore) GetRecord(ctx context.Context, name string) (string, error) {
	return "", errors.New("io error")
}

func receive(t *testing.T, ch <-chan *events.Event) *events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}
