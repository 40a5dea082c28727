// ABOUTME: Credential store holding the in-memory pair backed by a durable record
// ABOUTME: Handles load with corrupt-record recovery, save, clear and cross-process reload

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/kitchat/internal/events"
	"github.com/2389/kitchat/internal/store"
)

// RecordName is the durable record holding the serialized Pair.
const RecordName = "mcp_api_settings"

// Event kinds published on events.TopicCredentials. The payload is a Pair copy.
const (
	EventLoaded  = "credentials.loaded"
	EventChanged = "credentials.changed"
	EventCleared = "credentials.cleared"
)

// Store owns the credential pair. Consumers only ever receive copies.
type Store struct {
	mu      sync.RWMutex
	pair    Pair
	records store.RecordStore

	// writeMu serializes durable writes so memory and disk change in the same order.
	writeMu sync.Mutex

	publisher events.Publisher
	logger    *slog.Logger
}

// NewStore creates a Store over the given record store. publisher may be nil.
func NewStore(records store.RecordStore, publisher events.Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records:   records,
		publisher: publisher,
		logger:    logger.With("component", "credentials"),
	}
}

// Load reads the durable record into memory. A missing record yields the
// empty pair. A record that cannot be parsed is deleted and also yields the
// empty pair; only storage failures are returned.
func (s *Store) Load(ctx context.Context) (Pair, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pair, err := s.readDurable(ctx)
	if err != nil {
		return Pair{}, err
	}

	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()

	s.logger.Info("credentials loaded", "credentials", pair)
	s.publish(EventLoaded, pair)
	return pair, nil
}

// Save persists pair and then replaces the in-memory copy. If the durable
// write fails, memory is left untouched and the error is returned.
func (s *Store) Save(ctx context.Context, pair Pair) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := s.records.PutRecord(ctx, RecordName, string(data)); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()

	s.logger.Info("credentials saved", "credentials", pair)
	s.publish(EventChanged, pair)
	return nil
}

// Clear removes the durable record and resets memory to the empty pair.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.records.DeleteRecord(ctx, RecordName); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	s.mu.Lock()
	s.pair = Pair{}
	s.mu.Unlock()

	s.logger.Info("credentials cleared")
	s.publish(EventCleared, Pair{})
	return nil
}

// Snapshot returns a copy of the current pair. Callers read it once per
// operation so a probe or send never mixes old and new keys.
func (s *Store) Snapshot() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Reload re-reads the durable record, typically after another process wrote
// it. It reports whether the in-memory pair changed.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pair, err := s.readDurable(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	changed := pair != s.pair
	s.pair = pair
	s.mu.Unlock()

	if !changed {
		return false, nil
	}

	s.logger.Info("credentials reloaded", "credentials", pair)
	s.publish(EventChanged, pair)
	return true, nil
}

// readDurable must be called with writeMu held.
func (s *Store) readDurable(ctx context.Context) (Pair, error) {
	raw, err := s.records.GetRecord(ctx, RecordName)
	if errors.Is(err, store.ErrNotFound) {
		return Pair{}, nil
	}
	if err != nil {
		return Pair{}, fmt.Errorf("reading credentials: %w", err)
	}

	var pair Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		s.logger.Warn("discarding unreadable settings record", "error", err)
		if delErr := s.records.DeleteRecord(ctx, RecordName); delErr != nil {
			s.logger.Error("failed to delete unreadable settings record", "error", delErr)
		}
		return Pair{}, nil
	}
	return pair, nil
}

func (s *Store) publish(kind string, pair Pair) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.TopicCredentials, events.NewEvent(events.TopicCredentials, kind, pair), "")
}
