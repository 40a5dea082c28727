// ABOUTME: Store interface and data types for kitchat persistence
// ABOUTME: Defines the named-record contract used for durable client settings

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Record is a single named value with its last write time.
type Record struct {
	Name      string
	Value     string
	UpdatedAt time.Time
}

// RecordStore persists opaque named records. Each write replaces the whole
// value in a single statement, so readers never observe a partial record.
type RecordStore interface {
	// GetRecord returns the value stored under name, or ErrNotFound.
	GetRecord(ctx context.Context, name string) (string, error)

	// PutRecord creates or replaces the value stored under name.
	PutRecord(ctx context.Context, name, value string) error

	// DeleteRecord removes the record. Deleting a missing record is not an error.
	DeleteRecord(ctx context.Context, name string) error

	// Close releases the underlying resources.
	Close() error
}
