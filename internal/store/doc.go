// Package store provides durable storage for the kitchat client using SQLite.
//
// # Architecture
//
// The client persists very little: a handful of named records, each holding
// an opaque serialized value. RecordStore is the whole contract:
//
//   - GetRecord(ctx, name): read a value, ErrNotFound when absent
//   - PutRecord(ctx, name, value): create or replace atomically
//   - DeleteRecord(ctx, name): remove, idempotent
//
// SQLiteStore implements it on modernc.org/sqlite (pure Go, no cgo) with WAL
// enabled so that several kitchat processes can share one settings file.
// MockStore implements it in memory for tests and can plant corrupt values
// or inject write failures.
//
// # Schema
//
//	CREATE TABLE records (
//	    name       TEXT PRIMARY KEY,
//	    value      TEXT NOT NULL,
//	    updated_at TEXT NOT NULL   -- RFC3339Nano, UTC
//	);
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/home/me/.local/share/kitchat/kitchat.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.PutRecord(ctx, "mcp_api_settings", payload); err != nil {
//	    return err
//	}
package store
