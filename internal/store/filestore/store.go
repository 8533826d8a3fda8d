// Package filestore persists identity records in a flat file of fixed-size
// records so that an existing id can be rewritten in place.
//
// The file starts with a 4 byte big-endian format version (currently 1) and is
// followed by 56 byte records:
//
//	+----------+----------------------------+-----------------+
//	| id (16)  | name, 16 UTF-16 units (32) | lastSeen ms (8) |
//	+----------+----------------------------+-----------------+
//
// All integers are big-endian. Names longer than 16 code units are truncated.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"playercache/internal/identity"
	"playercache/pkg/platform/sentinel"
)

// Store is the binary file backend. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	offsets map[uuid.UUID]int64
	end     int64
	loaded  bool
	closed  bool

	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the clock used to stamp loaded records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the file at path. Records are only readable after
// LoadAll.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w: %w", sentinel.ErrStore, err)
		}
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open player file: %w: %w", sentinel.ErrStore, err)
	}

	s := &Store{
		path:    path,
		file:    file,
		offsets: make(map[uuid.UUID]int64),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every record, stamping each with the current time as its
// cache load time. It may be called once. A file without a complete header
// gets one written; a trailing partial record is ignored and overwritten by
// the next append.
func (s *Store) LoadAll(ctx context.Context) ([]identity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("load players: store closed: %w", sentinel.ErrInvalidState)
	}
	if s.loaded {
		return nil, fmt.Errorf("load players: already loaded: %w", sentinel.ErrInvalidState)
	}

	data, err := io.ReadAll(io.NewSectionReader(s.file, 0, 1<<62))
	if err != nil {
		return nil, fmt.Errorf("read player file: %w: %w", sentinel.ErrStore, err)
	}

	if len(data) < headerSize {
		if _, err := s.file.WriteAt(newHeader(), 0); err != nil {
			return nil, fmt.Errorf("write player file header: %w: %w", sentinel.ErrStore, err)
		}
		s.end = headerSize
		s.loaded = true
		return []identity.Record{}, nil
	}

	if v := header(data[:headerSize]).Version(); v != formatVersion {
		return nil, fmt.Errorf("player file %s has version %d: %w", s.path, v, sentinel.ErrFormat)
	}

	count := (len(data) - headerSize) / recordSize
	loadTime := s.now()
	order := make([]uuid.UUID, 0, count)
	byID := make(map[uuid.UUID]identity.Record, count)
	for i := range count {
		offset := int64(headerSize + i*recordSize)
		r := record(data[offset : offset+recordSize])
		id := r.ID()
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = identity.NewRecord(id, r.Name(), r.LastSeen(), loadTime)
		s.offsets[id] = offset
	}
	s.end = int64(headerSize + count*recordSize)
	s.loaded = true

	records := make([]identity.Record, 0, len(order))
	for _, id := range order {
		records = append(records, byID[id])
	}
	s.logger.Debug("player file loaded", "path", s.path, "records", len(records))
	return records, nil
}

// Upsert rewrites the record for r.ID in place, or appends it.
func (s *Store) Upsert(r identity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(r)
}

// UpsertIdentities writes records in order. It stops at the first failure.
func (s *Store) UpsertIdentities(ctx context.Context, records ...identity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if err := s.upsertLocked(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertLocked(r identity.Record) error {
	if s.closed || !s.loaded {
		return fmt.Errorf("upsert player %s: store not loaded or closed: %w", r.ID, sentinel.ErrInvalidState)
	}

	buf := newRecord()
	buf.SetID(r.ID)
	buf.SetName(r.Name)
	buf.SetLastSeen(r.LastSeen)

	offset, known := s.offsets[r.ID]
	if !known {
		offset = s.end
	}
	if _, err := s.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write player %s: %w: %w", r.ID, sentinel.ErrStore, err)
	}
	if !known {
		s.offsets[r.ID] = offset
		s.end = offset + recordSize
	}
	return nil
}

// Close flushes and releases the file. Failures are logged. Calling Close
// more than once is a no-op.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err := s.file.Sync(); err != nil {
		s.logger.Error("failed to flush player file", "path", s.path, "error", err)
	}
	if err := s.file.Close(); err != nil {
		s.logger.Error("failed to close player file", "path", s.path, "error", err)
	}
}

// Exists reports whether a player file is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat player file: %w: %w", sentinel.ErrStore, err)
}

// Remove deletes the player file at path.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove player file: %w: %w", sentinel.ErrStore, err)
	}
	return nil
}
