// Package loreservice coordinates the lore book, the derived search
// index, and durable persistence.
package loreservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/lorefile"
	"github.com/starford/laguz/internal/models"
)

// Service is the single entry point for mutating and querying lore. A
// mutex serializes all book access: the host here is a concurrent HTTP
// server, so the "one mutation per event turn" guarantee the engine
// assumes is provided by the lock. Persistence is deferred to a
// trailing-edge debouncer so bursts of tracker activity coalesce into one
// atomic write.
type Service struct {
	db     *index.DB
	writer *lorefile.Writer
	path   string
	logger *slog.Logger
	deb    *lorefile.Debouncer

	mu        sync.Mutex
	book      *lorebook.Book
	observers []lorebook.Observer
	lastSum   string // checksum of the bytes we last wrote
	dirty     bool   // in-memory state ahead of disk
	blocked   bool   // on-disk file unparseable; refuse to overwrite
}

// New creates a Service around an already-loaded book. blocked marks the
// on-disk file as unparseable: the service then keeps serving from memory
// but refuses to persist until Reinit is called deliberately.
func New(book *lorebook.Book, db *index.DB, writer *lorefile.Writer, path string, debounce time.Duration, blocked bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:      db,
		writer:  writer,
		path:    path,
		logger:  logger,
		blocked: blocked,
	}
	s.deb = lorefile.NewDebouncer(debounce, s.persist, func(err error) {
		// The in-memory store is now ahead of disk. The next mutation
		// reschedules a save; with no further mutations this state is
		// only flushed at shutdown.
		logger.Error("persist failed", slog.String("error", err.Error()))
	})
	s.adopt(book)
	return s
}

// adopt installs a book and hooks its change notifications. Caller holds
// the lock (or is the constructor).
func (s *Service) adopt(book *lorebook.Book) {
	s.book = book
	book.Subscribe(s.onEvent)
}

// onEvent runs synchronously inside a mutation, with s.mu already held by
// the mutating caller. It must not take the lock.
func (s *Service) onEvent(ev lorebook.Event) {
	s.dirty = true
	s.reindex(ev)
	for _, obs := range s.observers {
		obs(ev)
	}
	s.deb.Trigger()
}

// reindex mirrors one mutation into the derived SQLite index.
func (s *Service) reindex(ev lorebook.Event) {
	switch ev.Kind {
	case lorebook.EventRelocated:
		for _, r := range s.book.ByFile(ev.File) {
			if err := s.db.UpsertRecord(index.RowFromRecord(r), r.Body); err != nil {
				s.logger.Warn("index update failed", slog.String("id", r.ID), slog.String("error", err.Error()))
			}
		}
	default:
		r := s.book.ByID(ev.ID)
		if r == nil {
			return
		}
		if err := s.db.UpsertRecord(index.RowFromRecord(r), r.Body); err != nil {
			s.logger.Warn("index update failed", slog.String("id", ev.ID), slog.String("error", err.Error()))
		}
	}
}

// Subscribe registers an observer for committed mutations. Observers
// survive an external reload of the book.
func (s *Service) Subscribe(obs lorebook.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Save runs the upsert resolver and returns the affected record.
func (s *Service) Save(_ context.Context, p lorebook.Payload, fb lorebook.Fallback) (*models.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, created, err := s.book.Upsert(p, fb)
	if err != nil {
		return nil, false, err
	}
	return s.book.ByID(id).Clone(), created, nil
}

// ApplyEdits feeds one document's edits to the location tracker and
// reports whether any record moved.
func (s *Service) ApplyEdits(_ context.Context, file string, edits []lorebook.Edit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Track(file, edits)
}

// SetState soft-archives, soft-deletes, or restores a record.
func (s *Service) SetState(_ context.Context, id string, state models.State) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.SetState(id, state); err != nil {
		return nil, err
	}
	return s.book.ByID(id).Clone(), nil
}

// Record returns a copy of the record with the given id.
func (s *Service) Record(_ context.Context, id string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.book.ByID(id)
	if r == nil {
		return nil, fmt.Errorf("loreservice: record %s: %w", id, apperr.ErrNotFound)
	}
	return r.Clone(), nil
}

// RecordsForFile returns copies of the active records on file, in item
// order, for decoration and hover content.
func (s *Service) RecordsForFile(_ context.Context, file string) []*models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.book.ByFile(file)
	out := make([]*models.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

// List returns paginated record rows from the derived index.
func (s *Service) List(_ context.Context, limit, offset int, tag, state string) ([]index.RecordRow, int, error) {
	return s.db.ListRecords(limit, offset, tag, state)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// persist writes the current snapshot to disk atomically. Serialization
// happens under the lock; the disk write does not hold it.
func (s *Service) persist() error {
	s.mu.Lock()
	if s.blocked {
		s.mu.Unlock()
		return fmt.Errorf("loreservice: refusing to overwrite unparseable lore file %s: %w", s.path, apperr.ErrConflict)
	}
	data, err := lorefile.Marshal(s.book.Snapshot())
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.writer.Write(s.path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastSum = checksum.Sum(data)
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Reinit deliberately replaces the on-disk document with the current
// in-memory state, clearing a parse-failure block. A corrupt file is only
// ever rewritten through this explicit call.
func (s *Service) Reinit(_ context.Context) error {
	s.mu.Lock()
	s.blocked = false
	s.mu.Unlock()
	return s.persist()
}

// ReloadFrom replaces the in-memory book with one parsed from data (the
// lore file as rewritten by another tool) and resyncs the index. Service
// observers are carried over; pending unsaved state is discarded, since
// the external writer won the file.
func (s *Service) ReloadFrom(data []byte) error {
	book, err := lorebook.Load(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adopt(book)
	s.lastSum = checksum.Sum(data)
	s.dirty = false
	s.blocked = false
	return index.Sync(s.db, book, s.logger)
}

// IsOwnWrite reports whether sum matches the last write this service
// performed; the watcher uses it to ignore echoes of our own saves.
func (s *Service) IsOwnWrite(sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sum == s.lastSum
}

// Dirty reports whether in-memory state is ahead of disk.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Blocked reports whether persistence is refused because the on-disk file
// failed to parse at startup.
func (s *Service) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// Flush persists any pending coalesced save. Called at shutdown.
func (s *Service) Flush() {
	s.deb.Flush()
}

// Close stops the debouncer after flushing pending work.
func (s *Service) Close() {
	s.deb.Flush()
	s.deb.Stop()
}
