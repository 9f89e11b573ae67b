// Package lorebook holds the in-memory lore store: the parsed document,
// id and file lookups, and the upsert/track mutation paths.
package lorebook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// EventKind classifies a change notification.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventUpdated   EventKind = "updated"
	EventRelocated EventKind = "relocated"
	EventState     EventKind = "state"
)

// Event describes one committed mutation. Relocation events carry only the
// file; the other kinds identify the affected record.
type Event struct {
	Kind EventKind
	ID   string
	File string
}

// Observer receives change notifications. Observers are invoked
// synchronously, after the mutation is fully committed in memory, in
// registration order.
type Observer func(Event)

// Book is the in-memory lore store for one project. It owns lookup and
// notification; merge and shift logic live in upsert.go and track.go so
// invariant enforcement stays in one place per concern.
//
// Book is not goroutine-safe; callers serialize access (see loreservice).
type Book struct {
	doc       *models.Document
	byID      map[string]*models.Record
	observers []Observer
}

// New returns an empty book for the given workspace name.
func New(workspace string) *Book {
	return fromDocument(models.NewDocument(workspace))
}

// Load parses a persisted lore document. A malformed payload yields an
// error wrapping apperr.ErrParse; callers fall back to an empty book and
// must not overwrite the on-disk file until a deliberate re-init.
func Load(data []byte) (*Book, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lorebook: %w: %v", apperr.ErrParse, err)
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = models.SchemaVersion
	}
	if doc.Items == nil {
		doc.Items = []*models.Record{}
	}
	return fromDocument(&doc), nil
}

func fromDocument(doc *models.Document) *Book {
	b := &Book{doc: doc, byID: make(map[string]*models.Record, len(doc.Items))}

	// Enforce id uniqueness and the location invariant on data we did not
	// write ourselves. Later duplicates lose.
	items := doc.Items[:0]
	for _, r := range doc.Items {
		if _, dup := b.byID[r.ID]; dup || r.ID == "" {
			continue
		}
		if r.State == "" {
			r.State = models.StateActive
		}
		if r.ContentType == "" {
			r.ContentType = models.ContentTypeMarkdown
		}
		r.Location.Clamp()
		b.byID[r.ID] = r
		items = append(items, r)
	}
	doc.Items = items
	return b
}

// Subscribe registers an observer for subsequent mutations.
func (b *Book) Subscribe(obs Observer) {
	b.observers = append(b.observers, obs)
}

func (b *Book) notify(ev Event) {
	for _, obs := range b.observers {
		obs(ev)
	}
}

// ByID returns the record with the given id, or nil.
func (b *Book) ByID(id string) *models.Record {
	return b.byID[id]
}

// ByFile returns the active records for file, preserving item order.
func (b *Book) ByFile(file string) []*models.Record {
	file = models.NormalizePath(file)
	var out []*models.Record
	for _, r := range b.doc.Items {
		if r.Active() && r.File == file {
			out = append(out, r)
		}
	}
	return out
}

// All returns every record regardless of state, in item order.
func (b *Book) All() []*models.Record {
	return b.doc.Items
}

// Workspace returns the document's workspace name.
func (b *Book) Workspace() string {
	return b.doc.Metadata.Workspace
}

// SetState transitions a record to the given state (soft archive/delete).
func (b *Book) SetState(id string, state models.State) error {
	r := b.byID[id]
	if r == nil {
		return fmt.Errorf("lorebook: record %s: %w", id, apperr.ErrNotFound)
	}
	if !state.Valid() {
		return fmt.Errorf("lorebook: invalid state %q", state)
	}
	if r.State == state {
		return nil
	}
	r.State = state
	r.UpdatedAt = time.Now().UTC()
	b.touch("")
	b.notify(Event{Kind: EventState, ID: id, File: r.File})
	return nil
}

// Snapshot recomputes the advisory index counters and returns the document
// for serialization. The returned value shares record pointers with the
// book; serialize it before releasing the caller's lock.
func (b *Book) Snapshot() *models.Document {
	b.doc.RecomputeIndex()
	return b.doc
}

// touch refreshes the document metadata after a mutation.
func (b *Book) touch(by string) {
	b.doc.Metadata.LastUpdatedAt = time.Now().UTC()
	if by != "" {
		b.doc.Metadata.LastUpdatedBy = by
	}
}
