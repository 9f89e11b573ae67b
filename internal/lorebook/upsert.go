package lorebook

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
)

// Payload is a partial record for Upsert. Pointer fields distinguish
// "omitted" (nil, preserve the existing value) from "explicitly set"
// (non-nil, overwrite, including to empty). Slice fields follow the same
// rule with nil versus empty.
type Payload struct {
	ID         *string
	File       *string
	StartLine  *int
	EndLine    *int
	Summary    *string
	Body       *string
	Tags       []string
	Links      []string
	Categories []string
	Author     *models.Author
	State      *models.State
	IsTrusted  *bool
}

// Fallback supplies the file and selection captured when the authoring UI
// was opened, used only when the payload does not name them itself.
type Fallback struct {
	File      string
	StartLine int
	EndLine   int
}

// Upsert creates or updates a record from a partial payload:
//
//   - payload id matches an existing record → merge into it in place
//   - payload id set but unknown → create under that id (idempotent retries)
//   - no payload id → create under a fresh ULID
//
// It returns the id of the affected record and whether it was created.
func (b *Book) Upsert(p Payload, fb Fallback) (string, bool, error) {
	if p.ID != nil {
		if r := b.byID[*p.ID]; r != nil {
			b.merge(r, p)
			return r.ID, false, nil
		}
	}

	id := ""
	if p.ID != nil {
		id = *p.ID
	} else {
		generated, err := newID()
		if err != nil {
			return "", false, err
		}
		id = generated
	}

	r := b.create(id, p, fb)
	b.doc.Items = append(b.doc.Items, r)
	b.byID[id] = r
	b.touch(r.Author.Display())
	b.notify(Event{Kind: EventCreated, ID: id, File: r.File})
	return id, true, nil
}

func (b *Book) create(id string, p Payload, fb Fallback) *models.Record {
	now := time.Now().UTC()
	r := &models.Record{
		ID:          id,
		State:       models.StateActive,
		File:        models.NormalizePath(fb.File),
		Location:    models.Location{StartLine: fb.StartLine, EndLine: fb.EndLine},
		Tags:        []string{},
		Links:       []string{},
		Categories:  []string{},
		ContentType: models.ContentTypeMarkdown,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.File != nil {
		r.File = models.NormalizePath(*p.File)
	}
	if p.StartLine != nil {
		r.Location.StartLine = *p.StartLine
	}
	if p.EndLine != nil {
		r.Location.EndLine = *p.EndLine
	}
	r.Location.Clamp()
	if p.Summary != nil {
		r.Summary = *p.Summary
	}
	if p.Body != nil {
		r.Body = *p.Body
	}
	if p.Tags != nil {
		r.Tags = p.Tags
	}
	if p.Links != nil {
		r.Links = p.Links
	}
	if p.Categories != nil {
		r.Categories = p.Categories
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.State != nil && p.State.Valid() {
		r.State = *p.State
	}
	if p.IsTrusted != nil {
		r.IsTrusted = *p.IsTrusted
	}
	foldInlineMarkers(r)
	return r
}

// merge overwrites exactly the fields the payload carries. createdAt is
// never altered; id and state survive unless the payload names a state.
func (b *Book) merge(r *models.Record, p Payload) {
	if p.File != nil {
		r.File = models.NormalizePath(*p.File)
	}
	if p.StartLine != nil {
		r.Location.StartLine = *p.StartLine
	}
	if p.EndLine != nil {
		r.Location.EndLine = *p.EndLine
	}
	r.Location.Clamp()
	if p.Summary != nil {
		r.Summary = *p.Summary
	}
	if p.Body != nil {
		r.Body = *p.Body
	}
	if p.Tags != nil {
		r.Tags = p.Tags
	}
	if p.Links != nil {
		r.Links = p.Links
	}
	if p.Categories != nil {
		r.Categories = p.Categories
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.State != nil && p.State.Valid() {
		r.State = *p.State
	}
	if p.IsTrusted != nil {
		r.IsTrusted = *p.IsTrusted
	}
	foldInlineMarkers(r)
	r.UpdatedAt = time.Now().UTC()
	b.touch(r.Author.Display())
	b.notify(Event{Kind: EventUpdated, ID: r.ID, File: r.File})
}

// foldInlineMarkers merges #tags and [[links]] written inline in the body
// into the record's tag/link sets.
func foldInlineMarkers(r *models.Record) {
	if r.Body == "" {
		return
	}
	res := parser.Extract(r.Body)
	r.Tags = parser.MergeSet(r.Tags, res.Tags)
	r.Links = parser.MergeSet(r.Links, res.Links)
}

func newID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("lorebook: generate id: %w", err)
	}
	return id.String(), nil
}
