// Package models defines the domain types for Laguz.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// SchemaVersion is the current lore document format version.
const SchemaVersion = 1

// ContentTypeMarkdown is the only body format currently produced.
const ContentTypeMarkdown = "markdown"

// State is the lifecycle discriminator of a Record. Records are never
// physically removed; archiving or deleting is a state transition so that
// external references to an id never dangle.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
	StateDeleted  State = "deleted"
)

// Valid reports whether s is a known state value.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateArchived, StateDeleted:
		return true
	}
	return false
}

// Location is a 1-based inclusive line range within a file. The anchor
// fields are reserved for drift-resistant relocation and are carried but
// not interpreted by the tracker.
type Location struct {
	StartLine      int    `json:"startLine"`
	EndLine        int    `json:"endLine"`
	AnchorText     string `json:"anchorText,omitempty"`
	ContextPreview string `json:"contextPreview,omitempty"`
	ContentHash    string `json:"contentHash,omitempty"`
}

// Clamp enforces startLine >= 1 and endLine >= startLine.
func (l *Location) Clamp() {
	if l.StartLine < 1 {
		l.StartLine = 1
	}
	if l.EndLine < l.StartLine {
		l.EndLine = l.StartLine
	}
}

// Record is one lore entry tied to a file and line range.
type Record struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	File        string    `json:"file"`
	Location    Location  `json:"location"`
	Summary     string    `json:"summary"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags"`
	Links       []string  `json:"links"`
	Categories  []string  `json:"categories"`
	Author      Author    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ContentType string    `json:"contentType"`
	IsTrusted   bool      `json:"isTrusted"`
}

// Active reports whether the record is eligible for tracking and rendering.
func (r *Record) Active() bool {
	return r.State == StateActive
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Links = append([]string(nil), r.Links...)
	cp.Categories = append([]string(nil), r.Categories...)
	return &cp
}

// Metadata describes the lore document as a whole.
type Metadata struct {
	Workspace     string    `json:"workspace"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy,omitempty"`
}

// DocumentIndex holds derived aggregate counters. It is advisory only and
// is recomputed from Items before every persist; readers must never treat
// it as a source of truth.
type DocumentIndex struct {
	TagCounts   map[string]int `json:"tagCounts"`
	StateCounts map[string]int `json:"stateCounts"`
	FileCount   int            `json:"fileCount"`
}

// Document is the root of the persisted lore store.
type Document struct {
	SchemaVersion int           `json:"schemaVersion"`
	Metadata      Metadata      `json:"metadata"`
	Index         DocumentIndex `json:"index"`
	Items         []*Record     `json:"items"`
}

// NewDocument returns an empty, schema-valid document for the given
// workspace name.
func NewDocument(workspace string) *Document {
	now := time.Now().UTC()
	return &Document{
		SchemaVersion: SchemaVersion,
		Metadata: Metadata{
			Workspace:     workspace,
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
		Index: DocumentIndex{
			TagCounts:   map[string]int{},
			StateCounts: map[string]int{},
		},
		Items: []*Record{},
	}
}

// RecomputeIndex rebuilds the advisory counters from Items.
func (d *Document) RecomputeIndex() {
	idx := DocumentIndex{
		TagCounts:   map[string]int{},
		StateCounts: map[string]int{},
	}
	files := make(map[string]struct{})
	for _, r := range d.Items {
		idx.StateCounts[string(r.State)]++
		if !r.Active() {
			continue
		}
		files[r.File] = struct{}{}
		for _, t := range r.Tags {
			idx.TagCounts[t]++
		}
	}
	idx.FileCount = len(files)
	d.Index = idx
}

// NormalizePath converts path to forward-slash separators relative form,
// regardless of host platform.
func NormalizePath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}
