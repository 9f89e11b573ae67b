package api

import (
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/models"
)

// FallbackDTO carries the file and selection captured when the authoring
// UI was opened, used when the payload omits them.
type FallbackDTO struct {
	File      string `json:"file" example:"src/main.go"`
	StartLine int    `json:"startLine" example:"12"`
	EndLine   int    `json:"endLine" example:"14"`
}

// UpsertRequest is the request body for creating or updating a record.
// Pointer fields distinguish "omitted" from "explicitly set to empty":
// omitted fields keep their current value on update.
type UpsertRequest struct {
	ID         *string        `json:"id,omitempty" example:"01J9ZK3V8N0000000000000000"`
	File       *string        `json:"file,omitempty" example:"src/main.go"`
	StartLine  *int           `json:"startLine,omitempty" example:"12"`
	EndLine    *int           `json:"endLine,omitempty" example:"14"`
	Summary    *string        `json:"summary,omitempty" example:"Retry loop rationale"`
	Body       *string        `json:"body,omitempty" example:"The retry cap is load-bearing, see #ops"`
	Tags       []string       `json:"tags,omitempty" example:"ops,retry"`
	Links      []string       `json:"links,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Author     *models.Author `json:"author,omitempty"`
	State      *string        `json:"state,omitempty" example:"active"`
	IsTrusted  *bool          `json:"isTrusted,omitempty"`
	Fallback   *FallbackDTO   `json:"fallback,omitempty"`
}

// payload converts the request into a domain upsert payload.
func (req UpsertRequest) payload() (lorebook.Payload, lorebook.Fallback, error) {
	p := lorebook.Payload{
		ID:         req.ID,
		File:       req.File,
		StartLine:  req.StartLine,
		EndLine:    req.EndLine,
		Summary:    req.Summary,
		Body:       req.Body,
		Tags:       req.Tags,
		Links:      req.Links,
		Categories: req.Categories,
		Author:     req.Author,
		IsTrusted:  req.IsTrusted,
	}
	if req.State != nil {
		st := models.State(*req.State)
		if !st.Valid() {
			return p, lorebook.Fallback{}, errInvalidState
		}
		p.State = &st
	}
	var fb lorebook.Fallback
	if req.Fallback != nil {
		fb = lorebook.Fallback{
			File:      req.Fallback.File,
			StartLine: req.Fallback.StartLine,
			EndLine:   req.Fallback.EndLine,
		}
	}
	return p, fb, nil
}

// EditDTO is one line-span replacement in a document change report.
// Ranges are 0-based and inclusive.
type EditDTO struct {
	RangeStart        int `json:"rangeStart" example:"4"`
	RangeEnd          int `json:"rangeEnd" example:"4"`
	InsertedLineCount int `json:"insertedLineCount" example:"3"`
}

// DocumentChangedRequest is the request body for POST /documents/changed.
type DocumentChangedRequest struct {
	File  string    `json:"file" example:"src/main.go" validate:"required"`
	Edits []EditDTO `json:"edits" validate:"required"`
}

// RecordDetail is the full record response type (aliased from the domain layer).
type RecordDetail = models.Record

// RecordListItem is a lightweight item in a list response (aliased from the index layer).
type RecordListItem = index.RecordRow

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []RecordListItem `json:"records" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// FileRecordsResponse wraps the active records attached to one file.
type FileRecordsResponse struct {
	File    string          `json:"file" example:"src/main.go" validate:"required"`
	Records []*RecordDetail `json:"records" validate:"required"`
}

// TrackResponse reports whether a change batch moved any record.
type TrackResponse struct {
	Relocated bool `json:"relocated" example:"true"`
}
