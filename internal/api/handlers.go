package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/loreservice"
	"github.com/starford/laguz/internal/models"
)

var errInvalidState = errors.New("invalid state")

// Handler holds API route handlers.
type Handler struct {
	svc *loreservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *loreservice.Service) *Handler {
	return &Handler{svc: svc}
}

// filePath extracts the source file path from the URL (everything after
// /api/files/). Supports encoded slashes from OpenAPI clients
// (e.g. src%2Fmain.go).
func filePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// UpsertRecord handles POST /api/records.
//
//	@Summary		Create or update a lore record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpsertRequest	true	"Partial record"
//	@Success		200		{object}	RecordDetail
//	@Success		201		{object}	RecordDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, fb, err := req.payload()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("state must be one of active, archived, deleted"))
		return
	}

	rec, created, err := h.svc.Save(r.Context(), p, fb)
	if err != nil {
		slog.Error("upsert record failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// ListRecords handles GET /api/records.
//
//	@Summary		List records with optional pagination and filtering
//	@Tags			records
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			state	query		string	false	"Filter by state"	Enums(active, archived, deleted)
//	@Success		200		{object}	RecordListResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	state := q.Get("state")

	items, total, err := h.svc.List(r.Context(), limit, offset, tag, state)
	if err != nil {
		slog.Error("list records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": items,
		"total":   total,
	})
}

// GetRecord handles GET /api/records/{id}.
//
//	@Summary		Get a single record by id
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	RecordDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.svc.Record(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get record failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ArchiveRecord handles POST /api/records/{id}/archive.
//
//	@Summary		Archive a record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	RecordDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/archive [post]
func (h *Handler) ArchiveRecord(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, models.StateArchived)
}

// RestoreRecord handles POST /api/records/{id}/restore.
//
//	@Summary		Restore a record to the active state
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	RecordDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/restore [post]
func (h *Handler) RestoreRecord(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, models.StateActive)
}

// DeleteRecord handles DELETE /api/records/{id}. Deletion is a state
// transition; the record stays addressable by id.
//
//	@Summary		Soft-delete a record
//	@Tags			records
//	@Param			id	path	string	true	"Record id"
//	@Success		204	"Record deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.SetState(r.Context(), id, models.StateDeleted); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete record failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setState(w http.ResponseWriter, r *http.Request, state models.State) {
	id := chi.URLParam(r, "id")
	rec, err := h.svc.SetState(r.Context(), id, state)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("set record state failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// FileRecords handles GET /api/files/*.
//
//	@Summary		List active records attached to one file
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"Source file path"
//	@Success		200		{object}	FileRecordsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) FileRecords(w http.ResponseWriter, r *http.Request) {
	path := filePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	records := h.svc.RecordsForFile(r.Context(), path)
	writeJSON(w, http.StatusOK, map[string]any{
		"file":    models.NormalizePath(path),
		"records": records,
	})
}

// DocumentChanged handles POST /api/documents/changed.
//
//	@Summary		Report line edits so record locations follow them
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentChangedRequest	true	"Change batch"
//	@Success		200		{object}	TrackResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/changed [post]
func (h *Handler) DocumentChanged(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DocumentChangedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.File == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("file is required"))
		return
	}
	for _, e := range req.Edits {
		if e.RangeStart < 0 || e.RangeEnd < e.RangeStart || e.InsertedLineCount < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid edit range"))
			return
		}
	}

	edits := make([]lorebook.Edit, 0, len(req.Edits))
	for _, e := range req.Edits {
		edits = append(edits, lorebook.Edit{
			RangeStart:        e.RangeStart,
			RangeEnd:          e.RangeEnd,
			InsertedLineCount: e.InsertedLineCount,
		})
	}
	relocated := h.svc.ApplyEdits(r.Context(), req.File, edits)
	writeJSON(w, http.StatusOK, TrackResponse{Relocated: relocated})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across records
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// ReinitStore handles POST /api/store/reinit. It is the explicit operator
// override after startup found an unparseable lore file: the service stops
// refusing writes and persists the in-memory document.
//
//	@Summary		Re-initialize the lore file after corruption
//	@Tags			store
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/store/reinit [post]
func (h *Handler) ReinitStore(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reinit(r.Context()); err != nil {
		slog.Error("store reinit failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reinitialized"})
}
