package index

import (
	"log/slog"

	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/models"
)

// Sync brings the index up to date with the book:
//   - every record in the book is upserted
//   - rows whose ids no longer exist in the book are deleted
//
// Ids only vanish when the lore file was rewritten externally.
func Sync(db *DB, book *lorebook.Book, logger *slog.Logger) error {
	known, err := db.AllIDs()
	if err != nil {
		return err
	}

	for _, r := range book.All() {
		delete(known, r.ID)
		if err := db.UpsertRecord(RowFromRecord(r), r.Body); err != nil {
			logger.Warn("sync: index failed", slog.String("id", r.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", r.ID))
		}
	}

	// Remove stale entries.
	for id := range known {
		if err := db.DeleteRecord(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}

	return nil
}

// RowFromRecord converts a domain record to its index row.
func RowFromRecord(r *models.Record) RecordRow {
	return RecordRow{
		ID:        r.ID,
		File:      r.File,
		Summary:   r.Summary,
		State:     string(r.State),
		Tags:      r.Tags,
		StartLine: r.Location.StartLine,
		EndLine:   r.Location.EndLine,
		UpdatedAt: r.UpdatedAt,
	}
}
