package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RecordRow represents a row in the records table.
type RecordRow struct {
	ID        string
	File      string
	Summary   string
	State     string
	Tags      []string
	StartLine int
	EndLine   int
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	File    string
	Summary string
	Snippet string
}

// UpsertRecord inserts or replaces a record row and its FTS entry within a
// transaction.
func (db *DB) UpsertRecord(r RecordRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(r.Tags)

	_, err = tx.Exec(`
		INSERT INTO records (id, file, summary, state, tags, body, start_line, end_line, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file       = excluded.file,
			summary    = excluded.summary,
			state      = excluded.state,
			tags       = excluded.tags,
			body       = excluded.body,
			start_line = excluded.start_line,
			end_line   = excluded.end_line,
			updated_at = excluded.updated_at
	`, r.ID, r.File, r.Summary, r.State, string(tagsJSON), body, r.StartLine, r.EndLine, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert record: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Summary, body, r.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteRecord removes a record row and its FTS entry. Only the resync
// path uses this, when a rewritten lore file no longer carries an id.
func (db *DB) DeleteRecord(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM records WHERE id = ?`, id)

	return tx.Commit()
}

// GetRecord returns the indexed row for id, or nil when absent.
func (db *DB) GetRecord(id string) (*RecordRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, file, summary, state, tags, start_line, end_line, updated_at
		FROM records WHERE id = ?
	`, id)
	r, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get record: %w", err)
	}
	return r, nil
}

// ListRecords returns paginated rows with optional tag and state filters,
// ordered by most recently updated.
func (db *DB) ListRecords(limit, offset int, tag, state string) ([]RecordRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	args := []any{}
	if state != "" {
		where += " AND state = ?"
		args = append(args, state)
	}
	if tag != "" {
		// tags is a JSON array of strings; match the quoted element.
		where += ` AND tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count records: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, file, summary, state, tags, start_line, end_line, updated_at
		FROM records WHERE `+where+`
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// AllIDs returns every indexed record id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM records`)
	if err != nil {
		return nil, fmt.Errorf("index: all ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func scanRecord(scan func(...any) error) (*RecordRow, error) {
	var r RecordRow
	var tagsJSON string
	if err := scan(&r.ID, &r.File, &r.Summary, &r.State, &tagsJSON, &r.StartLine, &r.EndLine, &r.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
	return &r, nil
}
