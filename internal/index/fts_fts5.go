//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS lore_fts USING fts5(
			id UNINDEXED,
			summary,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, summary, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM lore_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO lore_fts (id, summary, body, tags) VALUES (?, ?, ?, ?)`,
		id, summary, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM lore_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search and returns matching records
// with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT r.id,
		       r.file,
		       r.summary,
		       snippet(lore_fts, 2, '<b>', '</b>', '...', 64)
		FROM lore_fts
		JOIN records r ON r.id = lore_fts.id
		WHERE lore_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.File, &r.Summary, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
