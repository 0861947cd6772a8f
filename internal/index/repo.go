package index

import (
	"encoding/json"
	"fmt"

	"github.com/starford/cmsloader/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Collection string `json:"collection"`
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
}

// ReplaceCollection swaps every indexed row of a collection for records in a
// single transaction.
func (db *DB) ReplaceCollection(name string, records models.Collection) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := ftsDeleteCollection(tx, name); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM records WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("index: clear %s: %w", name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (collection, filename, position, title, checksum, fields, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		fields, err := json.Marshal(r.Header())
		if err != nil {
			return fmt.Errorf("index: encode %s/%s: %w", name, r.Filename(), err)
		}
		if _, err := stmt.Exec(name, r.Filename(), i, r.Title(), r.Checksum(), string(fields), r.Body()); err != nil {
			return fmt.Errorf("index: insert %s/%s: %w", name, r.Filename(), err)
		}
		if err := ftsInsert(tx, name, r.Filename(), r.Title(), r.Body(), string(fields)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Counts returns the number of indexed records per collection.
func (db *DB) Counts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT collection, count(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("index: counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}
