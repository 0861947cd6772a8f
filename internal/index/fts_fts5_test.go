//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records_fts`).Scan(&count); err != nil {
		t.Fatalf("records_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	docs := map[string]string{"fts.md": "---\ntitle: FTS Record\n---\nChiang Mai offers powerful rental yields."}
	if err := db.ReplaceCollection("articles", records(docs, "fts.md")); err != nil {
		t.Fatalf("ReplaceCollection: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Filename != "fts.md" || results[0].Collection != "articles" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_ReplaceDropsOldContent(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceCollection("articles", records(map[string]string{"evo.md": "---\ntitle: Old\n---\noriginal text"}, "evo.md"))
	_ = db.ReplaceCollection("articles", records(map[string]string{"evo.md": "---\ntitle: New\n---\nreplacement text"}, "evo.md"))

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
