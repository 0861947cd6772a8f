package index

import "github.com/starford/cmsloader/internal/models"

// RecordIndex defines the indexing operations used by the service layer.
// Consumers depend on this interface rather than the concrete *DB type.
type RecordIndex interface {
	ReplaceCollection(name string, records models.Collection) error
	Search(query string, limit int) ([]SearchResult, error)
	Counts() (map[string]int, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)
