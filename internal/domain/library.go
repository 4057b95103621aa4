package domain

// Library is the entry-creation capability imports write through.
// Records are keyed by URL; Create must fail with ErrDuplicateRecord when
// the URL is already present, even if LookupByURL missed it a moment ago.
type Library interface {
	LookupByURL(url string) (*Record, bool, error)
	Create(rec *Record) error
	Commit() error
}

// LibraryStore is the full record store used by the CLI.
type LibraryStore interface {
	Library

	// All returns every record, oldest first
	All() ([]*Record, error)

	// DeleteByType removes all records of an entry type and returns how many were removed
	DeleteByType(entryType string) (int, error)

	Close() error
}
