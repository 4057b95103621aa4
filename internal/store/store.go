package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/vkaudio/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// LibraryStore implements domain.LibraryStore using BoltDB.
// Records are keyed by URL.
type LibraryStore struct {
	db *bolt.DB

	// Memory-only mode when db is nil
	mu      sync.RWMutex
	records map[string][]byte
}

// NewLibraryStore opens the store at path; an empty path keeps records in memory only
func NewLibraryStore(path string) (*LibraryStore, error) {
	if path == "" {
		return &LibraryStore{records: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LibraryStore{db: db}, nil
}

func (s *LibraryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LookupByURL returns the record stored under url
func (s *LibraryStore) LookupByURL(url string) (*domain.Record, bool, error) {
	data, err := s.get(url)
	if err != nil || data == nil {
		return nil, false, err
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode record %s: %w", url, err)
	}
	return &rec, true, nil
}

// Create inserts rec, failing with domain.ErrDuplicateRecord if its URL is taken.
// The existence check and the write happen in one transaction.
func (s *LibraryStore) Create(rec *domain.Record) error {
	if rec == nil || rec.URL == "" {
		return fmt.Errorf("record has no URL")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte(rec.URL)

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.records[rec.URL]; ok {
			return domain.ErrDuplicateRecord
		}
		s.records[rec.URL] = data
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b.Get(key) != nil {
			return domain.ErrDuplicateRecord
		}
		return b.Put(key, data)
	})
}

// Commit flushes written records to disk.
// Each Create is already its own transaction; this forces the fsync.
func (s *LibraryStore) Commit() error {
	if s.db == nil {
		return nil
	}
	return s.db.Sync()
}

// All returns every record ordered by the time it was added
func (s *LibraryStore) All() ([]*domain.Record, error) {
	var raw [][]byte

	if s.db == nil {
		s.mu.RLock()
		for _, data := range s.records {
			raw = append(raw, data)
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketRecords).ForEach(func(_, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw = append(raw, data)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	records := make([]*domain.Record, 0, len(raw))
	for _, data := range raw {
		var rec domain.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].URL < records[j].URL
		}
		return records[i].AddedAt.Before(records[j].AddedAt)
	})
	return records, nil
}

// DeleteByType removes all records of entryType
func (s *LibraryStore) DeleteByType(entryType string) (int, error) {
	matches := func(data []byte) bool {
		var rec domain.Record
		return json.Unmarshal(data, &rec) == nil && rec.EntryType == entryType
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		removed := 0
		for url, data := range s.records {
			if matches(data) {
				delete(s.records, url)
				removed++
			}
		}
		return removed, nil
	}

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		// Collect first: deleting under a live cursor skips entries
		var keys [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if matches(v) {
				keys = append(keys, append([]byte(nil), k...))
			}
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *LibraryStore) get(url string) ([]byte, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.records[url], nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketRecords).Get([]byte(url)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}
