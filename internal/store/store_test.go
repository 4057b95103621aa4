package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(url, title string, added time.Time) *domain.Record {
	return &domain.Record{
		URL:       url,
		Title:     title,
		Artist:    "Band",
		Album:     domain.SourceAlbum,
		Duration:  180,
		EntryType: domain.EntryType,
		AddedAt:   added,
	}
}

// stores runs fn against a disk-backed and a memory-only store
func stores(t *testing.T, fn func(t *testing.T, s *LibraryStore)) {
	t.Run("bolt", func(t *testing.T) {
		s, err := NewLibraryStore(filepath.Join(t.TempDir(), "lib", "library.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
	t.Run("memory", func(t *testing.T) {
		s, err := NewLibraryStore("")
		require.NoError(t, err)
		fn(t, s)
	})
}

func TestCreateAndLookup(t *testing.T) {
	stores(t, func(t *testing.T, s *LibraryStore) {
		_, ok, err := s.LookupByURL("http://a/1")
		require.NoError(t, err)
		assert.False(t, ok)

		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, s.Create(record("http://a/1", "One", now)))
		require.NoError(t, s.Commit())

		rec, ok, err := s.LookupByURL("http://a/1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "One", rec.Title)
		assert.True(t, now.Equal(rec.AddedAt))
	})
}

func TestCreate_DuplicateURL(t *testing.T) {
	stores(t, func(t *testing.T, s *LibraryStore) {
		require.NoError(t, s.Create(record("http://a/1", "One", time.Now())))
		err := s.Create(record("http://a/1", "Other", time.Now()))
		assert.ErrorIs(t, err, domain.ErrDuplicateRecord)

		rec, _, _ := s.LookupByURL("http://a/1")
		assert.Equal(t, "One", rec.Title)
	})
}

func TestCreate_RequiresURL(t *testing.T) {
	stores(t, func(t *testing.T, s *LibraryStore) {
		assert.Error(t, s.Create(&domain.Record{Title: "x"}))
		assert.Error(t, s.Create(nil))
	})
}

func TestAll_OrderedByAddedAt(t *testing.T) {
	stores(t, func(t *testing.T, s *LibraryStore) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.Create(record("http://a/z", "Third", base.Add(2*time.Minute))))
		require.NoError(t, s.Create(record("http://a/y", "First", base)))
		require.NoError(t, s.Create(record("http://a/x", "Second", base.Add(time.Minute))))

		all, err := s.All()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "First", all[0].Title)
		assert.Equal(t, "Second", all[1].Title)
		assert.Equal(t, "Third", all[2].Title)
	})
}

func TestDeleteByType(t *testing.T) {
	stores(t, func(t *testing.T, s *LibraryStore) {
		for i, url := range []string{"http://a/1", "http://a/2", "http://a/3", "http://a/4"} {
			require.NoError(t, s.Create(record(url, "t", time.Unix(int64(i), 0))))
		}
		other := record("http://b/1", "keep", time.Unix(10, 0))
		other.EntryType = "local"
		require.NoError(t, s.Create(other))

		removed, err := s.DeleteByType(domain.EntryType)
		require.NoError(t, err)
		assert.Equal(t, 4, removed)

		all, err := s.All()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "keep", all[0].Title)
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	s, err := NewLibraryStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(record("http://a/1", "One", time.Now())))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())

	s, err = NewLibraryStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.LookupByURL("http://a/1")
	require.NoError(t, err)
	assert.True(t, ok)
}
