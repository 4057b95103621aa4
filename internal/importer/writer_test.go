package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLibrary is an in-memory domain.Library
type fakeLibrary struct {
	records   map[string]*domain.Record
	order     []string
	createErr map[string]error
	commits   int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		records:   make(map[string]*domain.Record),
		createErr: make(map[string]error),
	}
}

func (l *fakeLibrary) LookupByURL(url string) (*domain.Record, bool, error) {
	rec, ok := l.records[url]
	return rec, ok, nil
}

func (l *fakeLibrary) Create(rec *domain.Record) error {
	if err := l.createErr[rec.URL]; err != nil {
		return err
	}
	if _, ok := l.records[rec.URL]; ok {
		return domain.ErrDuplicateRecord
	}
	l.records[rec.URL] = rec
	l.order = append(l.order, rec.URL)
	return nil
}

func (l *fakeLibrary) Commit() error {
	l.commits++
	return nil
}

func song(title, artist string, duration int, url string) domain.RemoteResult {
	return domain.RemoteResult{Title: title, Artist: artist, Duration: duration, URL: url}
}

func TestImportAll_CaseInsensitiveFingerprint(t *testing.T) {
	lib := newFakeLibrary()
	w := NewWriter(lib, nil)

	report := w.ImportAll([]domain.RemoteResult{
		song("Song", "Band", 180, "http://a/1"),
		song("SONG", "BAND", 180, "http://a/2"),
	})

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, []string{"http://a/1"}, lib.order)
}

func TestImportAll_SameSongDifferentURLsKeepsFirst(t *testing.T) {
	lib := newFakeLibrary()
	w := NewWriter(lib, nil)

	report := w.ImportAll([]domain.RemoteResult{
		song("Creep", "Radiohead", 238, "http://a/1"),
		song("Creep", "Radiohead", 238, "http://a/2"),
	})

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
	assert.Contains(t, lib.records, "http://a/1")
	assert.NotContains(t, lib.records, "http://a/2")
}

func TestImportAll_DifferentDurationIsDistinct(t *testing.T) {
	lib := newFakeLibrary()
	report := NewWriter(lib, nil).ImportAll([]domain.RemoteResult{
		song("Creep", "Radiohead", 238, "http://a/1"),
		song("Creep", "Radiohead", 239, "http://a/2"),
	})
	assert.Equal(t, 2, report.Imported)
}

func TestImportAll_SkipsEmptyURL(t *testing.T) {
	lib := newFakeLibrary()
	report := NewWriter(lib, nil).ImportAll([]domain.RemoteResult{
		song("Song", "Band", 180, ""),
	})

	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Malformed)
	assert.Empty(t, lib.records)
}

func TestImportAll_ExistingRecordSkipsCreate(t *testing.T) {
	created := 0
	lookup := func(url string) (*domain.Record, bool, error) {
		return &domain.Record{URL: url}, true, nil
	}
	create := func(domain.RemoteResult) error {
		created++
		return nil
	}

	report := ImportAll([]domain.RemoteResult{song("Song", "Band", 180, "http://a/1")}, lookup, create, nil)

	assert.Equal(t, 0, created)
	assert.Equal(t, 1, report.Existing)
}

func TestImportAll_ExistingDoesNotConsumeFingerprint(t *testing.T) {
	lib := newFakeLibrary()
	lib.records["http://a/1"] = &domain.Record{URL: "http://a/1"}

	report := NewWriter(lib, nil).ImportAll([]domain.RemoteResult{
		song("Song", "Band", 180, "http://a/1"),
		song("Song", "Band", 180, "http://a/2"),
	})

	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 1, report.Imported)
	assert.Contains(t, lib.records, "http://a/2")
}

func TestImportAll_CreateFailureContinues(t *testing.T) {
	lib := newFakeLibrary()
	lib.createErr["http://a/1"] = errors.New("disk full")

	report := NewWriter(lib, nil).ImportAll([]domain.RemoteResult{
		song("One", "Band", 1, "http://a/1"),
		song("Two", "Band", 2, "http://a/2"),
	})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, []string{"http://a/2"}, lib.order)
	assert.Equal(t, 2, report.Total())
}

func TestImportAll_ConcurrentInsertIsNotFatal(t *testing.T) {
	lib := newFakeLibrary()
	lib.createErr["http://a/1"] = domain.ErrDuplicateRecord

	report := NewWriter(lib, nil).ImportAll([]domain.RemoteResult{
		song("One", "Band", 1, "http://a/1"),
		song("Two", "Band", 2, "http://a/2"),
	})

	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Imported)
}

func TestImportAll_LookupErrorContinues(t *testing.T) {
	calls := 0
	lookup := func(url string) (*domain.Record, bool, error) {
		calls++
		if url == "http://a/1" {
			return nil, false, errors.New("db closed")
		}
		return nil, false, nil
	}
	var created []string
	create := func(r domain.RemoteResult) error {
		created = append(created, r.URL)
		return nil
	}

	report := ImportAll([]domain.RemoteResult{
		song("One", "Band", 1, "http://a/1"),
		song("Two", "Band", 2, "http://a/2"),
	}, lookup, create, nil)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"http://a/2"}, created)
}

func TestImportAll_FingerprintIsPerCall(t *testing.T) {
	lib := newFakeLibrary()
	w := NewWriter(lib, nil)

	w.ImportAll([]domain.RemoteResult{song("Song", "Band", 180, "http://a/1")})
	report := w.ImportAll([]domain.RemoteResult{song("Song", "Band", 180, "http://a/2")})

	assert.Equal(t, 1, report.Imported, "second call starts with an empty fingerprint set")
	assert.Len(t, lib.records, 2)
}

func TestWriter_UnescapesAndStampsRecord(t *testing.T) {
	lib := newFakeLibrary()
	w := NewWriter(lib, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.ImportAll([]domain.RemoteResult{song("Rock &amp; Roll", "Guns N&#39; Roses", 200, "http://a/1")})

	rec := lib.records["http://a/1"]
	require.NotNil(t, rec)
	assert.Equal(t, "Rock & Roll", rec.Title)
	assert.Equal(t, "Guns N' Roses", rec.Artist)
	assert.Equal(t, domain.SourceAlbum, rec.Album)
	assert.Equal(t, domain.EntryType, rec.EntryType)
	assert.Equal(t, 200, rec.Duration)
	assert.Equal(t, fixed, rec.AddedAt)
	assert.Equal(t, 1, lib.commits)
}
