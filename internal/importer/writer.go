package importer

import (
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/mmcdole/vkaudio/internal/domain"
)

// Report counts what happened to each result of one import call
type Report struct {
	Imported   int
	Malformed  int // no URL
	Duplicates int // fingerprint already seen in this call
	Existing   int // URL already in the library
	Failed     int // create or commit error
}

// Total is the number of results the call looked at
func (r Report) Total() int {
	return r.Imported + r.Malformed + r.Duplicates + r.Existing + r.Failed
}

// LookupFunc reports whether a record with the URL already exists
type LookupFunc func(url string) (*domain.Record, bool, error)

// CreateFunc writes one result to the library
type CreateFunc func(result domain.RemoteResult) error

// ImportAll filters results in order and creates the survivors.
// Fingerprints are remembered only for the duration of this call; the
// lookup provides identity across calls. Errors are logged and counted,
// never returned.
func ImportAll(results []domain.RemoteResult, lookup LookupFunc, create CreateFunc, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}

	var report Report
	seen := make(map[domain.Fingerprint]struct{}, len(results))

	for _, result := range results {
		if result.URL == "" {
			report.Malformed++
			continue
		}

		fp := result.Fingerprint()
		if _, dup := seen[fp]; dup {
			report.Duplicates++
			continue
		}

		_, exists, err := lookup(result.URL)
		if err != nil {
			logger.Error("library lookup failed", "url", result.URL, "error", err)
			report.Failed++
			continue
		}
		if exists {
			report.Existing++
			continue
		}

		seen[fp] = struct{}{}

		if err := create(result); err != nil {
			if errors.Is(err, domain.ErrDuplicateRecord) {
				// Inserted by someone else since the lookup
				logger.Info("record appeared concurrently", "url", result.URL)
				report.Existing++
				continue
			}
			logger.Error("couldn't add record", "artist", result.Artist, "title", result.Title, "error", err)
			report.Failed++
			continue
		}

		report.Imported++
	}

	return report
}

// Writer imports results into a domain.Library
type Writer struct {
	lib    domain.Library
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a writer over lib
func NewWriter(lib domain.Library, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		lib:    lib,
		logger: logger,
		now:    time.Now,
	}
}

// ImportAll writes every new result and commits after each one
func (w *Writer) ImportAll(results []domain.RemoteResult) Report {
	report := ImportAll(results, w.lib.LookupByURL, w.create, w.logger)
	w.logger.Info("import finished",
		"imported", report.Imported,
		"duplicates", report.Duplicates,
		"existing", report.Existing,
		"malformed", report.Malformed,
		"failed", report.Failed,
	)
	return report
}

func (w *Writer) create(result domain.RemoteResult) error {
	if err := w.lib.Create(NewRecord(result, w.now())); err != nil {
		return err
	}
	return w.lib.Commit()
}

// NewRecord maps a result onto a library record, decoding HTML entities
// the catalog leaves in text fields
func NewRecord(result domain.RemoteResult, addedAt time.Time) *domain.Record {
	return &domain.Record{
		URL:       result.URL,
		Title:     html.UnescapeString(result.Title),
		Artist:    html.UnescapeString(result.Artist),
		Album:     domain.SourceAlbum,
		Duration:  result.Duration,
		EntryType: domain.EntryType,
		AddedAt:   addedAt,
	}
}
