package search

import (
	"log/slog"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/vkaudio/internal/domain"
)

// Result is a record that survived filtering. MatchedIndexes are byte
// offsets into Label.
type Result struct {
	Record         *domain.Record
	Label          string
	MatchedIndexes []int
	Score          int // higher is better
}

// Index implements sahilm/fuzzy.Source over library records. Labels are
// matched as-is; the matcher folds case itself, so offsets stay valid for
// the label shown to the user.
type Index struct {
	records []*domain.Record
	labels  []string
}

// NewIndex builds an index labelling each record "Artist - Title"
func NewIndex(records []*domain.Record) *Index {
	idx := &Index{
		records: records,
		labels:  make([]string, len(records)),
	}
	for i, r := range records {
		idx.labels[i] = Label(r)
	}
	return idx
}

func (idx *Index) String(i int) string { return idx.labels[i] }

func (idx *Index) Len() int { return len(idx.records) }

// Label is the display form of a record
func Label(r *domain.Record) string {
	return r.Artist + " - " + r.Title
}

// Service filters the local library
type Service struct {
	logger *slog.Logger
}

// NewService creates a new search service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Filter narrows records to those whose artist loosely contains artist
// (case and diacritics ignored) and ranks them against query. An empty query
// keeps library order; an empty artist keeps every artist.
func (s *Service) Filter(records []*domain.Record, query, artist string) []Result {
	if artist != "" {
		records = byArtist(records, artist)
	}

	idx := NewIndex(records)
	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]Result, idx.Len())
		for i := range results {
			results[i] = Result{Record: idx.records[i], Label: idx.labels[i]}
		}
		return results
	}

	matches := sfuzzy.FindFrom(query, idx)
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Record:         idx.records[m.Index],
			Label:          idx.labels[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	s.logger.Debug("filtered library", "query", query, "artist", artist, "candidates", idx.Len(), "matches", len(results))
	return results
}

// Best returns the top match for query, if any
func (s *Service) Best(records []*domain.Record, query, artist string) (*domain.Record, bool) {
	results := s.Filter(records, query, artist)
	if len(results) == 0 {
		return nil, false
	}
	return results[0].Record, true
}

func byArtist(records []*domain.Record, artist string) []*domain.Record {
	var out []*domain.Record
	for _, r := range records {
		if fuzzy.MatchNormalizedFold(artist, r.Artist) {
			out = append(out, r)
		}
	}
	return out
}
