package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultCount is used when a request asks for zero or fewer results
const DefaultCount = 100

// Album and entry type stamped on every imported record
const (
	SourceAlbum = "vk.com"
	EntryType   = "vk-entry"
)

// SearchRequest is the immutable set of parameters for one catalog operation.
// A new value is built for every user action; it is never shared between operations.
type SearchRequest struct {
	Query string // Search text (ignored by the user-audio listing)
	Fuzzy bool   // Ask the API to autocomplete the query
	Count int    // Maximum number of results
	Token string // Opaque access token

	// Challenge carries a solved captcha for exactly one send.
	Challenge *ChallengeAnswer
}

// Normalize returns a copy with Count defaulted.
func (r SearchRequest) Normalize() SearchRequest {
	if r.Count <= 0 {
		r.Count = DefaultCount
	}
	return r
}

// WithChallenge returns a copy carrying the given captcha answer.
func (r SearchRequest) WithChallenge(answer *ChallengeAnswer) SearchRequest {
	r.Challenge = answer
	return r
}

// ChallengeContext describes a captcha demanded by the API
type ChallengeContext struct {
	ID       string // captcha_sid
	ImageURL string // captcha_img
}

// ChallengeAnswer is a human-supplied solution for a ChallengeContext
type ChallengeAnswer struct {
	ID  string
	Key string
}

// Apply adds the captcha parameters to a query.
func (a *ChallengeAnswer) Apply(q url.Values) {
	if a == nil {
		return
	}
	q.Set("captcha_sid", a.ID)
	q.Set("captcha_key", a.Key)
}

// RemoteResult is one audio entry returned by the catalog
type RemoteResult struct {
	Title    string
	Artist   string
	Duration int // seconds
	URL      string
}

// Valid reports whether every required field is present.
func (r RemoteResult) Valid() bool {
	return r.Title != "" && r.Artist != "" && r.URL != ""
}

// Fingerprint identifies a logical song within one import call.
type Fingerprint string

// Fingerprint derives the case-insensitive title+artist+duration key.
func (r RemoteResult) Fingerprint() Fingerprint {
	return Fingerprint(strings.ToLower(fmt.Sprintf("%s%s%d", r.Title, r.Artist, r.Duration)))
}

// Record is a playable library entry, identified by URL
type Record struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Duration  int       `json:"duration"`
	EntryType string    `json:"entry_type"`
	AddedAt   time.Time `json:"added_at"`
}

// FormattedDuration renders the duration as m:ss
func (r Record) FormattedDuration() string {
	return fmt.Sprintf("%d:%02d", r.Duration/60, r.Duration%60)
}
