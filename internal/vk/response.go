package vk

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/antchfx/xmlquery"
	"github.com/mmcdole/vkaudio/internal/domain"
)

// NoResultsNotice is shown when the catalog reports zero matches
const NoResultsNotice = "No results found"

// Kind classifies a parsed response
type Kind int

const (
	KindResults Kind = iota // zero or more audio entries
	KindEmpty               // the API reported a count of zero
	KindError               // an <error> payload
	KindAck                 // a scalar <response>, e.g. users.isAppUser
)

func (k Kind) String() string {
	switch k {
	case KindResults:
		return "results"
	case KindEmpty:
		return "empty"
	case KindError:
		return "error"
	case KindAck:
		return "ack"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Response is the classified form of a catalog reply
type Response struct {
	Kind Kind

	// KindResults
	Results   []domain.RemoteResult
	Malformed int // audio entries dropped for missing fields

	// KindEmpty
	Notice string

	// KindError
	Err       *domain.RemoteError
	Challenge *domain.ChallengeContext // set only for the captcha error code

	// KindAck
	Ack bool
}

// Parse classifies a raw XML body.
// Element lookup is by name at any depth, so wrapper changes in the
// payload do not break extraction.
func Parse(body []byte) (Response, error) {
	body = bytes.TrimLeftFunc(body, unicode.IsSpace)
	if len(body) == 0 {
		return Response{}, fmt.Errorf("%w: empty body", domain.ErrMalformedResponse)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	root := xmlquery.FindOne(doc, "/*")
	if root == nil {
		return Response{}, fmt.Errorf("%w: no root element", domain.ErrMalformedResponse)
	}

	if errNode := xmlquery.FindOne(doc, "//error"); errNode != nil {
		return parseError(errNode), nil
	}

	if text := strings.TrimSpace(root.InnerText()); root.Data == "response" && text != "" && !hasChildElements(root) {
		return Response{Kind: KindAck, Ack: text == "1"}, nil
	}

	resp := Response{Kind: KindResults, Results: []domain.RemoteResult{}}
	for _, node := range xmlquery.Find(doc, "//audio") {
		result, ok := parseAudio(node)
		if !ok {
			resp.Malformed++
			continue
		}
		resp.Results = append(resp.Results, result)
	}

	if len(resp.Results) == 0 {
		if count := xmlquery.FindOne(doc, "//count"); count != nil && strings.TrimSpace(count.InnerText()) == "0" {
			return Response{Kind: KindEmpty, Notice: NoResultsNotice}, nil
		}
	}

	return resp, nil
}

func parseError(node *xmlquery.Node) Response {
	code, _ := strconv.Atoi(childText(node, "error_code"))
	resp := Response{
		Kind: KindError,
		Err: &domain.RemoteError{
			Code:    code,
			Message: childText(node, "error_msg"),
		},
	}

	if code == domain.ErrorCodeCaptchaRequired {
		sid := childText(node, "captcha_sid")
		img := childText(node, "captcha_img")
		if sid != "" && img != "" {
			resp.Challenge = &domain.ChallengeContext{ID: sid, ImageURL: img}
		}
	}

	return resp
}

// parseAudio maps one <audio> element; ok is false when a field is missing
func parseAudio(node *xmlquery.Node) (domain.RemoteResult, bool) {
	title, okTitle := lookupText(node, "title")
	artist, okArtist := lookupText(node, "artist")
	durationText, okDuration := lookupText(node, "duration")
	url, okURL := lookupText(node, "url")
	if !okTitle || !okArtist || !okDuration || !okURL {
		return domain.RemoteResult{}, false
	}

	duration, err := strconv.Atoi(durationText)
	if err != nil {
		return domain.RemoteResult{}, false
	}

	result := domain.RemoteResult{
		Title:    title,
		Artist:   artist,
		Duration: duration,
		URL:      url,
	}
	return result, result.Valid()
}

// lookupText returns the trimmed text of the first descendant element
// called name
func lookupText(node *xmlquery.Node, name string) (string, bool) {
	child := xmlquery.FindOne(node, ".//"+name)
	if child == nil {
		return "", false
	}
	text := strings.TrimSpace(child.InnerText())
	return text, text != ""
}

func childText(node *xmlquery.Node, name string) string {
	text, _ := lookupText(node, name)
	return text
}

func hasChildElements(node *xmlquery.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}
