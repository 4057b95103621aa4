package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations
var (
	// ErrRemoteUnavailable indicates the catalog API could not be reached
	ErrRemoteUnavailable = errors.New("audio catalog is unreachable")

	// ErrAuthFailed indicates the access token was rejected
	ErrAuthFailed = errors.New("access token is invalid")

	// ErrNoToken indicates no access token is configured
	ErrNoToken = errors.New("access token is not configured")

	// ErrChallengeRequired indicates the API demands a captcha before answering
	ErrChallengeRequired = errors.New("captcha required")

	// ErrChallengeLimit indicates the configured number of captcha attempts ran out
	ErrChallengeLimit = errors.New("too many captcha attempts")

	// ErrMalformedResponse indicates the response body was not parseable XML
	ErrMalformedResponse = errors.New("malformed catalog response")

	// ErrDuplicateRecord indicates a record with the same URL already exists
	ErrDuplicateRecord = errors.New("record already exists")

	// ErrEmptyQuery indicates a search was requested without text
	ErrEmptyQuery = errors.New("search query is empty")
)

// API error codes with special handling
const (
	ErrorCodeAuthFailed      = 5
	ErrorCodeCaptchaRequired = 14
)

// RemoteError is an error payload returned by the catalog API.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("catalog API error %d: %s", e.Code, e.Message)
}

// Is maps well-known API codes onto the package sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Code == ErrorCodeAuthFailed
	case ErrChallengeRequired:
		return e.Code == ErrorCodeCaptchaRequired
	}
	return false
}

// AsRemoteError extracts a *RemoteError from err, if any.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
