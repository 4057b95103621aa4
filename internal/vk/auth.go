package vk

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	authorizeURL = "https://oauth.vk.com/authorize"
	redirectURL  = "https://oauth.vk.com/blank.html"
	authScope    = "audio,offline"
)

// AuthorizeURL returns the browser URL that grants an access token for appID.
// After consent the browser lands on the blank redirect page with the token
// in the URL fragment.
func AuthorizeURL(appID string) string {
	params := url.Values{}
	params.Set("client_id", appID)
	params.Set("scope", authScope)
	params.Set("redirect_uri", redirectURL)
	params.Set("display", "page")
	params.Set("response_type", "token")
	return authorizeURL + "?" + params.Encode()
}

// TokenFromRedirect extracts access_token from the redirect URL fragment
func TokenFromRedirect(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect fragment: %w", err)
	}

	if token := params.Get("access_token"); token != "" {
		return token, nil
	}

	// Denied requests carry the error in the query or the fragment
	for _, p := range []url.Values{params, u.Query()} {
		if e := p.Get("error"); e != "" {
			return "", fmt.Errorf("authorization failed: %s: %s", e, p.Get("error_description"))
		}
	}

	return "", fmt.Errorf("no access_token in redirect URL")
}
