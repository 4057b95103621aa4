package vk

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeURL(t *testing.T) {
	u, err := url.Parse(AuthorizeURL("12345"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "oauth.vk.com", u.Host)
	assert.Equal(t, "12345", q.Get("client_id"))
	assert.Equal(t, "audio,offline", q.Get("scope"))
	assert.Equal(t, "token", q.Get("response_type"))
	assert.Equal(t, redirectURL, q.Get("redirect_uri"))
}

func TestTokenFromRedirect(t *testing.T) {
	token, err := TokenFromRedirect("https://oauth.vk.com/blank.html#access_token=abc123&expires_in=0&user_id=42")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestTokenFromRedirect_Denied(t *testing.T) {
	_, err := TokenFromRedirect("https://oauth.vk.com/blank.html#error=access_denied&error_description=User+denied")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")

	_, err = TokenFromRedirect("https://oauth.vk.com/blank.html")
	assert.Error(t, err)
}
