package vk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/mmcdole/vkaudio/internal/domain"
)

const (
	DefaultBaseURL = "https://api.vk.com/method"
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the per-token request rate the API tolerates
	DefaultRateLimit = 3.0

	userAgent = "vkaudio/1.0"
)

// API methods used by the client
const (
	methodIsAppUser   = "users.isAppUser"
	methodAudioSearch = "audio.search"
	methodAudioGet    = "audio.get"
)

// Client issues catalog API requests and returns raw XML bodies.
// It never retries; captcha handling lives in the challenge package.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // nil = unlimited
	logger     *slog.Logger
}

// NewClient creates a new catalog API client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newLimiter(DefaultRateLimit),
		logger:  logger,
	}
}

// SetRateLimit caps requests per second; zero or less disables the cap
func (c *Client) SetRateLimit(perSecond float64) {
	c.limiter = newLimiter(perSecond)
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Search runs audio.search for the request's query
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]byte, error) {
	req = req.Normalize()

	query := url.Values{}
	query.Set("auto_complete", boolParam(req.Fuzzy))
	query.Set("count", strconv.Itoa(req.Count))
	query.Set("q", req.Query)

	return c.call(ctx, methodAudioSearch, req, query)
}

// ListUserAudios runs audio.get for the token owner
func (c *Client) ListUserAudios(ctx context.Context, req domain.SearchRequest) ([]byte, error) {
	req = req.Normalize()

	query := url.Values{}
	query.Set("count", strconv.Itoa(req.Count))

	return c.call(ctx, methodAudioGet, req, query)
}

// CheckToken runs users.isAppUser, which answers 1 for a usable token
func (c *Client) CheckToken(ctx context.Context, req domain.SearchRequest) ([]byte, error) {
	return c.call(ctx, methodIsAppUser, req, url.Values{})
}

// FetchChallengeImage downloads a captcha image
func (c *Client) FetchChallengeImage(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("captcha image URL is empty")
	}
	return c.get(ctx, imageURL)
}

func (c *Client) call(ctx context.Context, method string, req domain.SearchRequest, query url.Values) ([]byte, error) {
	if req.Token == "" {
		return nil, domain.ErrNoToken
	}

	query.Set("access_token", req.Token)
	req.Challenge.Apply(query)

	// encode spaces as %20 rather than +
	reqURL := fmt.Sprintf("%s/%s.xml?%s", c.baseURL, method, strings.ReplaceAll(query.Encode(), "+", "%20"))

	c.logger.Debug("catalog request", "method", method, "captcha", req.Challenge != nil)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	// The API sometimes prefixes the XML prologue with blank lines
	return bytes.TrimLeftFunc(body, unicode.IsSpace), nil
}

// get performs a GET and returns the body of a 200 response
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("catalog request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrRemoteUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("catalog request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}

	return body, nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
