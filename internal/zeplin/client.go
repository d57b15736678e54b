package zeplin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	// Register decoders for the reference image formats Zeplin serves.
	_ "image/jpeg"
	_ "image/png"

	"github.com/jordan/design-validator/internal/types"
)

// DefaultBaseURL is the Zeplin public API root.
const DefaultBaseURL = "https://api.zeplin.dev/v1"

// DefaultTimeout is the per-request HTTP timeout.
const DefaultTimeout = 30 * time.Second

// ScreenCache caches fetched screen metadata between runs. Implemented
// by internal/cache; a nil cache disables caching.
type ScreenCache interface {
	Get(ctx context.Context, projectID, screenID string) (*types.DesignScreen, bool)
	Set(ctx context.Context, projectID, screenID string, screen *types.DesignScreen)
}

// Client talks to the Zeplin API. The access token is explicit per
// client; there is no process-wide default token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      ScreenCache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithCache attaches a screen metadata cache.
func WithCache(cache ScreenCache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a Zeplin API client for the given access token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchScreen retrieves the screen metadata and its latest-version
// layers. The reference raster is not downloaded here; see
// FetchReferenceImage.
func (c *Client) FetchScreen(ctx context.Context, projectID, screenID string) (*types.DesignScreen, error) {
	if c.cache != nil {
		if screen, ok := c.cache.Get(ctx, projectID, screenID); ok {
			return screen, nil
		}
	}

	screenURL := fmt.Sprintf("%s/projects/%s/screens/%s", c.baseURL, projectID, screenID)
	payload, err := c.get(ctx, screenURL, projectID, screenID)
	if err != nil {
		return nil, err
	}

	screen, err := parseScreen(projectID, screenID, payload)
	if err != nil {
		return nil, err
	}

	var raw rawScreen
	_ = json.Unmarshal(payload, &raw)
	if versionID := raw.LatestVersion.ID; versionID != "" {
		layersURL := fmt.Sprintf("%s/projects/%s/screens/%s/versions/%s/layers", c.baseURL, projectID, screenID, versionID)
		layersPayload, err := c.get(ctx, layersURL, projectID, screenID)
		if err != nil {
			// Layer detail requires elevated API scopes on some plans.
			// The pixel diff still works without layers, so this is
			// not fatal for the fetch.
			log.Printf("[zeplin] layer fetch failed for screen %s: %v", screenID, err)
		} else {
			layers, err := parseLayers(layersPayload)
			if err != nil {
				return nil, err
			}
			screen.Layers = layers
		}
	}

	if c.cache != nil {
		c.cache.Set(ctx, projectID, screenID, screen)
	}
	return screen, nil
}

// FetchReferenceImage downloads and decodes the screen's reference
// raster. The raw bytes are returned alongside the decoded image so the
// caller can persist the original artifact without re-encoding.
func (c *Client) FetchReferenceImage(ctx context.Context, screen *types.DesignScreen) (image.Image, []byte, error) {
	if screen.Image.URL == "" {
		return nil, nil, &NotFoundError{ProjectID: screen.ProjectID, ScreenID: screen.ScreenID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, screen.Image.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &APIError{Message: "reference image download failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Message: "reference image download failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &APIError{Message: "failed to read reference image", Cause: err}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &APIError{Message: "failed to decode reference image", Cause: err}
	}
	return img, data, nil
}

// get performs an authenticated GET with a single retry on transient
// failures (5xx and network errors). 4xx responses are never retried.
func (c *Client) get(ctx context.Context, url, projectID, screenID string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		payload, retryable, err := c.getOnce(ctx, url, projectID, screenID)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url, projectID, screenID string) (payload []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, false, err
		}
		return nil, true, &APIError{Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, &APIError{Message: "failed to read response body", Cause: err}
		}
		return body, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, &AuthError{StatusCode: resp.StatusCode, Message: "invalid or expired access token"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, &NotFoundError{ProjectID: projectID, ScreenID: screenID}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, true, &APIError{StatusCode: resp.StatusCode, Message: "server error"}
	default:
		return nil, false, &APIError{StatusCode: resp.StatusCode, Message: "unexpected response"}
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
