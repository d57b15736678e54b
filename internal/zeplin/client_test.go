package zeplin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/types"
)

const screenPayload = `{
  "id": "scr1",
  "name": "Login",
  "image": {"original_url": "%s/image.png", "width": 1440, "height": 900},
  "latest_version": {"id": "v1"}
}`

const layersPayload = `[
  {
    "type": "text",
    "name": "Heading",
    "content": "Welcome back",
    "rect": {"x": 100, "y": 50, "width": 300, "height": 40},
    "texts": [{"style": {"font_family": "Roboto", "font_size": 24, "font_weight": 700, "color": {"r": 33, "g": 33, "b": 33, "a": 1}}}]
  },
  {
    "type": "shape",
    "name": "Background",
    "rect": {"x": 0, "y": 0, "width": 1440, "height": 900}
  }
]`

func newZeplinServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("GET /projects/p1/screens/s1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprintf(w, screenPayload, srv.URL)
	})
	mux.HandleFunc("GET /projects/p1/screens/s1/versions/v1/layers", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, layersPayload)
	})
	mux.HandleFunc("GET /image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		require.NoError(t, png.Encode(w, img))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchScreen(t *testing.T) {
	srv := newZeplinServer(t)
	client := NewClient("tok", WithBaseURL(srv.URL))

	screen, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.NoError(t, err)

	assert.Equal(t, "p1", screen.ProjectID)
	assert.Equal(t, "s1", screen.ScreenID)
	assert.Equal(t, "Login", screen.Name)
	assert.Equal(t, 1440, screen.Image.Width)
	assert.Equal(t, 900, screen.Image.Height)

	require.Len(t, screen.Layers, 2)
	heading := screen.Layers[0]
	assert.Equal(t, "Heading", heading.Name)
	assert.Equal(t, "Welcome back", heading.TextContent)
	assert.Equal(t, "Roboto", heading.Style["font-family"])
	assert.Equal(t, "24px", heading.Style["font-size"])
	assert.Equal(t, "700", heading.Style["font-weight"])
	assert.Equal(t, "rgb(33, 33, 33)", heading.Style["color"])

	background := screen.Layers[1]
	assert.False(t, background.HasText())
	assert.Nil(t, background.Style)
}

func TestFetchScreen_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))
	_, err := client.FetchScreen(context.Background(), "p1", "s1")

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestFetchScreen_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	_, err := client.FetchScreen(context.Background(), "p1", "missing")

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.ScreenID)
}

func TestFetchScreen_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	_, err := client.FetchScreen(context.Background(), "p1", "s1")

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
}

func TestFetchScreen_RetriesOnceOn5xx(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("GET /projects/p1/screens/s1", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, screenPayload, srv.URL)
	})
	mux.HandleFunc("GET /projects/p1/screens/s1/versions/v1/layers", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, layersPayload)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	screen, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Login", screen.Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchScreen_DoesNotRetry4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	_, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchScreen_BadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name": "no id or image"}`)
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	_, err := client.FetchScreen(context.Background(), "p1", "s1")

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

type stubCache struct {
	screen *types.DesignScreen
	sets   int
}

func (c *stubCache) Get(_ context.Context, _, _ string) (*types.DesignScreen, bool) {
	if c.screen == nil {
		return nil, false
	}
	return c.screen, true
}

func (c *stubCache) Set(_ context.Context, _, _ string, screen *types.DesignScreen) {
	c.screen = screen
	c.sets++
}

func TestFetchScreen_CacheHitSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cached := &types.DesignScreen{ProjectID: "p1", ScreenID: "s1", Name: "Cached"}
	client := NewClient("tok", WithBaseURL(srv.URL), WithCache(&stubCache{screen: cached}))

	screen, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Cached", screen.Name)
	assert.Equal(t, int32(0), calls.Load())
}

func TestFetchScreen_CacheMissPopulates(t *testing.T) {
	srv := newZeplinServer(t)
	cache := &stubCache{}
	client := NewClient("tok", WithBaseURL(srv.URL), WithCache(cache))

	_, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	require.NotNil(t, cache.screen)
	assert.Equal(t, "Login", cache.screen.Name)
}

func TestFetchReferenceImage(t *testing.T) {
	srv := newZeplinServer(t)
	client := NewClient("tok", WithBaseURL(srv.URL))

	screen, err := client.FetchScreen(context.Background(), "p1", "s1")
	require.NoError(t, err)

	img, raw, err := client.FetchReferenceImage(context.Background(), screen)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestFetchReferenceImage_NoURL(t *testing.T) {
	client := NewClient("tok")
	_, _, err := client.FetchReferenceImage(context.Background(), &types.DesignScreen{ProjectID: "p1", ScreenID: "s1"})

	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 45*time.Second, parseRetryAfter("45"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}
