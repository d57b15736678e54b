package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordan/design-validator/internal/capture"
	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/imagediff"
	"github.com/jordan/design-validator/internal/types"
	"github.com/jordan/design-validator/internal/zeplin"
)

func whiteImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

type stubFetcher struct {
	screen    *types.DesignScreen
	reference image.Image
	fetchErr  error
	imageErr  error
}

func (f *stubFetcher) FetchScreen(_ context.Context, _, _ string) (*types.DesignScreen, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.screen, nil
}

func (f *stubFetcher) FetchReferenceImage(_ context.Context, _ *types.DesignScreen) (image.Image, []byte, error) {
	if f.imageErr != nil {
		return nil, nil, f.imageErr
	}
	return f.reference, []byte("png-bytes"), nil
}

func stubCapture(snapshot *types.LiveSnapshot, err error) CaptureFunc {
	return func(_ context.Context, _ string, _ capture.Options) (*types.LiveSnapshot, error) {
		return snapshot, err
	}
}

func passingFixtures() (*stubFetcher, *types.LiveSnapshot) {
	fetcher := &stubFetcher{
		screen: &types.DesignScreen{
			ProjectID: "p1",
			ScreenID:  "s1",
			Name:      "Login",
			Layers: []types.DesignLayer{
				{Name: "Heading", Type: "text", TextContent: "Welcome back",
					Style: map[string]string{"font-size": "24px"}},
			},
		},
		reference: whiteImage(50, 50),
	}
	snapshot := &types.LiveSnapshot{
		URL:        "https://example.com",
		Screenshot: whiteImage(50, 50),
		TextNodes: []types.LiveTextNode{
			{Text: "Welcome back", Computed: map[string]string{"font-size": "24px"}},
		},
		DOMNodeCount: 42,
		HTML:         "<html></html>",
	}
	return fetcher, snapshot
}

func testRunOptions() RunOptions {
	return RunOptions{
		ProjectID: "p1",
		ScreenID:  "s1",
		LiveURL:   "https://example.com",
		Config:    config.Config{},
	}
}

func TestRun_Pass(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusPass, run.Status)
	require.NotNil(t, run.Diff)
	assert.Equal(t, 0, run.Diff.MismatchedPixels)
	assert.True(t, run.Diff.Pass)
	assert.Equal(t, 1, run.LayerCount)
	assert.Equal(t, 42, run.DOMNodeCount)
	assert.Equal(t, 0, run.StyleMismatches)
	assert.Empty(t, run.ErrorKind)
	require.NotNil(t, run.CompletedAt)
	require.Len(t, run.Comparisons, 1)
	assert.Equal(t, types.ComparisonPass, run.Comparisons[0].Status)
}

func TestRun_FailOnStyleMismatch(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	snapshot.TextNodes[0].Computed["font-size"] = "18px"
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusFail, run.Status)
	assert.Equal(t, 1, run.StyleMismatches)
	require.NotNil(t, run.Diff)
	assert.True(t, run.Diff.Pass)
}

func TestRun_FailOnJSErrors(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	snapshot.JSErrors = []string{"TypeError: x is undefined"}
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusFail, run.Status)
	assert.Equal(t, 1, run.JSErrorCount)
	assert.Equal(t, 0, run.StyleMismatches)
}

func TestRun_FailOnPixelMismatch(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	// Black screenshot against a white reference.
	snapshot.Screenshot = image.NewRGBA(image.Rect(0, 0, 50, 50))
	draw.Draw(snapshot.Screenshot.(*image.RGBA), image.Rect(0, 0, 50, 50),
		image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{}, draw.Src)
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusFail, run.Status)
	require.NotNil(t, run.Diff)
	assert.False(t, run.Diff.Pass)
	assert.Equal(t, 50*50, run.Diff.MismatchedPixels)
}

func TestRun_NavigationErrorIsFailed(t *testing.T) {
	fetcher, _ := passingFixtures()
	navErr := &capture.NavigationError{URL: "https://example.com", Message: "page load failed"}
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(nil, navErr)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.Equal(t, "navigation", run.ErrorKind)
	assert.NotEmpty(t, run.ErrorMessage)
	assert.Nil(t, run.Diff)
	assert.Empty(t, run.Comparisons)
	require.NotNil(t, run.CompletedAt)
}

func TestRun_ZeplinAuthErrorIsFailed(t *testing.T) {
	fetcher := &stubFetcher{fetchErr: &zeplin.AuthError{StatusCode: 401, Message: "bad token"}}
	_, snapshot := passingFixtures()
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	run := runner.Run(context.Background(), testRunOptions())

	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.Equal(t, "zeplin_auth", run.ErrorKind)
}

func TestRun_EmitsProgressStages(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	var stages []string
	opts := testRunOptions()
	opts.OnProgress = func(event ProgressEvent) {
		stages = append(stages, event.Stage)
	}

	run := runner.Run(context.Background(), opts)
	require.Equal(t, types.RunStatusPass, run.Status)

	for _, want := range []string{StageFetchDesign, StageCapture, StageDiff, StageStylecheck, "complete"} {
		assert.Contains(t, stages, want)
	}
}

func TestRun_PresetRunID(t *testing.T) {
	fetcher, snapshot := passingFixtures()
	runner := &Runner{Fetcher: fetcher, Capture: stubCapture(snapshot, nil)}

	opts := testRunOptions()
	run1 := runner.Run(context.Background(), opts)
	run2 := runner.Run(context.Background(), opts)
	assert.NotEqual(t, run1.ID, run2.ID)

	opts.RunID = run1.ID
	run3 := runner.Run(context.Background(), opts)
	assert.Equal(t, run1.ID, run3.ID)
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&zeplin.AuthError{StatusCode: 401}, "zeplin_auth"},
		{&zeplin.NotFoundError{ProjectID: "p", ScreenID: "s"}, "zeplin_not_found"},
		{&zeplin.RateLimitError{}, "zeplin_rate_limit"},
		{&zeplin.APIError{StatusCode: 500}, "zeplin_api"},
		{&capture.NavigationError{URL: "u"}, "navigation"},
		{&capture.RenderTimeoutError{URL: "u"}, "render_timeout"},
		{&imagediff.InvalidImageError{Which: "candidate"}, "invalid_image"},
		{&config.ConfigurationError{Message: "bad"}, "configuration"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "internal"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, errorKind(tc.err), tc.want)
	}
}
