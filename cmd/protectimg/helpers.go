package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcslaoli/protectimg"
)

type loadResult struct {
	state    protectimg.State
	attempts []protectimg.LoadAttempt
	pattern  protectimg.WatermarkPattern
	ctrl     *protectimg.Controller
	// base is the decoded source image, kept only when the pixel path won so
	// the watermark can be scored against it.
	base image.Image
}

// recordingFetcher keeps the last cross-origin decode so inspect can compare
// the rendered surface against its source.
type recordingFetcher struct {
	inner protectimg.Fetcher
	last  image.Image
}

func (r *recordingFetcher) Fetch(ctx context.Context, url string, mode protectimg.LoadMode) (*protectimg.DecodedImage, error) {
	decoded, err := r.inner.Fetch(ctx, url, mode)
	if err == nil && mode == protectimg.CrossOrigin && decoded != nil {
		r.last = decoded.Image
	}
	return decoded, err
}

// loadOnce drives a controller through a single request and waits for it to
// settle. The caller must close the returned controller.
func loadOnce(cmd *cobra.Command, cc *commandContext, req protectimg.ImageRequest, timeout time.Duration) (*loadResult, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cc.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	pattern, err := cfg.Pattern()
	if err != nil {
		return nil, err
	}
	renderer, err := protectimg.NewRenderer(pattern)
	if err != nil {
		return nil, err
	}

	fetcher := &recordingFetcher{inner: protectimg.NewHTTPLoader(cfg.LoaderOptions()...)}
	ctrl := protectimg.NewController(fetcher, renderer,
		protectimg.WithLogger(logger),
		protectimg.WithContext(cmd.Context()),
	)
	ctrl.SetSource(req)

	waitCtx := cmd.Context()
	if waitCtx == nil {
		waitCtx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
		defer cancel()
	}

	state, err := ctrl.Wait(waitCtx)
	if err != nil {
		_ = ctrl.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("image still %s after %s", state.Phase, timeout)
		}
		return nil, err
	}

	result := &loadResult{
		state:    state,
		attempts: ctrl.Attempts(),
		pattern:  pattern,
		ctrl:     ctrl,
	}
	if state.Result == protectimg.ResultPixelSurface {
		result.base = fetcher.last
	}
	return result, nil
}
