package protectimg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

// LoadMode selects how an attempt negotiates pixel access with the host.
type LoadMode int

const (
	// CrossOrigin requests pixel access; the host must opt in.
	CrossOrigin LoadMode = iota
	// SameOriginOnly fetches without negotiating pixel access.
	SameOriginOnly
)

func (m LoadMode) String() string {
	switch m {
	case CrossOrigin:
		return "cross-origin"
	case SameOriginOnly:
		return "same-origin-only"
	default:
		return fmt.Sprintf("LoadMode(%d)", int(m))
	}
}

// LoadStatus is the outcome of a single attempt.
type LoadStatus int

const (
	Pending LoadStatus = iota
	Decoded
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Decoded:
		return "decoded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// LoadAttempt records one fetch made on behalf of an ImageRequest.
type LoadAttempt struct {
	Mode    LoadMode
	Status  LoadStatus
	URL     string
	Err     error
	Started time.Time
	Elapsed time.Duration
}

// DecodedImage is what a Fetcher hands back. CrossOrigin fetches populate
// Image; SameOriginOnly fetches only carry the header in Config.
type DecodedImage struct {
	Image  image.Image
	Config image.Config
	Format string
}

// Fetcher is the image decoding primitive the controller drives.
type Fetcher interface {
	Fetch(ctx context.Context, url string, mode LoadMode) (*DecodedImage, error)
}

var (
	ErrPixelAccessDenied = errors.New("host did not grant cross-origin pixel access")
	ErrUnexpectedStatus  = errors.New("unexpected response status")
	ErrInvalidImage      = errors.New("invalid image data")
	ErrTooLarge          = errors.New("image exceeds size limit")
)

const (
	defaultOrigin    = "http://localhost"
	defaultUserAgent = "protectimg/0.1.0"
	defaultMaxBytes  = 32 << 20
	defaultMaxPixels = 64 << 20
)

// HTTPLoader fetches images over HTTP and enforces cross-origin pixel access
// the way a browser does for anonymous image requests.
type HTTPLoader struct {
	client    *http.Client
	origin    string
	userAgent string
	maxBytes  int64
	maxPixels int64
}

var _ Fetcher = (*HTTPLoader)(nil)

// LoaderOption configures an HTTPLoader.
type LoaderOption func(*HTTPLoader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *HTTPLoader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithOrigin sets the origin announced on cross-origin requests.
func WithOrigin(origin string) LoaderOption {
	return func(l *HTTPLoader) {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			l.origin = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) LoaderOption {
	return func(l *HTTPLoader) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			l.userAgent = trimmed
		}
	}
}

// WithMaxBytes bounds the response body size. Zero or negative keeps the default.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *HTTPLoader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithMaxPixels bounds the declared width*height of a decoded image. Zero or
// negative keeps the default.
func WithMaxPixels(n int64) LoaderOption {
	return func(l *HTTPLoader) {
		if n > 0 {
			l.maxPixels = n
		}
	}
}

// NewHTTPLoader builds a loader. The default client has no timeout.
func NewHTTPLoader(opts ...LoaderOption) *HTTPLoader {
	l := &HTTPLoader{
		client:    &http.Client{},
		origin:    defaultOrigin,
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
		maxPixels: defaultMaxPixels,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Origin returns the origin announced on cross-origin requests.
func (l *HTTPLoader) Origin() string {
	return l.origin
}

// Fetch retrieves url. In CrossOrigin mode the response must grant pixel access
// to the loader's origin before the body is decoded into an image. In
// SameOriginOnly mode the body is decoded too, but only its header is returned.
func (l *HTTPLoader) Fetch(ctx context.Context, url string, mode LoadMode) (*DecodedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", l.userAgent)
	if mode == CrossOrigin {
		req.Header.Set("Origin", l.origin)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", mode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if mode == CrossOrigin && !l.pixelAccessGranted(resp.Header) {
		return nil, ErrPixelAccessDenied
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxBytes)
	}

	// The header is checked before decoding: decoders allocate the whole
	// bitmap from the declared dimensions.
	cfg, _, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > l.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, l.maxPixels)
	}

	img, format, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if mode == SameOriginOnly {
		// The body must decode in full, but its pixels stay with the loader.
		return &DecodedImage{Config: configOf(img), Format: format}, nil
	}
	return &DecodedImage{Image: img, Config: configOf(img), Format: format}, nil
}

// pixelAccessGranted mirrors an anonymous CORS check: a wildcard or an exact
// origin match releases the pixels.
func (l *HTTPLoader) pixelAccessGranted(h http.Header) bool {
	allowed := strings.TrimSpace(h.Get("Access-Control-Allow-Origin"))
	if allowed == "*" {
		return true
	}
	return allowed != "" && strings.EqualFold(strings.TrimRight(allowed, "/"), l.origin)
}

func configOf(img image.Image) image.Config {
	b := img.Bounds()
	return image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}
}
