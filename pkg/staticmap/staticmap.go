// Package staticmap renders and caches a PNG map centred on a coordinate.
package staticmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/cache"
)

const defaultBaseURL = "https://staticmap.openstreetmap.de/staticmap.php"

// Request describes one map. Zero Zoom, Width or Height take the renderer's
// defaults.
type Request struct {
	Lat     float64
	Lon     float64
	Zoom    int
	Width   int
	Height  int
	OrderID string
}

// Renderer fetches static map images and keeps them on disk.
type Renderer struct {
	files      *cache.File
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	zoom       int
	width      int
	height     int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Renderer) {
		r.httpClient = hc
	}
}

// WithLimiter sets the limiter each fetch waits on.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Renderer) {
		r.limiter = l
	}
}

// WithBaseURL overrides the static-map endpoint.
func WithBaseURL(u string) Option {
	return func(r *Renderer) {
		r.baseURL = u
	}
}

// WithAPIKey sets an optional provider key.
func WithAPIKey(key string) Option {
	return func(r *Renderer) {
		r.apiKey = key
	}
}

// WithDefaults sets the zoom and size used when a Request leaves them zero.
func WithDefaults(zoom, width, height int) Option {
	return func(r *Renderer) {
		r.zoom = zoom
		r.width = width
		r.height = height
	}
}

// New creates a Renderer that stores images in files.
func New(files *cache.File, opts ...Option) *Renderer {
	r := &Renderer{
		files:      files,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL:    defaultBaseURL,
		zoom:       14,
		width:      600,
		height:     400,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the cache key for req. An order id takes precedence so
// repeated runs for the same order reuse one file.
func Key(req Request) string {
	if req.OrderID != "" {
		return req.OrderID + "_map"
	}
	name := fmt.Sprintf("map_%s_%s_%d", formatCoord(req.Lat), formatCoord(req.Lon), req.Zoom)
	return strings.ReplaceAll(name, ".", "_")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Render returns the path of the map image for req, fetching it only when no
// file exists yet. Any failure returns ok=false.
func (r *Renderer) Render(ctx context.Context, req Request) (string, bool) {
	req = r.withDefaults(req)
	key := Key(req)
	path := r.files.Path(key)

	if r.files.Exists(key) {
		zap.L().Info("staticmap: using existing map", zap.String("path", path))
		return path, true
	}

	data, err := r.fetch(ctx, req)
	if err != nil {
		zap.L().Error("staticmap: render failed",
			zap.Float64("lat", req.Lat),
			zap.Float64("lon", req.Lon),
			zap.Error(err),
		)
		return "", false
	}
	if err := r.files.Put(ctx, key, data); err != nil {
		zap.L().Error("staticmap: save failed", zap.String("path", path), zap.Error(err))
		return "", false
	}

	zap.L().Info("staticmap: saved map", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, true
}

func (r *Renderer) withDefaults(req Request) Request {
	if req.Zoom == 0 {
		req.Zoom = r.zoom
	}
	if req.Width == 0 {
		req.Width = r.width
	}
	if req.Height == 0 {
		req.Height = r.height
	}
	return req
}

func (r *Renderer) fetch(ctx context.Context, req Request) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "staticmap: rate limit")
	}

	center := formatCoord(req.Lat) + "," + formatCoord(req.Lon)
	params := url.Values{
		"center":      {center},
		"zoom":        {strconv.Itoa(req.Zoom)},
		"size":        {fmt.Sprintf("%dx%d", req.Width, req.Height)},
		"markers":     {center + ",red"},
		"attribution": {"true"},
	}
	if r.apiKey != "" {
		params.Set("key", r.apiKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: build request")
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("staticmap: returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: read body")
	}
	if len(data) == 0 {
		return nil, eris.New("staticmap: empty image")
	}
	return data, nil
}
