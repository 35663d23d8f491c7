// Package geocode resolves free-text postal addresses to coordinates via a
// Nominatim-compatible provider, with a cascade of fallback queries, a
// zip-code fast path and a pluggable result cache.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/cache"
	"github.com/sells-group/intake-cli/internal/model"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultZipURL    = "https://api.zippopotam.us/us"
	defaultUserAgent = "WorkersCompProcessor/1.0"
)

// Client resolves addresses and coordinates.
type Client interface {
	// Geocode resolves a free-text address. A nil result with a nil error
	// means every attempt came back empty.
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)

	// Reverse resolves a coordinate pair to an address.
	Reverse(ctx context.Context, lat, lon float64) (*model.ReverseResult, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client for all provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithLimiter sets the limiter every outbound call waits on. Share one
// limiter across clients that hit the same provider.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.limiter = l
	}
}

// WithBaseURL overrides the Nominatim base URL (no trailing slash).
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithZipURL overrides the postal-code lookup base URL.
func WithZipURL(u string) Option {
	return func(g *geocoder) {
		g.zipURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim rejects requests
// without one.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithAPIKey sets an optional provider key, sent as the "key" parameter.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithCache enables result caching.
func WithCache(c cache.Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

// WithCorrections extends the preprocessor's state-token corrections.
func WithCorrections(corrections map[string]string) Option {
	return func(g *geocoder) {
		g.preprocessor = NewPreprocessor(corrections)
	}
}

type geocoder struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	baseURL      string
	zipURL       string
	userAgent    string
	apiKey       string
	cache        cache.Cache
	preprocessor *Preprocessor
}

// NewClient creates a new geocoding Client with the given options. Without
// WithLimiter, calls are paced at one per second.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      NewLimiter(time.Second),
		baseURL:      defaultBaseURL,
		zipURL:       defaultZipURL,
		userAgent:    defaultUserAgent,
		preprocessor: defaultPreprocessor,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = cache.NewMemory(0)
	}
	return g
}

// NewLimiter returns a limiter that admits one call per interval.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
