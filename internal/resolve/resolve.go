// Package resolve runs one order through normalization, geocoding, map
// rendering and provider matching, degrading each stage to a status marker.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/normalize"
	"github.com/sells-group/intake-cli/pkg/staticmap"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)
}

// MapRenderer produces a map image for a location.
type MapRenderer interface {
	Render(ctx context.Context, req staticmap.Request) (string, bool)
}

// Matcher ranks providers near a location.
type Matcher interface {
	Match(ctx context.Context, lat, lon float64, procCode string, limit int) ([]model.RankedProvider, error)
}

// Resolver wires the resolution stages together.
type Resolver struct {
	geocoder Geocoder
	maps     MapRenderer
	matcher  Matcher
	enabled  bool
	limit    int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGeocodingEnabled toggles the geocoding stage and everything after it.
func WithGeocodingEnabled(enabled bool) Option {
	return func(r *Resolver) {
		r.enabled = enabled
	}
}

// WithMapRenderer enables map rendering for resolved orders.
func WithMapRenderer(m MapRenderer) Option {
	return func(r *Resolver) {
		r.maps = m
	}
}

// WithProviderLimit sets how many providers are matched per order.
func WithProviderLimit(n int) Option {
	return func(r *Resolver) {
		r.limit = n
	}
}

// New returns a Resolver with geocoding enabled.
func New(geocoder Geocoder, matcher Matcher, opts ...Option) *Resolver {
	r := &Resolver{geocoder: geocoder, matcher: matcher, enabled: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCompletion parses a language-model completion and resolves it. An
// unparseable completion resolves as an intake with every field absent.
func (r *Resolver) ResolveCompletion(ctx context.Context, content, orderID string) *model.MergedResult {
	raw, err := normalize.ParseCompletion(content)
	if err != nil {
		zap.L().Warn("resolve: completion is not json, continuing with empty intake",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		raw = map[string]any{}
	}
	return r.ResolveOrder(ctx, raw, orderID)
}

// ResolveOrder normalizes raw and resolves the patient address to a map and
// ranked providers. It always returns a result; failed stages are reported
// through MappingData.Status and ProviderMapping.Status.
func (r *Resolver) ResolveOrder(ctx context.Context, raw map[string]any, orderID string) *model.MergedResult {
	log := zap.L().With(zap.String("order_id", orderID))

	result := &model.MergedResult{
		OrderID:       orderID,
		ExtractedData: normalize.Normalize(raw),
		ProviderMapping: model.ProviderMapping{
			Providers: []model.RankedProvider{},
		},
	}

	if !r.enabled {
		log.Info("resolve: geocoding disabled")
		result.MappingData.Status = model.StatusDisabled
		result.ProviderMapping.Status = model.StatusDisabled
		return result
	}

	address := result.ExtractedData.PatientAddress()
	if address == "" {
		log.Warn("resolve: no patient address")
		result.MappingData.Status = model.StatusNoAddressFound
		result.ProviderMapping.Status = model.StatusGeocodingFailed
		return result
	}

	geo, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		log.Error("resolve: geocode aborted", zap.Error(err))
	}
	if geo == nil {
		log.Warn("resolve: could not geocode address", zap.String("address", address))
		result.MappingData.Status = model.StatusGeocodingFailed
		result.ProviderMapping.Status = model.StatusGeocodingFailed
		return result
	}

	result.MappingData.Status = model.StatusSuccess
	result.MappingData.GeocodeData = geo

	if r.maps != nil {
		if path, ok := r.maps.Render(ctx, staticmap.Request{
			Lat:     geo.Latitude,
			Lon:     geo.Longitude,
			OrderID: orderID,
		}); ok {
			result.MappingData.MapPath = path
		}
	}

	r.matchProviders(ctx, result, geo)
	return result
}

func (r *Resolver) matchProviders(ctx context.Context, result *model.MergedResult, geo *model.GeocodeResult) {
	pm := &result.ProviderMapping
	if r.matcher == nil {
		pm.Status = model.StatusError
		pm.Message = "provider matching is not configured"
		return
	}

	providers, err := r.matcher.Match(ctx, geo.Latitude, geo.Longitude, result.ExtractedData.FirstCPT(), r.limit)
	if err != nil {
		zap.L().Error("resolve: provider matching failed",
			zap.String("order_id", result.OrderID),
			zap.Error(err),
		)
		pm.Status = model.StatusError
		pm.Message = err.Error()
		return
	}

	pm.PatientLocation = &model.PatientLocation{
		Latitude:  geo.Latitude,
		Longitude: geo.Longitude,
		Address:   geo.DisplayName,
	}
	if len(providers) == 0 {
		pm.Status = model.StatusNoProvidersFound
		return
	}
	pm.Status = model.StatusSuccess
	pm.Providers = providers
}
