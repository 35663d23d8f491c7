package geocode

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// stage is one fallback attempt. build derives the query from the raw
// address and reports false when the stage does not apply.
type stage struct {
	name  string
	build func(address string) (string, bool)
}

// stages returns the cascade in evaluation order.
func (g *geocoder) stages() []stage {
	return []stage{
		{name: "direct", build: func(a string) (string, bool) {
			return a, true
		}},
		{name: "preprocessed", build: func(a string) (string, bool) {
			p := g.preprocessor.Preprocess(a)
			return p, p != a
		}},
		{name: "city_state_zip", build: cityStateZip},
	}
}

// cityStateZip drops the first comma-separated segment, usually the street.
func cityStateZip(address string) (string, bool) {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return "", false
	}
	q := strings.TrimSpace(strings.Join(parts[1:], ","))
	return q, q != ""
}

// Geocode resolves address through the zip fast path or the cached cascade.
// Per-stage provider failures are logged and skipped; only context
// cancellation is returned as an error.
func (g *geocoder) Geocode(ctx context.Context, address string) (*model.GeocodeResult, error) {
	if address == "" {
		zap.L().Warn("geocode: no address provided")
		return nil, nil
	}

	if zip := strings.TrimSpace(address); zipPattern.MatchString(zip) {
		return g.LookupZip(ctx, zip)
	}

	key := AddressKey(address)
	var cached model.GeocodeResult
	if g.loadCached(ctx, key, &cached) {
		return &cached, nil
	}

	for _, s := range g.stages() {
		query, ok := s.build(address)
		if !ok {
			continue
		}

		zap.L().Info("geocode: attempt",
			zap.String("stage", s.name),
			zap.String("query", query),
		)

		place, err := g.search(ctx, query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, eris.Wrap(ctxErr, "geocode: cascade")
			}
			zap.L().Warn("geocode: stage failed, trying next",
				zap.String("stage", s.name),
				zap.Error(err),
			)
			continue
		}
		if place == nil {
			continue
		}

		result, err := place.toResult(address, s.name == "direct")
		if err != nil {
			zap.L().Warn("geocode: stage returned unusable result",
				zap.String("stage", s.name),
				zap.Error(err),
			)
			continue
		}

		g.storeCached(ctx, key, result)
		zap.L().Info("geocode: resolved",
			zap.String("stage", s.name),
			zap.String("address", address),
			zap.Float64("lat", result.Latitude),
			zap.Float64("lon", result.Longitude),
		)
		return result, nil
	}

	zap.L().Warn("geocode: all attempts failed", zap.String("address", address))
	return nil, nil
}
