package geocode

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

// zipResponse is the Zippopotam postal-code response.
type zipResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName         string `json:"place name"`
		State             string `json:"state"`
		StateAbbreviation string `json:"state abbreviation"`
		Latitude          string `json:"latitude"`
		Longitude         string `json:"longitude"`
	} `json:"places"`
}

// LookupZip resolves a 5-digit US zip code in two calls: the postal-code
// service for city and state, then the geocoder for
// "{city}, {state}, {zip}, USA". Results are cached under ZipKey.
func (g *geocoder) LookupZip(ctx context.Context, zip string) (*model.GeocodeResult, error) {
	key := ZipKey(zip)
	var cached model.GeocodeResult
	if g.loadCached(ctx, key, &cached) {
		return &cached, nil
	}

	city, state, err := g.zipPlace(ctx, zip)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "geocode: zip lookup")
		}
		zap.L().Warn("geocode: zip lookup failed", zap.String("zip", zip), zap.Error(err))
		return nil, nil
	}
	if city == "" {
		zap.L().Warn("geocode: unknown zip", zap.String("zip", zip))
		return nil, nil
	}

	query := fmt.Sprintf("%s, %s, %s, USA", city, state, zip)
	place, err := g.search(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "geocode: zip lookup")
		}
		zap.L().Warn("geocode: zip geocode failed", zap.String("query", query), zap.Error(err))
		return nil, nil
	}
	if place == nil {
		return nil, nil
	}

	result, err := place.toResult(zip, false)
	if err != nil {
		zap.L().Warn("geocode: zip geocode unusable", zap.String("query", query), zap.Error(err))
		return nil, nil
	}

	g.storeCached(ctx, key, result)
	return result, nil
}

// zipPlace returns the first place name and state abbreviation for zip.
// An unknown zip returns empty strings.
func (g *geocoder) zipPlace(ctx context.Context, zip string) (string, string, error) {
	var resp zipResponse
	found, err := g.getJSON(ctx, g.zipURL+"/"+url.PathEscape(zip), &resp)
	if err != nil {
		return "", "", eris.Wrap(err, "geocode: zip service")
	}
	if !found || len(resp.Places) == 0 {
		return "", "", nil
	}
	p := resp.Places[0]
	return p.PlaceName, p.StateAbbreviation, nil
}
