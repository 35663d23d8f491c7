package geocode

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

// reverseResponse is the Nominatim reverse payload. Error is set instead of
// the place fields when nothing is found.
type reverseResponse struct {
	Error       json.RawMessage   `json:"error"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse converts a coordinate pair to an address. Provider errors, an
// error field in the response and unparseable payloads all return nil.
func (g *geocoder) Reverse(ctx context.Context, lat, lon float64) (*model.ReverseResult, error) {
	key := ReverseKey(lat, lon)
	var cached model.ReverseResult
	if g.loadCached(ctx, key, &cached) {
		return &cached, nil
	}

	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format":         {"json"},
		"addressdetails": {"1"},
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var resp reverseResponse
	found, err := g.getJSON(ctx, g.baseURL+"/reverse?"+params.Encode(), &resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "geocode: reverse")
		}
		zap.L().Warn("geocode: reverse failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		zap.L().Warn("geocode: reverse provider error",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.String("error", string(resp.Error)),
		)
		return nil, nil
	}

	rlat, err := strconv.ParseFloat(resp.Lat, 64)
	if err != nil {
		zap.L().Warn("geocode: reverse lat unparseable", zap.String("lat", resp.Lat))
		return nil, nil
	}
	rlon, err := strconv.ParseFloat(resp.Lon, 64)
	if err != nil {
		zap.L().Warn("geocode: reverse lon unparseable", zap.String("lon", resp.Lon))
		return nil, nil
	}

	components := resp.Address
	if components == nil {
		components = map[string]string{}
	}
	result := &model.ReverseResult{
		Latitude:          rlat,
		Longitude:         rlon,
		DisplayName:       resp.DisplayName,
		AddressComponents: components,
	}
	g.storeCached(ctx, key, result)
	return result, nil
}
