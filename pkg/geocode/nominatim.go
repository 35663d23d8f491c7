package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
)

// nominatimPlace is one element of a Nominatim search response.
type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Importance  *float64          `json:"importance"`
}

// search runs one rate-limited Nominatim query and returns the top match,
// or nil when the provider has none.
func (g *geocoder) search(ctx context.Context, query string) (*nominatimPlace, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var places []nominatimPlace
	found, err := g.getJSON(ctx, g.baseURL+"/search?"+params.Encode(), &places)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim search")
	}
	if !found || len(places) == 0 {
		return nil, nil
	}
	return &places[0], nil
}

// toResult converts a place to a GeocodeResult tagged with the caller's
// original address.
func (p *nominatimPlace) toResult(original string, withImportance bool) (*model.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lat %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: parse lon %q", p.Lon)
	}

	components := p.Address
	if components == nil {
		components = map[string]string{}
	}

	r := &model.GeocodeResult{
		Latitude:          lat,
		Longitude:         lon,
		DisplayName:       p.DisplayName,
		AddressComponents: components,
		OriginalAddress:   original,
	}
	if withImportance {
		importance := 0.0
		if p.Importance != nil {
			importance = *p.Importance
		}
		r.Importance = &importance
	}
	return r, nil
}

// getJSON waits on the limiter, issues a GET and decodes the body into dst.
// A 404 reports found=false without an error.
func (g *geocoder) getJSON(ctx context.Context, reqURL string, dst any) (bool, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return false, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, eris.Errorf("returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, eris.Wrap(err, "read body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, eris.Wrap(err, "parse response")
	}
	return true, nil
}
