package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/model"
)

type fakeResolver struct {
	raw     map[string]any
	orderID string
}

func (f *fakeResolver) ResolveOrder(_ context.Context, raw map[string]any, orderID string) *model.MergedResult {
	f.raw, f.orderID = raw, orderID
	return &model.MergedResult{
		OrderID:     orderID,
		MappingData: model.MappingData{Status: model.StatusSuccess},
		ProviderMapping: model.ProviderMapping{
			Status:          model.StatusSuccess,
			PatientLocation: &model.PatientLocation{Latitude: 27.95, Longitude: -82.45, Address: "Tampa, FL"},
			Providers: []model.RankedProvider{{
				ProviderRecord: model.ProviderRecord{PrimaryKey: "P1", DisplayName: "Near Imaging", Latitude: 27.96, Longitude: -82.45},
				DistanceMiles:  1.1,
			}},
		},
	}
}

type fakeGeocoder struct {
	result *model.GeocodeResult
	err    error
}

func (f *fakeGeocoder) Geocode(context.Context, string) (*model.GeocodeResult, error) {
	return f.result, f.err
}

type fakeMatcher struct {
	lat, lon float64
	code     string
	limit    int
	err      error
}

func (f *fakeMatcher) Match(_ context.Context, lat, lon float64, code string, limit int) ([]model.RankedProvider, error) {
	f.lat, f.lon, f.code, f.limit = lat, lon, code, limit
	if f.err != nil {
		return nil, f.err
	}
	return []model.RankedProvider{{ProviderRecord: model.ProviderRecord{PrimaryKey: "P1"}, DistanceMiles: 1.1}}, nil
}

func newTestServer() (*server, *fakeResolver, *fakeGeocoder, *fakeMatcher) {
	r, g, m := &fakeResolver{}, &fakeGeocoder{}, &fakeMatcher{}
	return &server{resolver: r, geocoder: g, matcher: m}, r, g, m
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServe_Health(t *testing.T) {
	s, _, _, _ := newTestServer()
	rec := do(t, s.routes(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestServe_RequestIDIsEchoed(t *testing.T) {
	s, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestServe_ResolveOrder(t *testing.T) {
	s, r, _, _ := newTestServer()
	rec := do(t, s.routes(), http.MethodPost, "/v1/orders/ORD-1/resolve", `{"patient_address":"1 Main St"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORD-1", r.orderID)
	assert.Equal(t, "1 Main St", r.raw["patient_address"])

	var got model.MergedResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.Equal(t, model.StatusSuccess, got.ProviderMapping.Status)
}

func TestServe_ResolveGeoJSON(t *testing.T) {
	s, _, _, _ := newTestServer()
	rec := do(t, s.routes(), http.MethodPost, "/v1/orders/ORD-2/resolve?format=geojson", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, []float64{-82.45, 27.95}, fc.Features[0].Geometry.Coordinates)
}

func TestServe_ResolveUnknownFormat(t *testing.T) {
	s, _, _, _ := newTestServer()
	rec := do(t, s.routes(), http.MethodPost, "/v1/orders/ORD-2/resolve?format=kml", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_ResolveGeneratesOrderID(t *testing.T) {
	s, r, _, _ := newTestServer()
	rec := do(t, s.routes(), http.MethodPost, "/v1/resolve", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, r.orderID, 36)
}

func TestServe_ResolveBadBody(t *testing.T) {
	s, _, _, _ := newTestServer()
	for _, body := range []string{"", "not json", `["array"]`} {
		rec := do(t, s.routes(), http.MethodPost, "/v1/resolve", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServe_Geocode(t *testing.T) {
	s, _, g, _ := newTestServer()
	g.result = &model.GeocodeResult{Latitude: 27.95, Longitude: -82.45, DisplayName: "Tampa"}

	rec := do(t, s.routes(), http.MethodGet, "/v1/geocode?address=Tampa%2C+FL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display_name":"Tampa"`)
}

func TestServe_GeocodeErrors(t *testing.T) {
	s, _, g, _ := newTestServer()

	rec := do(t, s.routes(), http.MethodGet, "/v1/geocode", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.routes(), http.MethodGet, "/v1/geocode?address=nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	g.err = context.Canceled
	rec = do(t, s.routes(), http.MethodGet, "/v1/geocode?address=nowhere", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServe_Nearest(t *testing.T) {
	s, _, _, m := newTestServer()
	rec := do(t, s.routes(), http.MethodGet, "/v1/providers/nearest?lat=27.95&lon=-82.45&cpt=73221&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 27.95, m.lat, 1e-9)
	assert.InDelta(t, -82.45, m.lon, 1e-9)
	assert.Equal(t, "73221", m.code)
	assert.Equal(t, 5, m.limit)
	assert.Contains(t, rec.Body.String(), `"primary_key":"P1"`)
}

func TestServe_NearestValidation(t *testing.T) {
	s, _, _, m := newTestServer()

	for _, target := range []string{
		"/v1/providers/nearest",
		"/v1/providers/nearest?lat=abc&lon=1",
		"/v1/providers/nearest?lat=95&lon=1",
		"/v1/providers/nearest?lat=1&lon=1&limit=x",
		"/v1/providers/nearest?lat=1&lon=1&limit=500",
	} {
		rec := do(t, s.routes(), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	m.err = errors.New("db down")
	rec := do(t, s.routes(), http.MethodGet, "/v1/providers/nearest?lat=1&lon=1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestServe_CORSPreflight(t *testing.T) {
	s, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/v1/resolve", nil)
	req.Header.Set("Origin", "https://intake.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
