package geocode

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
// All requests matching the target prefix are redirected to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newURL := t.testServer + suffix
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// fakeNominatim answers /search from a query → places table and records
// every query it receives. Unknown queries get an empty list.
type fakeNominatim struct {
	mu      sync.Mutex
	places  map[string][]map[string]any
	fail    map[string]int
	queries []string
	agents  []string
	keys    []string
}

func newFakeNominatim(t *testing.T) (*fakeNominatim, *httptest.Server) {
	t.Helper()
	f := &fakeNominatim{
		places: map[string][]map[string]any{},
		fail:   map[string]int{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeNominatim) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.agents = append(f.agents, r.Header.Get("User-Agent"))
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	status := f.fail[q]
	places := f.places[q]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if places == nil {
		places = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(places)
}

func (f *fakeNominatim) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func place(lat, lon, display string) []map[string]any {
	return []map[string]any{{
		"lat":          lat,
		"lon":          lon,
		"display_name": display,
		"importance":   0.61,
		"address": map[string]string{
			"city":     "Tampa",
			"state":    "Florida",
			"postcode": "33601",
		},
	}}
}
