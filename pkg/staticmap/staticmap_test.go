package staticmap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/cache"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newFiles(t *testing.T) *cache.File {
	t.Helper()
	fc, err := cache.NewFile(t.TempDir(), ".png")
	require.NoError(t, err)
	return fc
}

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "map_37_7749_-122_4194_14", Key(Request{Lat: 37.7749, Lon: -122.4194, Zoom: 14}))
	assert.Equal(t, "ORD-1_map", Key(Request{Lat: 37.7749, Lon: -122.4194, Zoom: 14, OrderID: "ORD-1"}))
}

func TestRender_FetchesAndReusesOrderFile(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		assert.Equal(t, "27.95,-82.45", q.Get("center"))
		assert.Equal(t, "14", q.Get("zoom"))
		assert.Equal(t, "600x400", q.Get("size"))
		assert.Equal(t, "27.95,-82.45,red", q.Get("markers"))
		assert.Equal(t, "true", q.Get("attribution"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	files := newFiles(t)
	r := New(files, WithBaseURL(srv.URL), WithLimiter(newTestLimiter()))

	path, ok := r.Render(context.Background(), Request{Lat: 27.95, Lon: -82.45, OrderID: "ORD-7"})
	require.True(t, ok)
	assert.Equal(t, "ORD-7_map.png", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	// A different location for the same order still reuses the file.
	again, ok := r.Render(context.Background(), Request{Lat: 10, Lon: 10, OrderID: "ORD-7"})
	require.True(t, ok)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRender_CoordinateNaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	r := New(newFiles(t), WithBaseURL(srv.URL), WithLimiter(newTestLimiter()), WithDefaults(12, 300, 200))

	path, ok := r.Render(context.Background(), Request{Lat: 27.5, Lon: -82.25})
	require.True(t, ok)
	assert.Equal(t, "map_27_5_-82_25_12.png", filepath.Base(path))
}

func TestRender_ExistingFileSkipsNetwork(t *testing.T) {
	files := newFiles(t)
	require.NoError(t, files.Put(context.Background(), "ORD-9_map", pngBytes))

	r := New(files, WithBaseURL("http://127.0.0.1:1"), WithLimiter(newTestLimiter()))

	path, ok := r.Render(context.Background(), Request{Lat: 1, Lon: 2, OrderID: "ORD-9"})
	require.True(t, ok)
	assert.Equal(t, files.Path("ORD-9_map"), path)
}

func TestRender_FailureIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	files := newFiles(t)
	r := New(files, WithBaseURL(srv.URL), WithLimiter(newTestLimiter()))

	path, ok := r.Render(context.Background(), Request{Lat: 1, Lon: 2, OrderID: "ORD-X"})
	assert.False(t, ok)
	assert.Empty(t, path)
	assert.False(t, files.Exists("ORD-X_map"))
}

func TestRender_TransportErrorIsAbsent(t *testing.T) {
	r := New(newFiles(t), WithBaseURL("http://127.0.0.1:1"), WithLimiter(newTestLimiter()))

	_, ok := r.Render(context.Background(), Request{Lat: 1, Lon: 2})
	assert.False(t, ok)
}
