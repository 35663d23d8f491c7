package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/resilience"
)

func TestNewExtractor_Local(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_LocalDefault(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_MistralMissingKey(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires ocr.mistral_key")
}

func TestNewExtractor_MistralWithKey(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "test-key", MistralModel: "m1"})
	require.NoError(t, err)
	require.IsType(t, &MistralOCR{}, ext)
	assert.Equal(t, "m1", ext.(*MistralOCR).model)
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "tesseract"`)
}

func TestPdfToText_BinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/custom/pdftotext", NewPdfToText("/custom/pdftotext").binPath)
}

func TestPdfToText_RejectsImages(t *testing.T) {
	_, err := NewPdfToText("").ExtractText(context.Background(), "/tmp/scan.JPG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read .jpg files")
}

func TestPdfToText_BinaryNotFound(t *testing.T) {
	_, err := NewPdfToText("/nonexistent/pdftotext").ExtractText(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_Success(t *testing.T) {
	fakeBin := filepath.Join(t.TempDir(), "pdftotext")
	script := "#!/bin/sh\necho 'Injured worker: Jane Roe'\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0o755))

	text, err := NewPdfToText(fakeBin).ExtractText(context.Background(), "/tmp/referral.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Injured worker: Jane Roe")
}

func writeDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test content"), 0o644))
	return path
}

func testMistral(endpoint string) *MistralOCR {
	m := NewMistralOCR("test-key", "test-model")
	m.endpoint = endpoint
	m.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return m
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
}

func TestMistralOCR_ExtractPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")
		assert.Empty(t, req.Document.ImageURL)

		_ = json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{
			{Index: 0, Markdown: "Page one"},
			{Index: 1, Markdown: "Page two"},
		}})
	}))
	defer srv.Close()

	text, err := testMistral(srv.URL).ExtractText(context.Background(), writeDoc(t, "referral.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", text)
}

func TestMistralOCR_ExtractImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image_url", req.Document.Type)
		assert.Contains(t, req.Document.ImageURL, "data:image/png;base64,")
		assert.Empty(t, req.Document.DocumentURL)

		_ = json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "scanned"}}})
	}))
	defer srv.Close()

	text, err := testMistral(srv.URL).ExtractText(context.Background(), writeDoc(t, "scan.png"))
	require.NoError(t, err)
	assert.Equal(t, "scanned", text)
}

func TestMistralOCR_UnsupportedExtension(t *testing.T) {
	_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/tmp/notes.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read .docx files")
}

func TestMistralOCR_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "ok"}}})
	}))
	defer srv.Close()

	text, err := testMistral(srv.URL).ExtractText(context.Background(), writeDoc(t, "referral.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMistralOCR_APIError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := testMistral(srv.URL).ExtractText(context.Background(), writeDoc(t, "referral.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API: returned 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMistralOCR_FileNotFound(t *testing.T) {
	_, err := NewMistralOCR("key", "model").ExtractText(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read document")
}

func TestMistralOCR_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	_, err := testMistral(srv.URL).ExtractText(context.Background(), writeDoc(t, "referral.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}
