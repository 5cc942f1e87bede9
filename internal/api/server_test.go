package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/engine"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	id     string
	output []byte
	err    error
	got    transform.Request
}

func (s *stubExecutor) ID() string { return s.id }

func (s *stubExecutor) Transform(ctx context.Context, req transform.Request) error {
	s.got = req
	if s.err != nil {
		return s.err
	}
	if s.output == nil {
		return nil
	}
	return os.WriteFile(req.TargetFile, s.output, 0o644)
}

func (s *stubExecutor) Check(ctx context.Context) (string, error) { return s.id + " 1.0", nil }

type fixture struct {
	server   *Server
	db       *db.DB
	renderer *stubExecutor
	text     *stubExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := engine.LoadConfig("")
	require.NoError(t, err)

	renderer := &stubExecutor{id: "pdfrenderer", output: []byte("\x89PNG")}
	text := &stubExecutor{id: "textextract", output: []byte("hello")}
	m := metrics.New()
	eng, err := engine.New(cfg, m, renderer, text)
	require.NoError(t, err)

	database, err := db.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s := NewServer(Options{Engine: eng, DB: database, Metrics: m, TempDir: t.TempDir(), Version: "test"})
	return &fixture{server: s, db: database, renderer: renderer, text: text}
}

func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transform", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Router.ServeHTTP(rec, req)
	return rec
}

func TestTransformPDFToPNG(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"quick.pdf", "quickCS3.ai", "quickCS5.ai"} {
		t.Run(name, func(t *testing.T) {
			source := "application/pdf"
			if filepath.Ext(name) == ".ai" {
				source = "application/illustrator"
			}
			rec := f.do(multipartRequest(t, name, []byte("%PDF-1.4"), map[string]string{
				"sourceMimetype": source,
				"targetMimetype": "image/png",
				"page":           "0",
				"width":          "100",
				"unused":         "",
			}))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "\x89PNG", rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "transform.png")
			assert.Equal(t, map[string]string{"page": "0", "width": "100"}, f.renderer.got.Options)
		})
	}

	rows, total, err := f.db.ListTransformLogs(10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "pdfrenderer", rows[0].Transformer)
	assert.Equal(t, db.StatusSuccess, rows[0].Status)
	assert.Equal(t, "page=0 width=100", rows[0].Options)
	assert.Equal(t, int64(4), rows[0].TargetSize)
}

func TestTransformErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		output     []byte
		fields     map[string]string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "tool failure",
			err:        transform.ToolFailure("pdfrenderer transform", "bad page", nil),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "bad page",
		},
		{
			name:       "timeout",
			err:        transform.Timeoutf("pdfrenderer transform", "too slow"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "validation",
			err:        transform.Validationf("pdfrenderer options", "bad width"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty output",
			output:     []byte{},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Transformer failed to create an output file",
		},
		{
			name:       "unsupported pair",
			fields:     map[string]string{"sourceMimetype": "video/mp4", "targetMimetype": "image/png"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "no transformer",
		},
		{
			name:       "missing mimetype",
			fields:     map[string]string{"sourceMimetype": "application/pdf"},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.renderer.err = tt.err
			if tt.output != nil {
				f.renderer.output = tt.output
			}
			fields := tt.fields
			if fields == nil {
				fields = map[string]string{"sourceMimetype": "application/pdf", "targetMimetype": "image/png"}
			}

			rec := f.do(multipartRequest(t, "quick.pdf", []byte("%PDF"), fields))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			if tt.wantMsg != "" {
				assert.Contains(t, body["message"], tt.wantMsg)
			}

			rows, _, err := f.db.ListTransformLogs(1, 0, db.StatusFailed)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.wantStatus, rows[0].StatusCode)
		})
	}
}

func TestTransformMissingFile(t *testing.T) {
	f := newFixture(t)
	rec := f.do(multipartRequest(t, "", nil, map[string]string{"sourceMimetype": "application/pdf", "targetMimetype": "image/png"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformMetadataExtract(t *testing.T) {
	f := newFixture(t)
	f.text.output = []byte(`{"cm:title":"Quick"}`)

	rec := f.do(multipartRequest(t, "quick.pdf", []byte("%PDF"), map[string]string{
		"sourceMimetype": "application/pdf",
		"targetMimetype": transform.MimetypeMetadataExtract,
		"transformName":  "PdfBoxMetadataExtractor",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cm:title":"Quick"}`, rec.Body.String())
	assert.Equal(t, "PdfBoxMetadataExtractor", f.text.got.TransformName)
	assert.Equal(t, ".json", filepath.Ext(f.text.got.TargetFile))
	assert.NotContains(t, f.text.got.Options, "transformName")
}

func TestStatusEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, "tengine test", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pdfrenderer 1.0")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/transform/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transformerName":"pdfrenderer"`)
	assert.NotContains(t, rec.Body.String(), `"executor"`)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/log/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(transform.Lookupf("x", "y")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(transform.Configurationf("x", nil, "y")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(os.ErrPermission))
}

type stubWatch struct {
	paused      bool
	scans       int
	pausedScans int
}

func (w *stubWatch) Pause()       { w.paused = true }
func (w *stubWatch) Resume()      { w.paused = false }
func (w *stubWatch) Paused() bool { return w.paused }
func (w *stubWatch) ScanAll() int {
	w.scans++
	if w.paused {
		w.pausedScans++
	}
	return 3
}

func TestWatchEndpoints(t *testing.T) {
	cfg, err := engine.LoadConfig("")
	require.NoError(t, err)
	eng, err := engine.New(cfg, nil, &stubExecutor{id: "pdfrenderer"}, &stubExecutor{id: "textextract"})
	require.NoError(t, err)
	w := &stubWatch{}
	f := &fixture{server: NewServer(Options{Engine: eng, Watch: w, TempDir: t.TempDir()})}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/watch", nil))
	assert.JSONEq(t, `{"watcher_state":"running"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodPost, "/watch/rescan", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queued":3}`, rec.Body.String())
	assert.Equal(t, 1, w.pausedScans)
	assert.False(t, w.Paused())

	rec = f.do(httptest.NewRequest(http.MethodPost, "/watch/pause", nil))
	assert.JSONEq(t, `{"watcher_state":"paused"}`, rec.Body.String())

	// A paused watcher stays paused after a rescan.
	f.do(httptest.NewRequest(http.MethodPost, "/watch/rescan", nil))
	assert.Equal(t, 2, w.scans)
	assert.True(t, w.Paused())

	rec = f.do(httptest.NewRequest(http.MethodPost, "/watch/resume", nil))
	assert.JSONEq(t, `{"watcher_state":"running"}`, rec.Body.String())
}

func TestWatchEndpointsAbsentWithoutWatcher(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/watch/rescan", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
