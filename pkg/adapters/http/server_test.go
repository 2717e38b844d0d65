package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/internal/testutils"
	httpadapter "github.com/aretw0/merits/pkg/adapters/http"
	"github.com/aretw0/merits/pkg/adapters/memory"
	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/events"
	"github.com/aretw0/merits/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...merits.Option) http.Handler {
	t.Helper()
	h, err := httpadapter.NewHandler(httpadapter.Config{Families: testutils.Builtin(t), Options: opts})
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httpadapter.ErrorResponse {
	t.Helper()
	var resp httpadapter.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetSwagger(t *testing.T) {
	doc, err := httpadapter.GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/families/{name}/csv"))
}

func TestNewHandler_RequiresRegistry(t *testing.T) {
	_, err := httpadapter.NewHandler(httpadapter.Config{})
	assert.Error(t, err)
}

func TestHealth_RequestID(t *testing.T) {
	h := newHandler(t)

	w := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Len(t, w.Header().Get(httpadapter.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(httpadapter.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httpadapter.RequestIDHeader))
}

func TestOpenAPIDocument(t *testing.T) {
	w := do(newHandler(t), http.MethodGet, "/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, httpadapter.RawSpec(), w.Body.Bytes())
}

func TestFamilies(t *testing.T) {
	h := newHandler(t)

	w := do(h, http.MethodGet, "/families", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []httpadapter.FamilySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "SKDUPD", list[0].Name)
	assert.Equal(t, "TSDUPD", list[1].Name)
	assert.Contains(t, list[1].Tables, "TSDUPD_STOP.csv")

	tests := []struct {
		name     string
		target   string
		code     int
		contains string
	}{
		{"json", "/families/tsdupd", http.StatusOK, `"paths":[`},
		{"markdown", "/families/TSDUPD?format=markdown", http.StatusOK, "# TSDUPD"},
		{"graph", "/families/SKDUPD/graph", http.StatusOK, "graph TD"},
		{"unknown family", "/families/NOPE", http.StatusNotFound, "family not found"},
		{"unknown format", "/families/TSDUPD?format=pdf", http.StatusBadRequest, "format must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestParseMessage(t *testing.T) {
	h := newHandler(t)
	text := []byte(testutils.Sample(t, "tsdupd.edi"))

	w := do(h, http.MethodPost, "/families/TSDUPD/parse", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	var evs []events.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &evs))
	require.NotEmpty(t, evs)
	assert.Equal(t, events.KindSegment, evs[0].Kind)
	assert.Equal(t, "UIB", evs[0].Path)

	w = do(h, http.MethodPost, "/families/TSDUPD/parse?format=cbor", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/cbor", w.Header().Get("Content-Type"))
	fromCBOR, err := events.UnmarshalCBOR(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, evs, fromCBOR)

	w = do(h, http.MethodPost, "/families/TSDUPD/parse?format=ndjson", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(evs), strings.Count(w.Body.String(), "\n"))

	w = do(h, http.MethodPost, "/families/TSDUPD/parse?format=text", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, events.Text(evs), w.Body.String())
}

func TestParseMessage_StructuralError(t *testing.T) {
	w := do(newHandler(t), http.MethodPost, "/families/TSDUPD/parse", "text/plain", []byte("UIB+UNOC:3+X'\nALS+0+1'\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "structural", resp.Kind)
	assert.Positive(t, resp.Line)
	assert.Equal(t, w.Header().Get(httpadapter.RequestIDHeader), resp.RequestID)
}

func TestConvert_RoundTrip(t *testing.T) {
	h := newHandler(t)
	text := testutils.Sample(t, "skdupd.edi")

	w := do(h, http.MethodPost, "/families/SKDUPD/csv", "text/plain", []byte(text))
	require.Equal(t, http.StatusOK, w.Code)
	var files httpadapter.CSVFiles
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Len(t, files.Files, 5)
	assert.Equal(t, 3, files.RowCounts["SKDUPD_POR.csv"])
	assert.Equal(t, strings.Count(text, "\n"), files.Segments)

	body, err := json.Marshal(httpadapter.CSVFiles{Files: files.Files})
	require.NoError(t, err)
	w = do(h, http.MethodPost, "/families/SKDUPD/edifact", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, text, w.Body.String())
}

func TestConvert_Zip(t *testing.T) {
	h := newHandler(t)
	text := testutils.Sample(t, "tsdupd.edi")

	w := do(h, http.MethodPost, "/families/TSDUPD/csv?format=zip", "text/plain", []byte(text))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	rows, err := csvzip.RowsFromZip(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	w = do(h, http.MethodPost, "/families/TSDUPD/edifact", "application/zip", w.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, text, w.Body.String())
}

func TestConvert_Errors(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		code        int
	}{
		{"bad json", "/families/TSDUPD/edifact", "application/json", "{", http.StatusBadRequest},
		{"bad zip", "/families/TSDUPD/edifact", "application/zip", "not a zip", http.StatusBadRequest},
		{"missing files", "/families/TSDUPD/edifact", "application/json", `{"files":{}}`, http.StatusUnprocessableEntity},
		{"structural", "/families/TSDUPD/csv", "text/plain", "UIB+UNOC:3+X'\n", http.StatusUnprocessableEntity},
		{"unknown family", "/families/NOPE/csv", "text/plain", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.target, tt.contentType, []byte(tt.body))
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeError(t, w).Error)
		})
	}
}

func TestConvertToCSV_SequenceKey(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(t, merits.WithSequenceStore(store), merits.WithLocker(memory.NoopLocker{}))
	text := []byte(testutils.Sample(t, "tsdupd.edi"))

	w := do(h, http.MethodPost, "/families/TSDUPD/csv?key=daily", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(h, http.MethodPost, "/families/TSDUPD/csv?key=daily", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)

	var files httpadapter.CSVFiles
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Equal(t, 5, files.NextIDs["TSDUPD_STOP.csv"])

	// Without a key a store-backed converter runs on the start IDs.
	w = do(h, http.MethodPost, "/families/TSDUPD/csv", "text/plain", text)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Equal(t, 3, files.NextIDs["TSDUPD_STOP.csv"])
}

func TestMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	h, err := httpadapter.NewHandler(httpadapter.Config{
		Families: testutils.Builtin(t),
		Options:  []merits.Option{merits.WithMetrics(observability.NewMetrics(promReg))},
		Gatherer: promReg,
	})
	require.NoError(t, err)

	do(h, http.MethodPost, "/families/TSDUPD/parse", "text/plain", []byte(testutils.Sample(t, "tsdupd.edi")))
	w := do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `merits_conversions_total{direction="parse",family="TSDUPD",outcome="ok"} 1`)

	w = do(newHandler(t), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseMessage_Sanitized(t *testing.T) {
	h := newHandler(t)
	text := testutils.Sample(t, "tsdupd.edi")

	w := do(h, http.MethodPost, "/families/TSDUPD/parse?format=text", "text/plain", []byte("\uFEFF"+text))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodPost, "/families/TSDUPD/parse", "text/plain", []byte("\xbd\xb2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	t.Setenv("MERITS_MAX_MESSAGE_SIZE", "10")
	w = do(h, http.MethodPost, "/families/TSDUPD/parse", "text/plain", []byte(text))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
