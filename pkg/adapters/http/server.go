// Package http serves the converters of a family registry over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/internal/presentation/describe"
	"github.com/aretw0/merits/internal/presentation/graph"
	"github.com/aretw0/merits/internal/sanitize"
	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/events"
	"github.com/aretw0/merits/pkg/family"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestIDHeader carries the request ID. An incoming value is kept.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes bounds request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 32 << 20

var errBadRequest = errors.New("bad request")

// Config wires the handler.
type Config struct {
	Families *family.Registry
	// Options are applied to every converter, e.g. the sequence store.
	Options []merits.Option
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server implements the routes declared in openapi.yaml.
type Server struct {
	families *family.Registry
	opts     []merits.Option
	logger   *slog.Logger
	maxBody  int64
}

type ctxKey struct{}

// NewHandler creates the HTTP handler. The embedded OpenAPI document is
// validated first.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Families == nil {
		return nil, errors.New("a family registry is required")
	}
	if _, err := GetSwagger(); err != nil {
		return nil, err
	}
	s := &Server{
		families: cfg.Families,
		opts:     cfg.Options,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(requestID, middleware.Recoverer)

	r.Get("/health", s.Health)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(RawSpec())
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/families", s.ListFamilies)
	r.Route("/families/{name}", func(r chi.Router) {
		r.Get("/", s.GetFamily)
		r.Get("/graph", s.GetFamilyGraph)
		r.Post("/parse", s.ParseMessage)
		r.Post("/csv", s.ConvertToCSV)
		r.Post("/edifact", s.ConvertToEdifact)
	})
	return r, nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the ID assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FamilySummary is one entry of GET /families.
type FamilySummary struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty"`
}

// FamilyDetail is the JSON form of GET /families/{name}.
type FamilyDetail struct {
	FamilySummary
	Paths []string `json:"paths"`
}

// CSVFiles carries CSV files keyed by file name.
type CSVFiles struct {
	Files     map[string]string `json:"files"`
	NextIDs   map[string]int    `json:"next_ids,omitempty"`
	RowCounts map[string]int    `json:"row_counts,omitempty"`
	Segments  int               `json:"segments,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Line      int    `json:"line,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListFamilies handles GET /families.
func (s *Server) ListFamilies(w http.ResponseWriter, r *http.Request) {
	out := make([]FamilySummary, 0)
	for _, f := range s.families.Families() {
		out = append(out, summarize(f))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFamily handles GET /families/{name}.
func (s *Server) GetFamily(w http.ResponseWriter, r *http.Request) {
	f, ok := s.family(w, r)
	if !ok {
		return
	}
	format, ok := s.format(w, r, "json", "markdown")
	if !ok {
		return
	}
	if format == "markdown" {
		md, err := describe.Markdown(f)
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, md)
		return
	}
	writeJSON(w, http.StatusOK, FamilyDetail{FamilySummary: summarize(f), Paths: f.Paths()})
}

// GetFamilyGraph handles GET /families/{name}/graph.
func (s *Server) GetFamilyGraph(w http.ResponseWriter, r *http.Request) {
	f, ok := s.family(w, r)
	if !ok {
		return
	}
	a, err := f.Automaton()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(a, nil))
}

// ParseMessage handles POST /families/{name}/parse.
func (s *Server) ParseMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.converter(w, r)
	if !ok {
		return
	}
	format, ok := s.format(w, r, "json", "ndjson", "cbor", "text")
	if !ok {
		return
	}
	text, ok := s.body(w, r)
	if !ok {
		return
	}

	rec := events.NewRecorder()
	if err := conv.Parse(r.Context(), text, rec); err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	evs := rec.Events()
	switch format {
	case "ndjson":
		w.Header().Set("Content-Type", "application/x-ndjson")
		if err := events.WriteNDJSON(w, evs); err != nil {
			s.logger.Error("parse response write failed", "error", err)
		}
	case "cbor":
		data, err := events.MarshalCBOR(evs)
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/cbor")
		w.Write(data)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, events.Text(evs))
	default:
		writeJSON(w, http.StatusOK, evs)
	}
}

// ConvertToCSV handles POST /families/{name}/csv.
func (s *Server) ConvertToCSV(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.converter(w, r)
	if !ok {
		return
	}
	format, ok := s.format(w, r, "json", "zip")
	if !ok {
		return
	}
	var key string
	if err := runtime.BindQueryParameter("form", true, false, "key", r.URL.Query(), &key); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	text, ok := s.body(w, r)
	if !ok {
		return
	}

	var (
		res *merits.CSVResult
		err error
	)
	if key != "" {
		res, err = conv.EdifactToCSVMulti(r.Context(), key, []string{text})
	} else {
		res, err = conv.EdifactToCSV(r.Context(), text)
	}
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	if format == "zip" {
		data, err := res.Zip()
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", conv.Family().Name+".zip"))
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, CSVFiles{
		Files:     res.Files,
		NextIDs:   res.NextIDs,
		RowCounts: res.RowCounts,
		Segments:  res.Segments,
	})
}

// ConvertToEdifact handles POST /families/{name}/edifact. The body is either
// a JSON CSVFiles document or a zip archive of CSV files.
func (s *Server) ConvertToEdifact(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.converter(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var files map[string]csvzip.Rows
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/zip") {
		files, err = csvzip.RowsFromZip(data)
	} else {
		var body CSVFiles
		if err = json.Unmarshal(data, &body); err == nil {
			files, err = csvzip.RowsFromStrings(body.Files)
		}
	}
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	text, err := conv.CSVToEdifact(r.Context(), files)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) family(w http.ResponseWriter, r *http.Request) (*family.Family, bool) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	f, err := s.families.Get(name)
	if err != nil {
		s.fail(w, r, http.StatusNotFound, err)
		return nil, false
	}
	return f, true
}

func (s *Server) converter(w http.ResponseWriter, r *http.Request) (*merits.Converter, bool) {
	f, ok := s.family(w, r)
	if !ok {
		return nil, false
	}
	opts := append(slices.Clone(s.opts), merits.WithLogger(s.logger.With("request_id", RequestID(r.Context()))))
	conv, err := merits.New(f, opts...)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return nil, false
	}
	return conv, true
}

func (s *Server) format(w http.ResponseWriter, r *http.Request, allowed ...string) (string, bool) {
	var format string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return "", false
	}
	if format == "" {
		return allowed[0], true
	}
	if !slices.Contains(allowed, format) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: format must be one of %s", errBadRequest, strings.Join(allowed, ", ")))
		return "", false
	}
	return format, true
}

func (s *Server) body(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return "", false
	}
	text, err := sanitize.Message(string(data))
	switch {
	case errors.Is(err, sanitize.ErrMessageTooLarge):
		s.fail(w, r, http.StatusRequestEntityTooLarge, err)
		return "", false
	case err != nil:
		s.fail(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return text, true
}

// statusFor maps a conversion failure to a status code. Anything the input
// can cause is unprocessable; a canceled request is unavailable.
func statusFor(err error) int {
	switch {
	case errors.Is(err, family.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := ErrorResponse{Error: err.Error(), RequestID: RequestID(r.Context())}
	var eerr *edifact.Error
	if errors.As(err, &eerr) {
		resp.Kind = eerr.Kind.String()
		resp.Line = eerr.Line
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "request_id", resp.RequestID, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "request_id", resp.RequestID, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func summarize(f *family.Family) FamilySummary {
	sum := FamilySummary{Name: f.Name, Version: f.Version, Description: f.Description}
	for _, t := range f.Tables {
		sum.Tables = append(sum.Tables, t.File)
	}
	return sum
}
