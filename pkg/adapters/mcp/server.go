// Package mcp exposes the converters of a family registry as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/merits"
	"github.com/aretw0/merits/internal/presentation/describe"
	"github.com/aretw0/merits/internal/presentation/graph"
	"github.com/aretw0/merits/internal/sanitize"
	"github.com/aretw0/merits/pkg/csvzip"
	"github.com/aretw0/merits/pkg/events"
	"github.com/aretw0/merits/pkg/family"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const familyURIPrefix = "merits://families/"

// FamilySummary describes one family.
type FamilySummary struct {
	Name        string   `json:"name" jsonschema_description:"Family name, e.g. TSDUPD"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty" jsonschema_description:"CSV files the family converts to"`
}

// FamilyList is the result of list_families.
type FamilyList struct {
	Families []FamilySummary `json:"families"`
}

// CSVFiles is the result of edifact_to_csv.
type CSVFiles struct {
	Files     map[string]string `json:"files" jsonschema_description:"CSV text keyed by file name"`
	NextIDs   map[string]int    `json:"next_ids,omitempty" jsonschema_description:"Next free row ID per table"`
	RowCounts map[string]int    `json:"row_counts,omitempty"`
	Segments  int               `json:"segments"`
}

type describeArgs struct {
	Name   string `json:"name"`
	Format string `json:"format,omitempty"`
}

type parseArgs struct {
	Family  string `json:"family"`
	Message string `json:"message"`
	Format  string `json:"format,omitempty"`
}

type toCSVArgs struct {
	Family  string `json:"family"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

type toEdifactArgs struct {
	Family string            `json:"family"`
	Files  map[string]string `json:"files"`
}

// Server wraps a family registry and exposes it as an MCP Server.
type Server struct {
	families  *family.Registry
	opts      []merits.Option
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. The options are applied to
// every converter.
func NewServer(families *family.Registry, logger *slog.Logger, opts ...merits.Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		families: families,
		opts:     opts,
		logger:   logger,
		mcpServer: server.NewMCPServer("merits-mcp", strings.TrimSpace(merits.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. to serve it on another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_families",
		mcp.WithDescription("List the message families the converter knows."),
		mcp.WithOutputSchema[FamilyList](),
	), mcp.NewStructuredToolHandler(s.handleListFamilies))

	s.mcpServer.AddTool(mcp.NewTool("describe_family",
		mcp.WithDescription("Describe a family: its segment tree and CSV tables as Markdown, or its automaton as a Mermaid graph."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Family name")),
		mcp.WithString("format", mcp.Enum("markdown", "mermaid"), mcp.Description("Output format (default markdown)")),
	), mcp.NewTypedToolHandler(s.handleDescribe))

	s.mcpServer.AddTool(mcp.NewTool("parse_edifact",
		mcp.WithDescription("Validate a message against a family and list its structural events."),
		mcp.WithString("family", mcp.Required(), mcp.Description("Family name")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message text")),
		mcp.WithString("format", mcp.Enum("text", "json"), mcp.Description("Output format (default text)")),
	), mcp.NewTypedToolHandler(s.handleParse))

	s.mcpServer.AddTool(mcp.NewTool("edifact_to_csv",
		mcp.WithDescription("Convert a message to one CSV file per table."),
		mcp.WithString("family", mcp.Required(), mcp.Description("Family name")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message text")),
		mcp.WithString("key", mcp.Description("Continue the row IDs saved under this sequence key")),
		mcp.WithOutputSchema[CSVFiles](),
	), mcp.NewStructuredToolHandler(s.handleToCSV))

	s.mcpServer.AddTool(mcp.NewTool("csv_to_edifact",
		mcp.WithDescription("Convert a set of CSV files back to a message."),
		mcp.WithString("family", mcp.Required(), mcp.Description("Family name")),
		mcp.WithObject("files", mcp.Required(), mcp.Description("CSV text keyed by file name")),
	), mcp.NewTypedToolHandler(s.handleToEdifact))
}

func (s *Server) handleListFamilies(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FamilyList, error) {
	list := FamilyList{Families: make([]FamilySummary, 0)}
	for _, f := range s.families.Families() {
		list.Families = append(list.Families, summarize(f))
	}
	return list, nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest, args describeArgs) (*mcp.CallToolResult, error) {
	f, err := s.families.Get(args.Name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch args.Format {
	case "", "markdown":
		md, err := describe.Markdown(f)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(md), nil
	case "mermaid":
		a, err := f.Automaton()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(graph.GenerateMermaid(a, nil)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", args.Format)), nil
	}
}

func (s *Server) handleParse(ctx context.Context, request mcp.CallToolRequest, args parseArgs) (*mcp.CallToolResult, error) {
	conv, err := s.converter(args.Family)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := sanitize.Message(args.Message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec := events.NewRecorder()
	if err := conv.Parse(ctx, msg, rec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}
	switch args.Format {
	case "", "text":
		return mcp.NewToolResultText(events.Text(rec.Events())), nil
	case "json":
		data, err := json.Marshal(rec.Events())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", args.Format)), nil
	}
}

func (s *Server) handleToCSV(ctx context.Context, request mcp.CallToolRequest, args toCSVArgs) (CSVFiles, error) {
	conv, err := s.converter(args.Family)
	if err != nil {
		return CSVFiles{}, err
	}
	msg, err := sanitize.Message(args.Message)
	if err != nil {
		return CSVFiles{}, err
	}
	var res *merits.CSVResult
	if args.Key != "" {
		res, err = conv.EdifactToCSVMulti(ctx, args.Key, []string{msg})
	} else {
		res, err = conv.EdifactToCSV(ctx, msg)
	}
	if err != nil {
		return CSVFiles{}, fmt.Errorf("conversion failed: %w", err)
	}
	return CSVFiles{Files: res.Files, NextIDs: res.NextIDs, RowCounts: res.RowCounts, Segments: res.Segments}, nil
}

func (s *Server) handleToEdifact(ctx context.Context, request mcp.CallToolRequest, args toEdifactArgs) (*mcp.CallToolResult, error) {
	conv, err := s.converter(args.Family)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := csvzip.RowsFromStrings(args.Files)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := conv.CSVToEdifact(ctx, files)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("conversion failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) converter(name string) (*merits.Converter, error) {
	if name == "" {
		return nil, errors.New("a family name is required")
	}
	f, err := s.families.Get(name)
	if err != nil {
		return nil, err
	}
	opts := append(slices.Clone(s.opts), merits.WithLogger(s.logger))
	return merits.New(f, opts...)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("merits://families", "Message families",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, _ := s.handleListFamilies(ctx, mcp.CallToolRequest{}, nil)
		data, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(familyURIPrefix+"{name}", "Family description",
		mcp.WithTemplateDescription("Markdown description of one message family"),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.readFamily)
}

func (s *Server) readFamily(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := strings.TrimPrefix(request.Params.URI, familyURIPrefix)
	f, err := s.families.Get(name)
	if err != nil {
		return nil, err
	}
	md, err := describe.Markdown(f)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", name, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "text/markdown", Text: md},
	}, nil
}

func summarize(f *family.Family) FamilySummary {
	sum := FamilySummary{Name: f.Name, Version: f.Version, Description: f.Description}
	for _, t := range f.Tables {
		sum.Tables = append(sum.Tables, t.File)
	}
	return sum
}
