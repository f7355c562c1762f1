// Package mcp exposes documentation generation and quality analysis as MCP
// tools so AI assistants can call them directly.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"tekshila/internal/logging"
	"tekshila/internal/model"
	"tekshila/internal/pipeline"
	"tekshila/internal/quality"
	"tekshila/internal/state"
	"tekshila/internal/upload"
)

// SessionFunc returns a fresh store and pipeline. Every tool call gets its own.
type SessionFunc func() (*state.Store, *pipeline.Pipeline)

// Server runs the tools over the action pipeline.
type Server struct {
	server  *gomcp.Server
	session SessionFunc
	log     *slog.Logger
}

// NewServer returns a server whose tools run on sessions from session.
func NewServer(session SessionFunc, version string, logger *slog.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		session: session,
		log:     logging.Component(logger, "mcp"),
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "tekshila", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves on stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server for tests.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type sourceFile struct {
	Name    string `json:"name" jsonschema:"file name including extension, e.g. main.go or pkg/util.py"`
	Content string `json:"content" jsonschema:"the file contents"`
}

type generateInput struct {
	Files        []sourceFile `json:"files" jsonschema:"required,source files to document"`
	Purpose      string       `json:"purpose,omitempty" jsonschema:"readme (default) or comments"`
	ProjectName  string       `json:"project_name,omitempty" jsonschema:"project name, required for readme"`
	Instructions string       `json:"instructions,omitempty" jsonschema:"optional extra instructions for the generator"`
}

type artifactFile struct {
	Path string `json:"path"`
	Body string `json:"body"`
}

type generateOutput struct {
	Kind  string         `json:"kind"`
	Body  string         `json:"body"`
	Files []artifactFile `json:"files"`
}

type analyzeInput struct {
	File sourceFile `json:"file" jsonschema:"required,the file to analyze"`
}

type issueOutput struct {
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Category string `json:"category,omitempty"`
}

type analyzeOutput struct {
	File        string            `json:"file"`
	Summary     string            `json:"summary"`
	Grade       string            `json:"grade"`
	Metrics     map[string]string `json:"metrics,omitempty"`
	Issues      []issueOutput     `json:"issues"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_documentation",
		Description: "Generate a README for a set of source files, or return each file with explanatory comments added (purpose=comments).",
	}, s.handleGenerate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "analyze_quality",
		Description: "Analyze one source file for quality issues. Returns a summary, grade, metrics, issues and suggestions.",
	}, s.handleAnalyze)
}

// --- Tool handlers ---

func (s *Server) handleGenerate(ctx context.Context, _ *gomcp.CallToolRequest, input generateInput) (*gomcp.CallToolResult, generateOutput, error) {
	purpose, err := model.ParsePurpose(input.Purpose)
	if err != nil {
		return errorResult(err.Error()), generateOutput{}, nil
	}
	files, skipped := toFileRefs(input.Files)

	store, p := s.session()
	store.SetPurpose(purpose)
	store.AddFiles(files)
	if err := p.Generate(ctx, pipeline.GenerateInput{ProjectName: input.ProjectName, Instructions: input.Instructions}); err != nil {
		return errorResult(withSkipped(err.Error(), skipped)), generateOutput{}, nil
	}

	a := store.Get().Artifact
	out := generateOutput{Kind: a.Kind.String(), Body: a.Body, Files: make([]artifactFile, len(a.Files))}
	for i, f := range a.Files {
		out.Files[i] = artifactFile{Path: f.Path, Body: f.Body}
	}
	s.log.Info("tool call", slog.String("tool", "generate_documentation"), slog.Int("files", len(files)))
	return nil, out, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *gomcp.CallToolRequest, input analyzeInput) (*gomcp.CallToolResult, analyzeOutput, error) {
	files, skipped := toFileRefs([]sourceFile{input.File})
	if len(files) == 0 {
		return errorResult(withSkipped("no file", skipped)), analyzeOutput{}, nil
	}

	store, p := s.session()
	store.SetQualityFile(files[0])
	if err := p.Analyze(ctx); err != nil {
		return errorResult(err.Error()), analyzeOutput{}, nil
	}

	r := store.Get().Report
	out := analyzeOutput{
		File:        r.File,
		Summary:     r.Summary,
		Grade:       quality.Grade(quality.Count(r.Issues)),
		Metrics:     r.Metrics,
		Issues:      make([]issueOutput, len(r.Issues)),
		Suggestions: r.Suggestions,
	}
	for i, is := range r.Issues {
		out.Issues[i] = issueOutput{Line: is.Line, Message: is.Message, Severity: string(is.Severity), Category: is.Category}
	}
	s.log.Info("tool call", slog.String("tool", "analyze_quality"), slog.String("file", r.File))
	return nil, out, nil
}

// toFileRefs keeps files with a supported extension.
func toFileRefs(in []sourceFile) (files []model.FileRef, skipped []string) {
	for _, f := range in {
		if !upload.Supported(f.Name) {
			skipped = append(skipped, f.Name+": unsupported file type")
			continue
		}
		files = append(files, upload.FromBytes(f.Name, []byte(f.Content)))
	}
	return files, skipped
}

func withSkipped(msg string, skipped []string) string {
	if len(skipped) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (skipped %v)", msg, skipped)
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
