// Package mcp exposes airplane construction, analysis and documentation
// search as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/aerolab/internal/logger"
	"github.com/kailas-cloud/aerolab/internal/usecase/airplane"
	"github.com/kailas-cloud/aerolab/internal/usecase/docindex"
	"github.com/kailas-cloud/aerolab/internal/version"
)

// ServerName identifies the tool server to clients.
const ServerName = "aerolab"

// Tool names.
const (
	ToolCreateAirplane  = "create_airplane"
	ToolAnalyzeAirplane = "analyze_airplane"
	ToolSearchDocs      = "search_docs"
)

// Airplanes creates and analyzes airplanes.
type Airplanes interface {
	Create(ctx context.Context, def airplane.Definition) (airplane.Summary, error)
	Analyze(ctx context.Context, req airplane.AnalyzeRequest) (airplane.Analysis, error)
}

// DocSearcher finds documentation relevant to a query.
type DocSearcher interface {
	Search(ctx context.Context, query string, k int) ([]docindex.Match, error)
}

// CreateAirplaneInput are the create_airplane arguments.
type CreateAirplaneInput struct {
	Span               float64   `json:"span" jsonschema:"Total span of the wing [meters]"`
	YsOverHalfSpan     []float64 `json:"ys_over_half_span" jsonschema:"Array of y-locations of each cross-section, normalized by half-span (0 to 1)"`
	Chords             []float64 `json:"chords" jsonschema:"Array of chord lengths at each cross-section [meters]"`
	Twists             []float64 `json:"twists" jsonschema:"Array of twist angles at each cross-section [degrees]"`
	Offsets            []float64 `json:"offsets,omitempty" jsonschema:"Array of x-offsets of leading edge at each cross-section [meters]. Defaults to -chords/4"`
	HeaveDisplacements []float64 `json:"heave_displacements,omitempty" jsonschema:"Array of vertical displacements of the shear center at each cross-section [meters]"`
	TwistDisplacements []float64 `json:"twist_displacements,omitempty" jsonschema:"Array of twist displacements at each cross-section [degrees]"`
	OutputFilename     string    `json:"output_filename,omitempty" jsonschema:"Name of the output JSON file. Defaults to airplane.json"`
}

// AnalyzeAirplaneInput are the analyze_airplane arguments.
type AnalyzeAirplaneInput struct {
	Path      string   `json:"path,omitempty" jsonschema:"Saved airplane file. Defaults to airplane.json"`
	Velocity  *float64 `json:"velocity,omitempty" jsonschema:"Freestream velocity [m/s]. Defaults to 10"`
	Alpha     *float64 `json:"alpha,omitempty" jsonschema:"Angle of attack [degrees]. Defaults to 5"`
	Chordwise *int     `json:"chordwise,omitempty" jsonschema:"Chordwise panels per strip. Defaults to 1"`
	Spanwise  *int     `json:"spanwise,omitempty" jsonschema:"Spanwise panels between stations. Defaults to 1"`
}

// SearchDocsInput are the search_docs arguments.
type SearchDocsInput struct {
	Query string `json:"query" jsonschema:"What to look up in the aerodynamics library documentation"`
	K     int    `json:"k,omitempty" jsonschema:"Number of documents to return. Defaults to 4"`
}

// Server wraps the MCP server and its tool handlers.
type Server struct {
	planes Airplanes
	docs   DocSearcher
	logger *zap.Logger
	srv    *mcpsdk.Server
}

// NewServer registers the tools. docs may be nil, in which case search_docs
// is not offered.
func NewServer(planes Airplanes, docs DocSearcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{planes: planes, docs: docs, logger: logger}
	s.srv = mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: version.Version}, nil)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        ToolCreateAirplane,
		Description: "Create an airplane with a single symmetric wing from per-station arrays and save it as JSON.",
	}, s.createAirplane)
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        ToolAnalyzeAirplane,
		Description: "Load a saved airplane and compute CL, CD, Cm and L/D with the vortex lattice method.",
	}, s.analyzeAirplane)
	if docs != nil {
		mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
			Name:        ToolSearchDocs,
			Description: "Search the indexed aerodynamics library documentation.",
		}, s.searchDocs)
	}
	return s
}

// MCP returns the underlying server, for callers that bring their own
// transport.
func (s *Server) MCP() *mcpsdk.Server { return s.srv }

// ServeStdio runs the server over stdin/stdout until the client disconnects
// or ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("transport", "stdio"))
	if err := s.srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func text(msg string, isErr bool) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: isErr,
	}
}

func (s *Server) createAirplane(
	ctx context.Context, _ *mcpsdk.CallToolRequest, in CreateAirplaneInput,
) (*mcpsdk.CallToolResult, any, error) {
	logger := s.logger.With(zap.String("tool", ToolCreateAirplane))
	sum, err := s.planes.Create(logpkg.IntoContext(ctx, logger), airplane.Definition{
		Span:               in.Span,
		YsOverHalfSpan:     in.YsOverHalfSpan,
		Chords:             in.Chords,
		Twists:             in.Twists,
		Offsets:            in.Offsets,
		HeaveDisplacements: in.HeaveDisplacements,
		TwistDisplacements: in.TwistDisplacements,
		OutputFilename:     in.OutputFilename,
	})
	if err != nil {
		logger.Warn("tool failed", zap.Error(err))
		return text(airplane.ErrorText(err), true), nil, nil
	}
	return text(sum.String(), false), nil, nil
}

func (s *Server) analyzeAirplane(
	ctx context.Context, _ *mcpsdk.CallToolRequest, in AnalyzeAirplaneInput,
) (*mcpsdk.CallToolResult, any, error) {
	logger := s.logger.With(zap.String("tool", ToolAnalyzeAirplane))
	req := airplane.DefaultAnalyzeRequest(in.Path)
	if in.Velocity != nil {
		req.Velocity = *in.Velocity
	}
	if in.Alpha != nil {
		req.Alpha = *in.Alpha
	}
	if in.Chordwise != nil {
		req.Resolution.Chordwise = *in.Chordwise
	}
	if in.Spanwise != nil {
		req.Resolution.Spanwise = *in.Spanwise
	}
	if req.Resolution.Chordwise < 1 || req.Resolution.Spanwise < 1 {
		return text("Error analyzing airplane: panel counts must be at least 1", true), nil, nil
	}

	a, err := s.planes.Analyze(logpkg.IntoContext(ctx, logger), req)
	if err != nil {
		logger.Warn("tool failed", zap.Error(err))
		return text("Error analyzing airplane: "+err.Error(), true), nil, nil
	}
	return text(a.String(), false), nil, nil
}

func (s *Server) searchDocs(
	ctx context.Context, _ *mcpsdk.CallToolRequest, in SearchDocsInput,
) (*mcpsdk.CallToolResult, any, error) {
	matches, err := s.docs.Search(ctx, in.Query, in.K)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", ToolSearchDocs), zap.Error(err))
		return text("Error searching docs: "+err.Error(), true), nil, nil
	}
	if len(matches) == 0 {
		return text("No matching documentation found.", false), nil, nil
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "%s (%s, score %.3f)\n\n%s", m.Document.Metadata.FullName, m.Document.Metadata.Type, m.Score, m.Document.Content)
	}
	return text(b.String(), false), nil, nil
}
