// Package chi serves the airplane, analysis and documentation search API
// over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain/document"
	logpkg "github.com/kailas-cloud/aerolab/internal/logger"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/usecase/airplane"
	"github.com/kailas-cloud/aerolab/internal/usecase/docindex"
	healthuc "github.com/kailas-cloud/aerolab/internal/usecase/health"
	"github.com/kailas-cloud/aerolab/internal/usecase/usage"
)

const maxBodyBytes = 1 << 20

// Airplanes creates and analyzes airplanes.
type Airplanes interface {
	Create(ctx context.Context, def airplane.Definition) (airplane.Summary, error)
	Analyze(ctx context.Context, req airplane.AnalyzeRequest) (airplane.Analysis, error)
}

// DocSearcher finds documentation relevant to a query.
type DocSearcher interface {
	Search(ctx context.Context, query string, k int) ([]docindex.Match, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period usage.Period) usage.Report
}

// Server holds the HTTP handlers.
type Server struct {
	planes        Airplanes
	docs          DocSearcher
	health        HealthChecker
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. docs may be nil when no index is
// configured; search then answers 501.
func NewServer(planes Airplanes, docs DocSearcher, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		planes:        planes,
		docs:          docs,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// Router builds the full middleware stack and routes. Health and metrics
// stay reachable without an API key.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := gochi.NewRouter()
	r.Use(Recoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(AccessLog(s.logger))
	r.Use(RequireAPIKey(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r gochi.Router) {
		r.Post("/airplanes", s.CreateAirplane)
		r.Post("/analyses", s.AnalyzeAirplane)
		r.Get("/docs/search", s.SearchDocs)
		r.Get("/usage", s.GetUsage)
	})
	return r
}

// CreateAirplaneRequest is the POST /v1/airplanes body.
type CreateAirplaneRequest struct {
	Span               float64   `json:"span"`
	YsOverHalfSpan     []float64 `json:"ys_over_half_span"`
	Chords             []float64 `json:"chords"`
	Twists             []float64 `json:"twists"`
	Offsets            []float64 `json:"offsets,omitempty"`
	HeaveDisplacements []float64 `json:"heave_displacements,omitempty"`
	TwistDisplacements []float64 `json:"twist_displacements,omitempty"`
	OutputFilename     string    `json:"output_filename,omitempty"`
}

// RangeResponse is a min/max pair.
type RangeResponse struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AirplaneResponse describes a created airplane.
type AirplaneResponse struct {
	Path              string         `json:"path"`
	Span              float64        `json:"span"`
	Stations          int            `json:"stations"`
	Chord             RangeResponse  `json:"chord"`
	Twist             RangeResponse  `json:"twist"`
	Heave             *RangeResponse `json:"heave_displacement,omitempty"`
	TwistDisplacement *RangeResponse `json:"twist_displacement,omitempty"`
	Summary           string         `json:"summary"`
}

func rangeResponse(r *airplane.Range) *RangeResponse {
	if r == nil {
		return nil
	}
	return &RangeResponse{Min: r.Min, Max: r.Max}
}

// CreateAirplane handles POST /v1/airplanes.
func (s *Server) CreateAirplane(w http.ResponseWriter, r *http.Request) {
	var req CreateAirplaneRequest
	if !s.decode(w, r, &req) {
		return
	}

	sum, err := s.planes.Create(r.Context(), airplane.Definition{
		Span:               req.Span,
		YsOverHalfSpan:     req.YsOverHalfSpan,
		Chords:             req.Chords,
		Twists:             req.Twists,
		Offsets:            req.Offsets,
		HeaveDisplacements: req.HeaveDisplacements,
		TwistDisplacements: req.TwistDisplacements,
		OutputFilename:     req.OutputFilename,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AirplaneResponse{
		Path:              sum.Path,
		Span:              sum.Span,
		Stations:          sum.Stations,
		Chord:             RangeResponse{Min: sum.Chord.Min, Max: sum.Chord.Max},
		Twist:             RangeResponse{Min: sum.Twist.Min, Max: sum.Twist.Max},
		Heave:             rangeResponse(sum.Heave),
		TwistDisplacement: rangeResponse(sum.TwistDisp),
		Summary:           sum.String(),
	})
}

// AnalyzeRequest is the POST /v1/analyses body. Omitted fields take the
// analysis defaults.
type AnalyzeRequest struct {
	Path      string   `json:"path,omitempty"`
	Velocity  *float64 `json:"velocity,omitempty"`
	Alpha     *float64 `json:"alpha,omitempty"`
	Chordwise *int     `json:"chordwise,omitempty"`
	Spanwise  *int     `json:"spanwise,omitempty"`
}

// AnalysisResponse carries the planform and the solved coefficients.
type AnalysisResponse struct {
	Path       string    `json:"path"`
	Chords     []float64 `json:"chords"`
	Stations   []float64 `json:"stations"`
	Area       float64   `json:"area"`
	Span       float64   `json:"span"`
	CL         float64   `json:"cl"`
	CD         float64   `json:"cd"`
	Cm         float64   `json:"cm"`
	LiftToDrag float64   `json:"lift_to_drag"`
}

// AnalyzeAirplane handles POST /v1/analyses.
func (s *Server) AnalyzeAirplane(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if !s.decode(w, r, &body) {
		return
	}

	req := airplane.DefaultAnalyzeRequest(body.Path)
	if body.Velocity != nil {
		req.Velocity = *body.Velocity
	}
	if body.Alpha != nil {
		req.Alpha = *body.Alpha
	}
	if body.Chordwise != nil {
		req.Resolution.Chordwise = *body.Chordwise
	}
	if body.Spanwise != nil {
		req.Resolution.Spanwise = *body.Spanwise
	}
	if req.Resolution.Chordwise < 1 || req.Resolution.Spanwise < 1 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "chordwise and spanwise must be at least 1")
		return
	}

	a, err := s.planes.Analyze(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{
		Path:       a.Path,
		Chords:     a.Chords,
		Stations:   a.Stations,
		Area:       a.Area,
		Span:       a.Span,
		CL:         a.Aero.CL,
		CD:         a.Aero.CD,
		Cm:         a.Aero.Cm,
		LiftToDrag: a.Aero.LiftToDrag(),
	})
}

// MatchResponse is one search hit.
type MatchResponse struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Content  string            `json:"content"`
	Metadata document.Metadata `json:"metadata"`
}

// SearchResponse is the GET /v1/docs/search body.
type SearchResponse struct {
	Matches []MatchResponse `json:"matches"`
}

// SearchDocs handles GET /v1/docs/search?q=...&k=...
func (s *Server) SearchDocs(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "documentation index is not configured")
		return
	}

	q := r.URL.Query()
	k := 0
	if raw := q.Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be a positive integer")
			return
		}
		k = n
	}

	matches, err := s.docs.Search(r.Context(), q.Get("q"), k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SearchResponse{Matches: make([]MatchResponse, len(matches))}
	for i, m := range matches {
		resp.Matches[i] = MatchResponse{
			ID:       m.Document.ID,
			Score:    m.Score,
			Content:  m.Document.Content,
			Metadata: m.Document.Metadata,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUsage handles GET /v1/usage?period=day|month|total.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "usage reporting is not configured")
		return
	}
	period, err := usage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			logger.Warn("request rejected", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
