package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"mindwell-screening/internal/core"
	"mindwell-screening/internal/metrics"
	"mindwell-screening/pkg"
)

const (
	// maxBodyBytes caps the screening request body.
	maxBodyBytes = 64 << 10

	// DefaultAlertThreshold is the score at or above which a stored screening
	// triggers a notification.
	DefaultAlertThreshold = 8

	// FallbackValidation is spoken to the patient when no backend could
	// assess the summary. It makes no claim about risk.
	FallbackValidation = "Thank you for sharing that with me. I wasn't able to finish reviewing everything " +
		"just now, but what you've told me matters. If you feel unsafe or are thinking about harming " +
		"yourself, please reach out to a crisis helpline right away."

	unavailablePrefix = "Assessment unavailable: "
)

// Assessor produces a structured assessment for a screening request.
type Assessor interface {
	Assess(ctx context.Context, req pkg.AssessmentRequest) (pkg.AssessmentResult, error)
}

// ScreeningStore persists assessed screenings and returns the record ID.
type ScreeningStore interface {
	SaveScreening(ctx context.Context, s *pkg.Screening) (string, error)
}

// AlertNotifier announces a high-risk screening by record ID.
type AlertNotifier interface {
	Notify(ctx context.Context, screeningID string) error
}

// Server bundles together the dependencies required by HTTP handlers. It
// implements http.Handler; Handler adds the CORS layer on top.
type Server struct {
	Assessor       Assessor
	Store          ScreeningStore
	Notifier       AlertNotifier
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Source         string
	AlertThreshold int
	Now            func() time.Time
}

// NewServer constructs a Server. store and notifier may be nil, in which case
// screenings are assessed but not recorded.
func NewServer(assessor Assessor, store ScreeningStore, notifier AlertNotifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Assessor:       assessor,
		Store:          store,
		Notifier:       notifier,
		Logger:         logger,
		Source:         "ElevenLabs Agent",
		AlertThreshold: DefaultAlertThreshold,
		Now:            time.Now,
	}
}

// Handler wraps the server with permissive CORS handling so browser and
// voice-agent clients can call it cross-origin. Preflight requests are
// answered by the CORS layer with an empty body.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	})
	return c.Handler(s)
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/submit_screening_report":
		s.handleSubmitScreening(w, r)
	case "/get_helplines":
		s.handleHelplines(w, r)
	case "/health":
		_, _ = io.WriteString(w, "OK")
	case "/metrics":
		if s.MetricsHandler == nil {
			http.NotFound(w, r)
			return
		}
		s.MetricsHandler.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleSubmitScreening assesses a screening summary and records the result.
// Transport problems are 4xx; a failed assessment is still a 200 whose
// result is marked assessed=false and carries no clinical claim.
func (s *Server) handleSubmitScreening(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, pkg.ScreeningResponse{Error: "method not allowed"})
		return
	}
	ctx := r.Context()

	req, errMsg := decodeScreeningRequest(w, r)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, pkg.ScreeningResponse{Error: errMsg})
		return
	}

	result, err := s.Assessor.Assess(ctx, req)
	if err != nil {
		reason := err.Error()
		var failure *core.ExtractionFailure
		if errors.As(err, &failure) {
			reason = failure.Reason
		}
		writeJSON(w, http.StatusOK, pkg.ScreeningResponse{
			Success: true,
			Result: &pkg.ScreeningResult{
				Score:      0,
				Validation: FallbackValidation,
				Reasoning:  unavailablePrefix + reason,
				Assessed:   false,
			},
		})
		return
	}

	recordID := s.record(ctx, req, result)
	writeJSON(w, http.StatusOK, pkg.ScreeningResponse{
		Success: true,
		Result: &pkg.ScreeningResult{
			Score:      result.Score,
			Validation: result.Validation,
			Reasoning:  result.Reasoning,
			RecordID:   recordID,
			Assessed:   true,
		},
	})
}

// decodeScreeningRequest reads and validates the request body. It returns a
// client-facing message when the body is unusable.
func decodeScreeningRequest(w http.ResponseWriter, r *http.Request) (pkg.AssessmentRequest, string) {
	var body pkg.ScreeningRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return pkg.AssessmentRequest{}, "No data"
		case errors.As(err, &tooLarge):
			return pkg.AssessmentRequest{}, "request body too large"
		default:
			return pkg.AssessmentRequest{}, "invalid JSON body"
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return pkg.AssessmentRequest{}, "invalid JSON body"
	}
	if strings.TrimSpace(body.Summary) == "" {
		return pkg.AssessmentRequest{}, "summary is required"
	}

	req := pkg.AssessmentRequest{Summary: body.Summary}
	if body.RiskScore != nil {
		score := *body.RiskScore
		if score != math.Trunc(score) || score < 0 || score > 10 {
			return pkg.AssessmentRequest{}, "risk_score must be an integer between 0 and 10"
		}
		agentScore := int(score)
		req.AgentRiskScore = &agentScore
		req.AgentValidation = body.Validation
	}
	return req, ""
}

// record persists an assessed screening and raises an alert for high scores.
// Failures are logged and never fail the request.
func (s *Server) record(ctx context.Context, req pkg.AssessmentRequest, result pkg.AssessmentResult) *string {
	if s.Store == nil {
		s.Metrics.ObserveStore("skipped")
		return nil
	}
	screening := &pkg.Screening{
		RiskScore:        result.Score,
		AgentRiskScore:   req.AgentRiskScore,
		Summary:          req.Summary,
		Reasoning:        result.Reasoning,
		Validation:       result.Validation,
		GeminiImpression: result.Reasoning,
		Model:            result.SourceBackend,
		Source:           s.Source,
		Mode:             req.Mode(),
		Timestamp:        s.Now().UTC(),
	}
	id, err := s.Store.SaveScreening(ctx, screening)
	if err != nil {
		s.Metrics.ObserveStore("failed")
		s.Logger.Error("failed to save screening", zap.Error(err), zap.String("model", result.SourceBackend))
		return nil
	}
	s.Metrics.ObserveStore("stored")

	if s.Notifier != nil && result.Score >= s.AlertThreshold {
		if err := s.Notifier.Notify(ctx, id); err != nil {
			s.Logger.Warn("failed to send high-risk alert", zap.Error(err), zap.String("screening_id", id))
		}
	}
	return &id
}

// handleHelplines returns the static crisis helpline list.
func (s *Server) handleHelplines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, pkg.ScreeningResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, pkg.HelplinesResponse{Helplines: core.Helplines()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
