package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwell-screening/internal/core"
	"mindwell-screening/internal/metrics"
	"mindwell-screening/pkg"
)

type fakeAssessor struct {
	result pkg.AssessmentResult
	err    error
	got    []pkg.AssessmentRequest
}

func (f *fakeAssessor) Assess(ctx context.Context, req pkg.AssessmentRequest) (pkg.AssessmentResult, error) {
	f.got = append(f.got, req)
	return f.result, f.err
}

type fakeStore struct {
	saved []*pkg.Screening
	err   error
}

func (f *fakeStore) SaveScreening(ctx context.Context, s *pkg.Screening) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	s.ID = "rec-1"
	f.saved = append(f.saved, s)
	return s.ID, nil
}

type fakeNotifier struct {
	ids []string
}

func (f *fakeNotifier) Notify(ctx context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

func newTestServer(a Assessor, store ScreeningStore, n AlertNotifier) *Server {
	s := NewServer(a, store, n, nil)
	s.Now = func() time.Time { return fixedNow }
	return s
}

func postScreening(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, pkg.ScreeningResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/submit_screening_report", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp pkg.ScreeningResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestSubmitScreening_Success(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{
		Score: 7, Reasoning: "sleep and appetite loss", Validation: "That sounds really hard.", SourceBackend: "gemini-2.0-flash",
	}}
	store := &fakeStore{}
	srv := newTestServer(assessor, store, nil)

	rec, resp := postScreening(t, srv, `{"summary":"I wake at 3AM and have not eaten in days."}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 7, resp.Result.Score)
	assert.Equal(t, "That sounds really hard.", resp.Result.Validation)
	assert.Equal(t, "sleep and appetite loss", resp.Result.Reasoning)
	assert.True(t, resp.Result.Assessed)
	require.NotNil(t, resp.Result.RecordID)
	assert.Equal(t, "rec-1", *resp.Result.RecordID)

	require.Len(t, assessor.got, 1)
	assert.Equal(t, pkg.ModeFresh, assessor.got[0].Mode())

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, 7, saved.RiskScore)
	assert.Nil(t, saved.AgentRiskScore)
	assert.Equal(t, "I wake at 3AM and have not eaten in days.", saved.Summary)
	assert.Equal(t, "sleep and appetite loss", saved.GeminiImpression)
	assert.Equal(t, "gemini-2.0-flash", saved.Model)
	assert.Equal(t, "ElevenLabs Agent", saved.Source)
	assert.Equal(t, time.UTC, saved.Timestamp.Location())
	assert.True(t, fixedNow.Equal(saved.Timestamp))
}

func TestSubmitScreening_WireFormat(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: 3, Reasoning: "r", Validation: "v", SourceBackend: "b"}}
	srv := newTestServer(assessor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/submit_screening_report", strings.NewReader(`{"summary":"s"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	result := raw["result"].(map[string]any)
	assert.Contains(t, result, "firestore_id")
	assert.Nil(t, result["firestore_id"])
	assert.Equal(t, float64(3), result["score"])
}

func TestSubmitScreening_SecondOpinion(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: 6, Reasoning: "r", Validation: "v", SourceBackend: "b"}}
	store := &fakeStore{}
	srv := newTestServer(assessor, store, nil)

	_, resp := postScreening(t, srv, `{"risk_score":8,"summary":"stopped sleeping for two days","validation":"hang in there"}`)
	require.True(t, resp.Success)
	assert.Equal(t, 6, resp.Result.Score)

	require.Len(t, assessor.got, 1)
	got := assessor.got[0]
	require.NotNil(t, got.AgentRiskScore)
	assert.Equal(t, 8, *got.AgentRiskScore)
	assert.Equal(t, "hang in there", got.AgentValidation)
	assert.Equal(t, pkg.ModeSecondOpinion, got.Mode())

	require.Len(t, store.saved, 1)
	assert.Equal(t, 6, store.saved[0].RiskScore)
	require.NotNil(t, store.saved[0].AgentRiskScore)
	assert.Equal(t, 8, *store.saved[0].AgentRiskScore)
	assert.Equal(t, pkg.ModeSecondOpinion, store.saved[0].Mode)
}

func TestSubmitScreening_Exhausted(t *testing.T) {
	assessor := &fakeAssessor{err: &core.ExtractionFailure{Reason: "gemini-flash-latest quota_exceeded: 429"}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	srv := newTestServer(assessor, store, notifier)

	rec, resp := postScreening(t, srv, `{"summary":"s"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	assert.Equal(t, 0, resp.Result.Score)
	assert.False(t, resp.Result.Assessed)
	assert.Equal(t, FallbackValidation, resp.Result.Validation)
	assert.Equal(t, "Assessment unavailable: gemini-flash-latest quota_exceeded: 429", resp.Result.Reasoning)
	assert.Nil(t, resp.Result.RecordID)
	assert.Empty(t, store.saved)
	assert.Empty(t, notifier.ids)
}

func TestSubmitScreening_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "No data"},
		{name: "malformed", body: `{"summary":`, want: "invalid JSON body"},
		{name: "wrong type", body: `{"summary":42}`, want: "invalid JSON body"},
		{name: "trailing garbage", body: `{"summary":"s"} garbage`, want: "invalid JSON body"},
		{name: "second value", body: `{"summary":"s"}{"summary":"t"}`, want: "invalid JSON body"},
		{name: "missing summary", body: `{}`, want: "summary is required"},
		{name: "blank summary", body: `{"summary":"   "}`, want: "summary is required"},
		{name: "fractional risk score", body: `{"summary":"s","risk_score":7.5}`, want: "risk_score must be an integer between 0 and 10"},
		{name: "risk score too high", body: `{"summary":"s","risk_score":11}`, want: "risk_score must be an integer between 0 and 10"},
		{name: "too large", body: `{"summary":"` + strings.Repeat("a", maxBodyBytes) + `"}`, want: "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessor := &fakeAssessor{}
			rec, resp := postScreening(t, newTestServer(assessor, nil, nil), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.want, resp.Error)
			assert.Nil(t, resp.Result)
			assert.Empty(t, assessor.got)
		})
	}
}

func TestSubmitScreening_TrailingWhitespaceAccepted(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: 2, Validation: "v", SourceBackend: "b"}}
	rec, resp := postScreening(t, newTestServer(assessor, nil, nil), "{\"summary\":\"s\"}\n  ")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.Len(t, assessor.got, 1)
}

func TestSubmitScreening_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeAssessor{}, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit_screening_report", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubmitScreening_StoreFailureStillSucceeds(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: 4, Reasoning: "r", Validation: "v", SourceBackend: "b"}}
	srv := newTestServer(assessor, &fakeStore{err: errors.New("connection refused")}, nil)

	rec, resp := postScreening(t, srv, `{"summary":"s"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Result.Assessed)
	assert.Equal(t, 4, resp.Result.Score)
	assert.Nil(t, resp.Result.RecordID)
}

func TestSubmitScreening_HighRiskAlert(t *testing.T) {
	tests := []struct {
		score  int
		alerts int
	}{
		{score: 7, alerts: 0},
		{score: 8, alerts: 1},
		{score: 10, alerts: 1},
	}
	for _, tt := range tests {
		assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: tt.score, Reasoning: "r", Validation: "v", SourceBackend: "b"}}
		notifier := &fakeNotifier{}
		srv := newTestServer(assessor, &fakeStore{}, notifier)

		postScreening(t, srv, `{"summary":"s"}`)
		assert.Len(t, notifier.ids, tt.alerts, "score %d", tt.score)
	}
}

func TestSubmitScreening_PassesBandingThrough(t *testing.T) {
	// A nihilism summary scored in the moderate-low band reaches the caller unchanged.
	assessor := &fakeAssessor{result: pkg.AssessmentResult{
		Score: 3, Reasoning: "intellectualised, denies plan", Validation: "Those are heavy questions.", SourceBackend: "b",
	}}
	_, resp := postScreening(t, newTestServer(assessor, nil, nil),
		`{"summary":"Cites Nietzsche and Cioran. Says death is the only logical conclusion but denies any plan."}`)
	assert.Equal(t, 3, resp.Result.Score)
	assert.Equal(t, "Those are heavy questions.", resp.Result.Validation)
}

func TestHelplines(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeAssessor{}, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get_helplines", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pkg.HelplinesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Helplines, 2)
	assert.Equal(t, "Tele-MANAS", resp.Helplines[0].Name)
	assert.Equal(t, "14416", resp.Helplines[0].Number)
	assert.Equal(t, "iCALL", resp.Helplines[1].Name)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&fakeAssessor{}, nil, nil).Handler(nil)

	req := httptest.NewRequest(http.MethodOptions, "/submit_screening_report", nil)
	req.Header.Set("Origin", "https://agent.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSSimpleRequest(t *testing.T) {
	assessor := &fakeAssessor{result: pkg.AssessmentResult{Score: 1, Reasoning: "r", Validation: "v", SourceBackend: "b"}}
	h := newTestServer(assessor, nil, nil).Handler([]string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/submit_screening_report", strings.NewReader(`{"summary":"s"}`))
	req.Header.Set("Origin", "https://agent.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(&fakeAssessor{result: pkg.AssessmentResult{Score: 1, Validation: "v", SourceBackend: "b"}}, nil, nil)
	srv.Metrics = metrics.MustNewMetrics(reg)
	srv.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())

	postScreening(t, srv, `{"summary":"s"}`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mindwell_screening_records_total{status="skipped"} 1`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
