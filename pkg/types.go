package pkg

import "time"

// AssessmentMode records which request shape produced a screening.
type AssessmentMode string

const (
	// ModeFresh means the agent supplied only a summary and the model scored it.
	ModeFresh AssessmentMode = "fresh"
	// ModeSecondOpinion means the agent supplied a preliminary score that the
	// model was asked to confirm or correct.
	ModeSecondOpinion AssessmentMode = "second_opinion"
)

// AssessmentRequest is the input to the extractor. AgentRiskScore and
// AgentValidation are only set for the older second-opinion request shape.
type AssessmentRequest struct {
	Summary         string
	AgentRiskScore  *int
	AgentValidation string
}

// Mode reports which request shape r represents.
func (r AssessmentRequest) Mode() AssessmentMode {
	if r.AgentRiskScore != nil {
		return ModeSecondOpinion
	}
	return ModeFresh
}

// AssessmentResult is the structured output recovered from a backend reply.
// Score is always an integer in [0,10] and Validation is never blank.
type AssessmentResult struct {
	Score         int    `json:"score"`
	Reasoning     string `json:"reasoning"`
	Validation    string `json:"validation"`
	SourceBackend string `json:"source_backend"`
}

// ScreeningRequest is the JSON body posted by the voice agent.
type ScreeningRequest struct {
	Summary    string   `json:"summary"`
	RiskScore  *float64 `json:"risk_score,omitempty"`
	Validation string   `json:"validation,omitempty"`
}

// ScreeningResult is the result object inside a screening response. RecordID
// keeps the firestore_id key the voice agent integration already reads.
type ScreeningResult struct {
	Score      int     `json:"score"`
	Validation string  `json:"validation"`
	Reasoning  string  `json:"reasoning,omitempty"`
	RecordID   *string `json:"firestore_id"`
	Assessed   bool    `json:"assessed"`
}

// ScreeningResponse is the envelope returned by the screening endpoint.
type ScreeningResponse struct {
	Success bool             `json:"success"`
	Result  *ScreeningResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Screening is the document persisted for every assessed request. Records are
// append-only.
type Screening struct {
	ID               string         `json:"id"`
	RiskScore        int            `json:"risk_score"`
	AgentRiskScore   *int           `json:"agent_risk_score,omitempty"`
	Summary          string         `json:"summary"`
	Reasoning        string         `json:"reasoning"`
	Validation       string         `json:"validation"`
	GeminiImpression string         `json:"gemini_impression"`
	Model            string         `json:"model"`
	Source           string         `json:"source"`
	Mode             AssessmentMode `json:"mode"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Helpline is a crisis support contact.
type Helpline struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Desc   string `json:"desc"`
}

// HelplinesResponse is the body returned by the helplines endpoint.
type HelplinesResponse struct {
	Helplines []Helpline `json:"helplines"`
}
