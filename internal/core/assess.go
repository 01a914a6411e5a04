package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindwell-screening/internal/llm"
	"mindwell-screening/internal/metrics"
	"mindwell-screening/pkg"
)

// DefaultBackendTimeout bounds a single backend call.
const DefaultBackendTimeout = 8 * time.Second

// ErrAllBackendsExhausted is matched by every *ExtractionFailure.
var ErrAllBackendsExhausted = errors.New("all backends exhausted")

// Attempt records what happened when one backend was tried.
type Attempt struct {
	Backend  string
	Outcome  string
	Reason   string
	Duration time.Duration
}

// ExtractionFailure is returned when no backend produced a usable
// assessment. It never carries a score: the caller decides what to report.
type ExtractionFailure struct {
	// Reason is the last recorded failure reason.
	Reason   string
	Attempts []Attempt
	// Err is the error behind Reason, if any.
	Err error
}

func (f *ExtractionFailure) Error() string {
	return "all backends exhausted: " + f.Reason
}

func (f *ExtractionFailure) Is(target error) bool { return target == ErrAllBackendsExhausted }

func (f *ExtractionFailure) Unwrap() error { return f.Err }

// Attempt outcomes, also used as metric labels.
const (
	OutcomeSuccess       = "success"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeTransient     = "transient"
	OutcomeRejected      = "rejected"
	OutcomeUnparsable    = "unparsable"
	OutcomeCancelled     = "cancelled"
)

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetry
	outcomeFatal
)

// attemptOutcome is the result of trying one backend: a result, a reason to
// move on to the next backend, or a reason to stop altogether.
type attemptOutcome struct {
	kind   outcomeKind
	label  string
	result pkg.AssessmentResult
	reason string
	err    error
}

// Extractor turns a patient summary into a structured assessment by trying an
// ordered list of backends until one returns a parseable reply. It holds no
// per-call state and is safe for concurrent use.
type Extractor struct {
	backends []llm.Backend
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBackendTimeout sets the per-backend call timeout. Zero or negative
// disables it.
func WithBackendTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor constructs an Extractor over backends in priority order. The
// slice is copied.
func NewExtractor(backends []llm.Backend, opts ...Option) *Extractor {
	e := &Extractor{
		backends: append([]llm.Backend(nil), backends...),
		timeout:  DefaultBackendTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backends returns the backend names in priority order.
func (e *Extractor) Backends() []string {
	names := make([]string, len(e.backends))
	for i, b := range e.backends {
		names[i] = b.Name()
	}
	return names
}

// Assess produces an assessment for req. Backends are tried one at a time in
// priority order; the first valid reply ends the iteration. When no backend
// succeeds, or ctx is cancelled, the error is an *ExtractionFailure.
func (e *Extractor) Assess(ctx context.Context, req pkg.AssessmentRequest) (pkg.AssessmentResult, error) {
	prompt := BuildAssessmentPrompt(req)
	log := e.logger.With(
		zap.String("mode", string(req.Mode())),
		zap.Int("summary_len", len(req.Summary)),
	)

	failure := &ExtractionFailure{Reason: "no backends configured"}
	for _, backend := range e.backends {
		if err := ctx.Err(); err != nil {
			failure.Reason = "request cancelled: " + err.Error()
			failure.Err = err
			break
		}

		start := time.Now()
		out := e.attempt(ctx, backend, prompt)
		elapsed := time.Since(start)
		e.metrics.ObserveAttempt(backend.Name(), out.label, elapsed)

		if out.kind == outcomeSuccess {
			log.Info("assessment produced",
				zap.String("backend", backend.Name()),
				zap.Int("score", out.result.Score),
				zap.Duration("elapsed", elapsed),
			)
			e.metrics.ObserveAssessment("assessed")
			return out.result, nil
		}

		failure.Attempts = append(failure.Attempts, Attempt{
			Backend:  backend.Name(),
			Outcome:  out.label,
			Reason:   out.reason,
			Duration: elapsed,
		})
		failure.Reason = out.reason
		failure.Err = out.err
		log.Warn("backend attempt failed",
			zap.String("backend", backend.Name()),
			zap.String("outcome", out.label),
			zap.String("reason", out.reason),
			zap.Duration("elapsed", elapsed),
		)
		if out.kind == outcomeFatal {
			break
		}
	}

	e.metrics.ObserveAssessment("exhausted")
	log.Error("assessment unavailable", zap.String("reason", failure.Reason), zap.Int("attempts", len(failure.Attempts)))
	return pkg.AssessmentResult{}, failure
}

func (e *Extractor) attempt(ctx context.Context, backend llm.Backend, prompt string) attemptOutcome {
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := backend.Generate(callCtx, prompt, llm.GenerateOptions{JSONMode: true, SafetyRelaxed: true})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptOutcome{
				kind:   outcomeFatal,
				label:  OutcomeCancelled,
				reason: "request cancelled: " + ctxErr.Error(),
				err:    ctxErr,
			}
		}
		label := OutcomeTransient
		switch llm.KindOf(err) {
		case llm.KindQuotaExceeded:
			label = OutcomeQuotaExceeded
		case llm.KindRejected:
			label = OutcomeRejected
		}
		return attemptOutcome{
			kind:   outcomeRetry,
			label:  label,
			reason: fmt.Sprintf("%s %s: %v", backend.Name(), label, unwrapGeneration(err)),
			err:    err,
		}
	}

	result, err := ParseAssessment(text)
	if err != nil {
		return attemptOutcome{
			kind:   outcomeRetry,
			label:  OutcomeUnparsable,
			reason: fmt.Sprintf("%s returned unusable output: %v", backend.Name(), err),
			err:    err,
		}
	}
	result.SourceBackend = backend.Name()
	return attemptOutcome{kind: outcomeSuccess, label: OutcomeSuccess, result: result}
}

// unwrapGeneration strips the backend and kind prefix so reasons do not
// repeat them.
func unwrapGeneration(err error) error {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) && genErr.Err != nil {
		return genErr.Err
	}
	return err
}
