package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// GenerateOptions carries the per-call knobs the assessment flow needs from a
// backend. Backends that cannot honour an option ignore it.
type GenerateOptions struct {
	// JSONMode asks the backend to constrain its reply to a JSON document.
	JSONMode bool
	// SafetyRelaxed lowers content filtering so clinical self-harm and
	// distress vocabulary is not refused.
	SafetyRelaxed bool
}

// Backend is a single hosted generation service bound to one model. The
// extractor holds an ordered slice of these and tries them in turn.
type Backend interface {
	// Name identifies the backend in results, records and logs.
	Name() string
	// Generate sends prompt to the model and returns the raw text reply.
	// Failures are returned as *GenerationError.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ErrorKind classifies a backend failure.
type ErrorKind int

const (
	// KindTransient covers network errors, timeouts and server-side faults.
	KindTransient ErrorKind = iota
	// KindQuotaExceeded means the backend reported resource exhaustion.
	KindQuotaExceeded
	// KindRejected means the request was refused: bad credentials, unknown
	// model, malformed request or a content-safety block.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRejected:
		return "rejected"
	default:
		return "transient"
	}
}

// GenerationError is the error type returned by every Backend.
type GenerationError struct {
	Backend string
	Kind    ErrorKind
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind of err. Errors that did not come from a
// backend are treated as transient.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindTransient
}

// kindForStatus maps an HTTP status code returned by a provider API.
func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return KindRejected
	default:
		return KindTransient
	}
}
