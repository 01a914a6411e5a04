package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"mindwell-screening/pkg"
)

// ErrUnparsableResponse is wrapped by every error returned from
// ParseAssessment.
var ErrUnparsableResponse = errors.New("unparsable response")

// candidateStage yields JSON candidates recovered from a raw backend reply.
type candidateStage struct {
	name    string
	extract func(text string) []string
}

// parseStages run in order. The first candidate that decodes as a JSON object
// decides the outcome: it is either a valid assessment or the reply is
// rejected. Later candidates are never consulted once an object was found.
var parseStages = []candidateStage{
	{name: "direct", extract: directCandidate},
	{name: "fence", extract: fenceCandidate},
	{name: "substring", extract: braceCandidates},
	{name: "repair", extract: repairedCandidate},
}

// ParseAssessment recovers a structured assessment from a backend reply. It
// tries the whole payload, then the payload with markdown fences removed,
// then each top-level balanced {...} substring in order of appearance, and
// finally a repaired version of the first closed object. SourceBackend is
// left empty for the caller to fill in.
func ParseAssessment(text string) (pkg.AssessmentResult, error) {
	var lastErr error
	seen := make(map[string]struct{})
	for _, stage := range parseStages {
		for _, candidate := range stage.extract(text) {
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			fields, err := decodeObject(candidate)
			if err != nil {
				lastErr = fmt.Errorf("%s stage: %w", stage.name, err)
				continue
			}
			result, err := validateAssessment(fields)
			if err != nil {
				return pkg.AssessmentResult{}, fmt.Errorf("%w: %s stage: %v", ErrUnparsableResponse, stage.name, err)
			}
			return result, nil
		}
	}
	if lastErr == nil {
		return pkg.AssessmentResult{}, fmt.Errorf("%w: no JSON object found", ErrUnparsableResponse)
	}
	return pkg.AssessmentResult{}, fmt.Errorf("%w: %v", ErrUnparsableResponse, lastErr)
}

func directCandidate(text string) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	return []string{t}
}

var (
	fencedBlock  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)```")
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*")
	closingFence = regexp.MustCompile("```$")
)

// stripCodeFence returns the body of the first fenced block, or the text with
// a dangling opening or closing fence removed.
func stripCodeFence(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	t := strings.TrimSpace(text)
	t = openingFence.ReplaceAllString(t, "")
	t = closingFence.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

func fenceCandidate(text string) []string {
	t := stripCodeFence(text)
	if t == "" {
		return nil
	}
	return []string{t}
}

// braceCandidates returns the top-level balanced brace-delimited substrings of
// text in order of appearance. Objects nested inside a returned span are not
// returned on their own. Braces inside JSON strings are ignored.
func braceCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if end := matchingBrace(text, i); end > i {
			out = append(out, text[i:end+1])
			i = end
		}
	}
	return out
}

// matchingBrace returns the index of the brace closing the one at start, or
// -1 if the object is not closed.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repairedCandidate handles near-JSON such as trailing commas or single
// quotes. Only an object the reply itself closed is repaired; a truncated
// reply yields nothing.
func repairedCandidate(text string) []string {
	t := stripCodeFence(text)
	start := strings.IndexByte(t, '{')
	if start < 0 {
		return nil
	}
	end := matchingBrace(t, start)
	if end < 0 {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(t[start : end+1])
	if err != nil || repaired == "" {
		return nil
	}
	return []string{repaired}
}

// decodeObject decodes candidate as exactly one JSON object.
func decodeObject(candidate string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	if fields == nil {
		return nil, errors.New("not a JSON object")
	}
	return fields, nil
}

// validateAssessment enforces the result contract on a decoded object:
// integer score in [0,10], string fields, non-blank validation.
func validateAssessment(fields map[string]any) (pkg.AssessmentResult, error) {
	score, err := decodeScore(fields["score"])
	if err != nil {
		return pkg.AssessmentResult{}, err
	}
	reasoning, err := optionalString(fields, "reasoning")
	if err != nil {
		return pkg.AssessmentResult{}, err
	}
	validation, err := optionalString(fields, "validation")
	if err != nil {
		return pkg.AssessmentResult{}, err
	}
	if strings.TrimSpace(validation) == "" {
		return pkg.AssessmentResult{}, errors.New("validation is empty")
	}

	return pkg.AssessmentResult{
		Score:      score,
		Reasoning:  strings.TrimSpace(reasoning),
		Validation: strings.TrimSpace(validation),
	}, nil
}

func decodeScore(raw any) (int, error) {
	if raw == nil {
		return 0, errors.New("score is missing")
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("score is %T, not a number", raw)
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("score %q: %w", num, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("score %s is not an integer", num)
	}
	if f < 0 || f > 10 {
		return 0, fmt.Errorf("score %s is outside 0-10", num)
	}
	return int(f), nil
}

func optionalString(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", key, raw)
	}
	return s, nil
}
